package sim

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// YearInjectable is the injectable Run sets before each pass over the models.
const YearInjectable = "year"

// Recorder receives run history. It is optional; see WithRecorder.
type Recorder interface {
	// RunStarted is called once before the first model and returns a run ID.
	RunStarted(ctx context.Context, models []string, years []int) (string, error)
	// ModelFinished is called after every model invocation. year is nil for
	// runs without years.
	ModelFinished(ctx context.Context, runID, model string, year *int, elapsed time.Duration, err error) error
	// RunFinished is called once when the run ends, with the run's error.
	RunFinished(ctx context.Context, runID string, err error) error
}

// Run invokes models in order, once per year. With no years the models run
// once with the year injectable set to nil. The first failing model aborts
// the run; registrations made by earlier models are kept.
//
// ctx is checked between models. A model that is already running is never
// interrupted.
func (s *Session) Run(ctx context.Context, models []string, years []int) (err error) {
	if s.closed {
		return ErrClosed
	}

	passes := make([]*int, 0, len(years))
	for i := range years {
		passes = append(passes, &years[i])
	}
	if len(passes) == 0 {
		passes = append(passes, nil)
	}

	var runID string
	if s.recorder != nil {
		runID, err = s.recorder.RunStarted(ctx, models, years)
		if err != nil {
			return fmt.Errorf("failed to record run start: %w", err)
		}
		defer func() {
			if rerr := s.recorder.RunFinished(ctx, runID, err); rerr != nil {
				err = errors.Join(err, fmt.Errorf("failed to record run end: %w", rerr))
			}
		}()
	}

	runStart := time.Now()
	s.logger.Info("starting run", "run_id", runID, "models", models, "years", years)

	for _, year := range passes {
		var yearValue any
		if year != nil {
			yearValue = *year
			s.logger.Info("running year", "year", *year)
		}
		if err := s.AddInjectable(YearInjectable, yearValue, false); err != nil {
			return err
		}

		for _, name := range models {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("run stopped before model %q: %w", name, err)
			}
			if err := s.runModel(ctx, runID, name, year); err != nil {
				return err
			}
		}
	}

	s.logger.Info("run complete", "run_id", runID, "elapsed_ms", time.Since(runStart).Milliseconds())
	return nil
}

func (s *Session) runModel(ctx context.Context, runID, name string, year *int) error {
	m, err := s.Model(name)
	if err != nil {
		return err
	}

	s.logger.Debug("running model", "model", name, "year", yearAttr(year))
	start := time.Now()
	err = s.invokeModel(m)
	elapsed := time.Since(start)

	if s.recorder != nil {
		if rerr := s.recorder.ModelFinished(ctx, runID, name, year, elapsed, err); rerr != nil {
			s.logger.Warn("failed to record model run", "model", name, "error", rerr)
		}
	}

	if err != nil {
		s.logger.Error("model failed", "model", name, "year", yearAttr(year), "elapsed_ms", elapsed.Milliseconds(), "error", err)
		if year != nil {
			return fmt.Errorf("model %q (year %d): %w", name, *year, err)
		}
		return fmt.Errorf("model %q: %w", name, err)
	}
	s.logger.Info("model finished", "model", name, "year", yearAttr(year), "elapsed_ms", elapsed.Milliseconds())
	return nil
}

func (s *Session) invokeModel(m *Model) error {
	deps, err := s.Resolve(m.deps)
	if err != nil {
		return err
	}
	return m.fn(deps)
}

func yearAttr(year *int) any {
	if year == nil {
		return nil
	}
	return *year
}
