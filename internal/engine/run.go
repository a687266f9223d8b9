package engine

// run.go - Execution orchestration for running models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapsim/internal/state"
)

// RunOptions selects what a run executes. Empty fields fall back to the
// scenario's models and years.
type RunOptions struct {
	Models []string
	Years  []int
	// SkipExport disables the scenario's exports after a successful run.
	SkipExport bool
}

// RunResult summarizes a finished run.
type RunResult struct {
	Models   []string
	Years    []int
	Elapsed  time.Duration
	Exported []string
	// Run is the recorded history entry, nil when history is disabled.
	Run *state.Run
}

// Run loads the scenario if needed, runs the models for every year and
// writes the configured exports. A failing model stops the run.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if err := e.Load(ctx); err != nil {
		return nil, err
	}

	res := &RunResult{Models: opts.Models, Years: opts.Years}
	if len(res.Models) == 0 {
		res.Models = e.scenario.Models
	}
	if len(res.Years) == 0 {
		res.Years = e.scenario.Years
	}
	if len(res.Models) == 0 {
		return nil, errors.New("no models to run: set models in the scenario or pass --models")
	}

	e.logger.Info("starting run", "scenario", e.scenario.Name, "models", res.Models, "years", res.Years)
	start := time.Now()

	runErr := e.sess.Run(ctx, res.Models, res.Years)
	res.Elapsed = time.Since(start)
	res.Run = e.latestRun(ctx)

	if runErr != nil {
		e.logger.Info("run failed", "error", runErr.Error(), "elapsed_ms", res.Elapsed.Milliseconds())
		return res, runErr
	}
	e.logger.Info("run completed", "elapsed_ms", res.Elapsed.Milliseconds())

	if opts.SkipExport {
		return res, nil
	}
	exported, err := e.Export(ctx)
	res.Exported = exported
	if err != nil {
		return res, fmt.Errorf("export failed: %w", err)
	}
	return res, nil
}

func (e *Engine) latestRun(ctx context.Context) *state.Run {
	if e.store == nil {
		return nil
	}
	runs, err := e.store.ListRuns(context.WithoutCancel(ctx), 1)
	if err != nil || len(runs) == 0 {
		return nil
	}
	return runs[0]
}
