package state

import (
	"context"
	"time"

	"github.com/leapstack-labs/leapsim/internal/sim"
)

// Recorder adapts a Store to the session's run history hooks.
type Recorder struct {
	store Store
}

var _ sim.Recorder = (*Recorder)(nil)

// NewRecorder returns a sim.Recorder writing to store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// RunStarted implements sim.Recorder.
func (r *Recorder) RunStarted(ctx context.Context, models []string, years []int) (string, error) {
	run, err := r.store.StartRun(ctx, models, years)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// ModelFinished implements sim.Recorder.
func (r *Recorder) ModelFinished(ctx context.Context, runID, model string, year *int, elapsed time.Duration, err error) error {
	mr := &ModelRun{
		RunID:     runID,
		Model:     model,
		Year:      year,
		Status:    ModelRunStatusSuccess,
		StartedAt: time.Now().UTC().Add(-elapsed),
		Duration:  elapsed,
	}
	if err != nil {
		mr.Status = ModelRunStatusFailed
		mr.Error = err.Error()
	}
	return r.store.RecordModelRun(ctx, mr)
}

// RunFinished implements sim.Recorder.
func (r *Recorder) RunFinished(ctx context.Context, runID string, err error) error {
	if err != nil {
		return r.store.CompleteRun(context.WithoutCancel(ctx), runID, RunStatusFailed, err.Error())
	}
	return r.store.CompleteRun(ctx, runID, RunStatusCompleted, "")
}
