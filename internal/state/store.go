// Package state persists leapsim run history in SQLite.
// It tracks runs and the timing and outcome of every model invocation.
package state

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ModelRunStatus is the outcome of one model invocation.
type ModelRunStatus string

// Model run statuses.
const (
	ModelRunStatusSuccess ModelRunStatus = "success"
	ModelRunStatusFailed  ModelRunStatus = "failed"
)

// Run is one call of the orchestrator.
type Run struct {
	ID          string
	Status      RunStatus
	Models      []string
	Years       []int
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// ModelRun is one model invocation within a run.
type ModelRun struct {
	ID        int64
	RunID     string
	Model     string
	Year      *int
	Status    ModelRunStatus
	StartedAt time.Time
	Duration  time.Duration
	Error     string
}

// Store is the run history interface.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	StartRun(ctx context.Context, models []string, years []int) (*Run, error)
	RecordModelRun(ctx context.Context, mr *ModelRun) error
	CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListModelRuns(ctx context.Context, runID string) ([]*ModelRun, error)
}
