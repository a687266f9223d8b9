package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// StartRun creates a new run in the running state.
func (s *SQLiteStore) StartRun(ctx context.Context, models []string, years []int) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run := &Run{
		ID:        generateID(),
		Status:    RunStatusRunning,
		Models:    models,
		Years:     years,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.Any("models", models))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, models, years, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(run.Status), strings.Join(models, ","), joinYears(years), toMillis(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), toMillis(time.Now().UTC()), errVal, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// RecordModelRun stores one model invocation and sets mr.ID.
func (s *SQLiteStore) RecordModelRun(ctx context.Context, mr *ModelRun) error {
	if s.db == nil {
		return errNotOpened
	}

	var year sql.NullInt64
	if mr.Year != nil {
		year = sql.NullInt64{Int64: int64(*mr.Year), Valid: true}
	}
	var errVal sql.NullString
	if mr.Error != "" {
		errVal = sql.NullString{String: mr.Error, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO model_runs (run_id, model, year, status, started_at, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		mr.RunID, mr.Model, year, string(mr.Status), toMillis(mr.StartedAt), mr.Duration.Milliseconds(), errVal,
	)
	if err != nil {
		return fmt.Errorf("failed to record model run: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		mr.ID = id
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, models, years, started_at, completed_at, error FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, models, years, started_at, completed_at, error
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListModelRuns returns the model invocations of a run in execution order.
func (s *SQLiteStore) ListModelRuns(ctx context.Context, runID string) ([]*ModelRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, model, year, status, started_at, duration_ms, error
		 FROM model_runs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list model runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*ModelRun
	for rows.Next() {
		var (
			mr         ModelRun
			year       sql.NullInt64
			status     string
			startedAt  int64
			durationMs int64
			errMsg     sql.NullString
		)
		if err := rows.Scan(&mr.ID, &mr.RunID, &mr.Model, &year, &status, &startedAt, &durationMs, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan model run: %w", err)
		}
		if year.Valid {
			y := int(year.Int64)
			mr.Year = &y
		}
		mr.Status = ModelRunStatus(status)
		mr.StartedAt = fromMillis(startedAt)
		mr.Duration = time.Duration(durationMs) * time.Millisecond
		mr.Error = errMsg.String
		out = append(out, &mr)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run         Run
		status      string
		models      string
		years       string
		startedAt   int64
		completedAt sql.NullInt64
		errMsg      sql.NullString
	)
	if err := sc.Scan(&run.ID, &status, &models, &years, &startedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	run.Models = splitModels(models)
	ys, err := splitYears(years)
	if err != nil {
		return nil, err
	}
	run.Years = ys
	run.StartedAt = fromMillis(startedAt)
	if completedAt.Valid {
		t := fromMillis(completedAt.Int64)
		run.CompletedAt = &t
	}
	run.Error = errMsg.String
	return &run, nil
}
