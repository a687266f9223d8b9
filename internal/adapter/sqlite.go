package adapter

import (
	"context"
	"log/slog"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

func init() {
	Register("sqlite", func(logger *slog.Logger) Adapter { return NewSQLiteAdapter(logger) })
}

// SQLiteAdapter implements the Adapter interface for SQLite.
type SQLiteAdapter struct {
	BaseSQLAdapter
}

// NewSQLiteAdapter creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func NewSQLiteAdapter(logger *slog.Logger) *SQLiteAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *SQLiteAdapter) DialectName() string { return "sqlite" }

// Connect opens the SQLite database at cfg.DSN.
// An empty DSN opens an in-memory database.
func (a *SQLiteAdapter) Connect(ctx context.Context, cfg Config) error {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	a.Logger.Debug("connecting to sqlite", slog.String("path", dsn))
	if err := a.open(ctx, "sqlite", dsn, cfg); err != nil {
		return err
	}
	// one connection keeps an in-memory database alive between queries
	a.DB.SetMaxOpenConns(1)
	return nil
}
