package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

func init() {
	Register("postgres", func(logger *slog.Logger) Adapter { return NewPostgresAdapter(logger) })
}

// PostgresAdapter implements the Adapter interface for PostgreSQL.
type PostgresAdapter struct {
	BaseSQLAdapter
}

// NewPostgresAdapter creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func NewPostgresAdapter(logger *slog.Logger) *PostgresAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *PostgresAdapter) DialectName() string { return "postgres" }

// Connect establishes a connection to PostgreSQL.
func (a *PostgresAdapter) Connect(ctx context.Context, cfg Config) error {
	dsn := buildPostgresDSN(cfg)
	a.Logger.Debug("connecting to postgres")
	return a.open(ctx, "pgx", dsn, cfg)
}

// buildPostgresDSN appends Options as key=value pairs to the DSN.
// URL style DSNs get them as query parameters.
func buildPostgresDSN(cfg Config) string {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = "host=localhost port=5432"
	}
	if len(cfg.Options) == 0 {
		return dsn
	}

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		for _, k := range keys {
			dsn += fmt.Sprintf("%s%s=%s", sep, k, cfg.Options[k])
			sep = "&"
		}
		return dsn
	}

	for _, k := range keys {
		dsn += fmt.Sprintf(" %s=%s", k, cfg.Options[k])
	}
	return dsn
}
