package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return NewDuckDBAdapter(logger) })
}

// DuckDBAdapter implements the Adapter interface for DuckDB.
type DuckDBAdapter struct {
	BaseSQLAdapter
}

// NewDuckDBAdapter creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func NewDuckDBAdapter(logger *slog.Logger) *DuckDBAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *DuckDBAdapter) DialectName() string { return "duckdb" }

// Connect establishes a connection to DuckDB.
// An empty DSN or ":memory:" opens an in-memory database.
func (a *DuckDBAdapter) Connect(ctx context.Context, cfg Config) error {
	path := cfg.DSN
	if path == ":memory:" {
		path = ""
	}
	a.Logger.Debug("connecting to duckdb", slog.String("path", cfg.DSN))
	return a.open(ctx, "duckdb", path, cfg)
}

// FileQuery returns a query reading a CSV or Parquet file through DuckDB's
// table functions.
func FileQuery(path string) (string, error) {
	quoted := "'" + strings.ReplaceAll(filepath.ToSlash(path), "'", "''") + "'"

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return "SELECT * FROM read_csv_auto(" + quoted + ")", nil
	case ".parquet", ".pq":
		return "SELECT * FROM read_parquet(" + quoted + ")", nil
	case ".json", ".ndjson":
		return "SELECT * FROM read_json_auto(" + quoted + ")", nil
	}
	return "", fmt.Errorf("unsupported file type %q for %s", filepath.Ext(path), path)
}
