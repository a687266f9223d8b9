// Package adapter provides database adapters that load leapsim tables from
// SQL databases and files.
package adapter

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNotConnected is returned when an adapter is used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// Config holds the configuration for connecting to a database.
type Config struct {
	// Type specifies the database type (e.g., "duckdb", "postgres", "sqlite")
	Type string

	// DSN is the driver connection string. For file databases it is the
	// path; empty or ":memory:" selects an in-memory database.
	DSN string

	// Options contains additional driver-specific options
	Options map[string]string
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	// The caller must close the rows and check rows.Err().
	Query(ctx context.Context, sql string) (*sql.Rows, error)

	// DialectName returns the SQL dialect name (e.g., "duckdb", "postgres").
	DialectName() string
}
