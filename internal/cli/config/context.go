// Package config carries the loaded scenario and logger through the command
// context.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	scenario "github.com/leapstack-labs/leapsim/internal/config"
)

// scenarioKey is used to store the scenario in context.
type scenarioKey struct{}

// loggerKey is used to store logger in context.
type loggerKey struct{}

// WithScenario returns ctx carrying sc.
func WithScenario(ctx context.Context, sc *scenario.Scenario) context.Context {
	return context.WithValue(ctx, scenarioKey{}, sc)
}

// GetScenario retrieves the scenario from the command context.
func GetScenario(ctx context.Context) *scenario.Scenario {
	if sc, ok := ctx.Value(scenarioKey{}).(*scenario.Scenario); ok {
		return sc
	}
	return nil
}

// WithLogger returns ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
// Returns a discard logger if none is set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the CLI logger writing to w in the given level and
// format ("text" or "json").
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := scenario.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}
