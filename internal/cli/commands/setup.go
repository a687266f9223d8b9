// Package commands implements the leapsim subcommands.
package commands

import (
	"errors"
	"log/slog"

	"github.com/leapstack-labs/leapsim/internal/cli/config"
	"github.com/leapstack-labs/leapsim/internal/cli/output"
	scenario "github.com/leapstack-labs/leapsim/internal/config"
	"github.com/leapstack-labs/leapsim/internal/engine"
	"github.com/spf13/cobra"
)

// errNoScenario is returned when a command runs without a loaded scenario.
var errNoScenario = errors.New("no scenario loaded")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Scenario *scenario.Scenario
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// EngineOptions adjusts the engine a command creates.
type EngineOptions struct {
	NoHistory bool
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, opts EngineOptions) (*CommandContext, func(), error) {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(engine.Config{
		Scenario:  cmdCtx.Scenario,
		Logger:    cmdCtx.Logger,
		NoHistory: opts.NoHistory,
	})
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		if err := eng.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close engine", "error", err.Error())
		}
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that only read run history.
func NewCommandContextWithoutEngine(cmd *cobra.Command) (*CommandContext, error) {
	sc := config.GetScenario(cmd.Context())
	if sc == nil {
		return nil, errNoScenario
	}
	return &CommandContext{
		Scenario: sc,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(sc.Output)),
	}, nil
}
