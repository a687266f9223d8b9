package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/leapstack-labs/leapsim/internal/cli/output"
	"github.com/leapstack-labs/leapsim/internal/state"
	"github.com/spf13/cobra"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Limit int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show run history",
		Long: `Show recorded runs, newest first.

With a run ID, show that run's model invocations.`,
		Example: `  # Last 10 runs
  leapsim runs --limit 10

  # Model invocations of one run
  leapsim runs 5f1c2d3e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runRuns(cmd, runID, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to show")

	return cmd
}

func runRuns(cmd *cobra.Command, runID string, opts *RunsOptions) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	path := cmdCtx.Scenario.StatePath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(output.RunsOutput{Runs: []output.RunInfo{}})
		}
		r.Muted(fmt.Sprintf("No run history at %s", path))
		return nil
	}

	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(path); err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate run history: %w", err)
	}

	ctx := cmd.Context()
	if runID != "" {
		run, err := store.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		mrs, err := store.ListModelRuns(ctx, runID)
		if err != nil {
			return err
		}
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(output.RunsOutput{Runs: []output.RunInfo{runInfo(run)}, ModelRuns: modelRunInfos(mrs)})
		}
		renderRunDetail(r, run, mrs)
		return nil
	}

	runs, err := store.ListRuns(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if r.EffectiveMode() == output.ModeJSON {
		out := output.RunsOutput{Runs: make([]output.RunInfo, 0, len(runs))}
		for _, run := range runs {
			out.Runs = append(out.Runs, runInfo(run))
		}
		return r.JSON(out)
	}

	r.Header(2, fmt.Sprintf("Runs (%d)", len(runs)))
	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []any{run.ID, string(run.Status), run.StartedAt, runDuration(run), output.FormatList(run.Models), formatYears(run.Years)})
	}
	r.Table([]string{"ID", "Status", "Started", "Duration", "Models", "Years"}, rows)
	return nil
}

func runInfo(run *state.Run) output.RunInfo {
	info := output.RunInfo{
		ID:        run.ID,
		Status:    string(run.Status),
		Models:    run.Models,
		Years:     run.Years,
		StartedAt: run.StartedAt.Format(time.RFC3339),
		Error:     run.Error,
	}
	if info.Models == nil {
		info.Models = []string{}
	}
	if info.Years == nil {
		info.Years = []int{}
	}
	if run.CompletedAt != nil {
		info.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return info
}

func runDuration(run *state.Run) any {
	if run.CompletedAt == nil {
		return nil
	}
	return run.CompletedAt.Sub(run.StartedAt)
}

func renderRunDetail(r *output.Renderer, run *state.Run, mrs []*state.ModelRun) {
	r.Header(1, fmt.Sprintf("Run %s", run.ID))
	r.KeyValue("Status", string(run.Status))
	r.KeyValue("Started", output.FormatValue(run.StartedAt))
	if d := runDuration(run); d != nil {
		r.KeyValue("Duration", output.FormatValue(d))
	}
	r.KeyValue("Models", output.FormatList(run.Models))
	r.KeyValue("Years", formatYears(run.Years))
	if run.Error != "" {
		r.KeyValue("Error", run.Error)
	}
	r.Println("")

	rows := make([][]any, 0, len(mrs))
	for _, mr := range mrs {
		var year any
		if mr.Year != nil {
			year = *mr.Year
		}
		rows = append(rows, []any{mr.Model, year, string(mr.Status), mr.Duration, mr.Error})
	}
	r.Table([]string{"Model", "Year", "Status", "Duration", "Error"}, rows)
}
