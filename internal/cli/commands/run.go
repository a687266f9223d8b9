package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapsim/internal/cli/output"
	"github.com/leapstack-labs/leapsim/internal/engine"
	"github.com/leapstack-labs/leapsim/internal/state"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	NoExport  bool
	NoHistory bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scenario's models for each year",
		Long: `Run models in order for every year of the scenario.

Models and years come from leapsim.yaml unless --models or --years is given.
After a successful run the scenario's exports are written. Each run is
recorded in the run history database unless --no-history is set.`,
		Example: `  # Run the scenario in the current directory
  leapsim run

  # Run two models for a single year
  leapsim run --models households_transition,households_relocation --years 2030

  # Run without writing exports, as JSON for CI
  leapsim run --no-export -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoExport, "no-export", false, "Skip the scenario's exports")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record the run in the history database")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd, EngineOptions{NoHistory: opts.NoHistory})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	res, runErr := cmdCtx.Engine.Run(ctx, engine.RunOptions{SkipExport: opts.NoExport})
	if res == nil {
		return runErr
	}

	modelRuns := loadModelRuns(ctx, cmdCtx.Engine.Store(), res.Run)

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		out := runOutput(cmdCtx.Scenario.Name, res, modelRuns, runErr)
		if err := r.JSON(out); err != nil {
			return err
		}
		return runErr
	}

	renderRun(r, cmdCtx.Scenario.Name, res, modelRuns, runErr)
	return runErr
}

func loadModelRuns(ctx context.Context, store state.Store, run *state.Run) []*state.ModelRun {
	if store == nil || run == nil {
		return nil
	}
	mrs, err := store.ListModelRuns(context.WithoutCancel(ctx), run.ID)
	if err != nil {
		return nil
	}
	return mrs
}

func runOutput(name string, res *engine.RunResult, modelRuns []*state.ModelRun, runErr error) output.RunOutput {
	out := output.RunOutput{
		Scenario:  name,
		Status:    string(state.RunStatusCompleted),
		Models:    res.Models,
		Years:     res.Years,
		ElapsedMS: res.Elapsed.Milliseconds(),
		Exported:  res.Exported,
		ModelRuns: modelRunInfos(modelRuns),
	}
	if out.Years == nil {
		out.Years = []int{}
	}
	if out.Exported == nil {
		out.Exported = []string{}
	}
	if res.Run != nil {
		out.RunID = res.Run.ID
	}
	if runErr != nil {
		out.Status = string(state.RunStatusFailed)
		out.Error = runErr.Error()
	}
	return out
}

func modelRunInfos(mrs []*state.ModelRun) []output.ModelRunInfo {
	infos := make([]output.ModelRunInfo, 0, len(mrs))
	for _, mr := range mrs {
		infos = append(infos, output.ModelRunInfo{
			Model:      mr.Model,
			Year:       mr.Year,
			Status:     string(mr.Status),
			DurationMS: mr.Duration.Milliseconds(),
			Error:      mr.Error,
		})
	}
	return infos
}

func renderRun(r *output.Renderer, name string, res *engine.RunResult, modelRuns []*state.ModelRun, runErr error) {
	r.Header(1, fmt.Sprintf("Run %s", name))
	r.KeyValue("Models", output.FormatList(res.Models))
	r.KeyValue("Years", formatYears(res.Years))
	if res.Run != nil {
		r.KeyValue("Run ID", res.Run.ID)
	}
	r.Println("")

	if len(modelRuns) > 0 {
		r.Header(2, "Models")
		for _, mr := range modelRuns {
			label := mr.Model
			if mr.Year != nil {
				label = fmt.Sprintf("%s (%d)", mr.Model, *mr.Year)
			}
			detail := output.FormatValue(mr.Duration)
			if mr.Error != "" {
				detail = mr.Error
			}
			r.StatusLine(label, string(mr.Status), detail)
		}
		r.Println("")
	}

	if len(res.Exported) > 0 {
		r.Header(2, "Exports")
		for _, path := range res.Exported {
			r.StatusLine(path, "success", "")
		}
		r.Println("")
	}

	elapsed := res.Elapsed.Round(time.Millisecond)
	if runErr != nil {
		r.Error(fmt.Sprintf("Run failed after %s", elapsed))
		return
	}
	r.Success(fmt.Sprintf("Completed in %s", elapsed))
}

func formatYears(years []int) string {
	if len(years) == 0 {
		return "-"
	}
	names := make([]string, len(years))
	for i, y := range years {
		names[i] = strconv.Itoa(y)
	}
	return output.FormatList(names)
}
