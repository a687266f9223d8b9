package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapsim/internal/cli/output"
	scenario "github.com/leapstack-labs/leapsim/internal/config"
	"github.com/leapstack-labs/leapsim/internal/engine"
	"github.com/leapstack-labs/leapsim/pkg/frame"
	"github.com/spf13/cobra"
)

// MergeOptions holds options for the merge command.
type MergeOptions struct {
	Columns []string
	Out     string
	Format  string
	Limit   int
}

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	opts := &MergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge <target> [tables...]",
		Short: "Merge tables onto a target along registered broadcasts",
		Long: `Merge tables into one frame anchored at the target table.

Tables are joined along the broadcasts registered by the scenario's scripts.
With no tables, only the target is shown. The result is printed, or written
to --out as csv, parquet or yaml.`,
		Example: `  # Show households with their buildings and zones
  leapsim merge households buildings zones

  # Only two columns, written to parquet
  leapsim merge households zones --columns income,zone_area --out hh.parquet`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, args[0], args[1:], opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "Columns to keep (default: all)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Write the merged frame to this file")
	cmd.Flags().StringVar(&opts.Format, "format", "", "Output file format (csv|parquet|yaml, default: from --out extension)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Rows to print (0 for all)")

	return cmd
}

func runMerge(cmd *cobra.Command, target string, tables []string, opts *MergeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd, EngineOptions{NoHistory: true})
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := cmdCtx.Engine.Merge(cmd.Context(), target, tables, opts.Columns)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if opts.Out != "" {
		format := opts.Format
		if format == "" {
			format = scenario.FormatForPath(opts.Out)
		}
		if format == "" {
			return fmt.Errorf("cannot infer output format from %s: use --format", opts.Out)
		}
		if err := engine.WriteFrame(f, opts.Out, format); err != nil {
			return err
		}
		if r.EffectiveMode() != output.ModeJSON {
			r.Success(fmt.Sprintf("Wrote %d rows to %s", f.Len(), opts.Out))
		}
		return nil
	}

	rows := frameRows(f, opts.Limit)
	if r.EffectiveMode() == output.ModeJSON {
		out := output.FrameOutput{
			Columns: append([]string{frame.IndexColumn}, f.Columns()...),
			Rows:    make([]map[string]any, 0, len(rows)),
		}
		for _, row := range rows {
			m := make(map[string]any, len(row))
			for i, col := range out.Columns {
				m[col] = row[i]
			}
			out.Rows = append(out.Rows, m)
		}
		return r.JSON(out)
	}

	r.Header(2, fmt.Sprintf("%s (%d rows)", target, f.Len()))
	r.Table(append([]string{frame.IndexColumn}, f.Columns()...), rows)
	if len(rows) < f.Len() {
		r.Muted(fmt.Sprintf("showing %d of %d rows", len(rows), f.Len()))
	}
	return nil
}

// frameRows returns up to limit rows of f with the index label first.
func frameRows(f *frame.Frame, limit int) [][]any {
	n := f.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	cols := f.Columns()
	index := f.Index()

	rows := make([][]any, n)
	for i := range n {
		rec := f.Row(i)
		row := make([]any, 0, len(cols)+1)
		row = append(row, index[i])
		for _, c := range cols {
			row = append(row, rec[c])
		}
		rows[i] = row
	}
	return rows
}
