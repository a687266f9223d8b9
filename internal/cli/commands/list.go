package commands

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapsim/internal/cli/output"
	"github.com/leapstack-labs/leapsim/internal/sim"
	"github.com/spf13/cobra"
)

// listKinds are the entity kinds list can show.
var listKinds = []string{"tables", "columns", "injectables", "models", "broadcasts"}

// ListOptions holds options for the list command.
type ListOptions struct {
	Evaluate bool
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list [tables|columns|injectables|models|broadcasts]",
		Short: "List registered tables, columns, injectables, models and broadcasts",
		Long: `Load the scenario and its scripts and list what they register.

Nothing is evaluated unless --evaluate is set: table columns are shown as far
as they are known without calling table functions or reading sources.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List everything
  leapsim list

  # List only models, as JSON
  leapsim list models -o json

  # Evaluate tables to show their full column sets
  leapsim list tables --evaluate`,
		ValidArgs: listKinds,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := listKinds
			if len(args) == 1 {
				kinds = args
			}
			return runList(cmd, kinds, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Evaluate, "evaluate", false, "Evaluate tables to list all of their columns")

	return cmd
}

func runList(cmd *cobra.Command, kinds []string, opts *ListOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd, EngineOptions{NoHistory: true})
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	if err := eng.Load(cmd.Context()); err != nil {
		return err
	}

	list, err := collectList(eng.Session(), opts.Evaluate)
	if err != nil {
		return err
	}
	list.Scripts = eng.Scripts()

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(filterList(list, kinds))
	}
	renderList(r, list, kinds)
	return nil
}

func collectList(sess *sim.Session, evaluate bool) (output.ListOutput, error) {
	list := output.ListOutput{
		Scripts:     []string{},
		Tables:      []output.TableInfo{},
		Columns:     []output.ColumnInfo{},
		Injectables: []output.InjectableInfo{},
		Models:      []output.ModelInfo{},
		Broadcasts:  []output.BroadcastInfo{},
	}

	for _, name := range sess.ListTables() {
		t, err := sess.Table(name)
		if err != nil {
			return list, err
		}
		info, err := tableInfo(sess, t, evaluate)
		if err != nil {
			return list, fmt.Errorf("table %s: %w", name, err)
		}
		list.Tables = append(list.Tables, info)
	}

	for _, key := range sess.ListColumns() {
		info := output.ColumnInfo{Table: key.Table, Name: key.Name}
		if c, err := sess.Column(key.Table, key.Name); err == nil {
			if fc, ok := c.(*sim.FuncColumn); ok {
				info.Deps = fc.Deps()
			}
		}
		list.Columns = append(list.Columns, info)
	}

	for _, name := range sess.ListInjectables() {
		inj, err := sess.Injectable(name)
		if err != nil {
			return list, err
		}
		info := output.InjectableInfo{Name: name}
		switch inj := inj.(type) {
		case *sim.FuncInjectable:
			info.Autocall = true
			info.Deps = inj.Deps()
		case *sim.ValueInjectable:
			info.Value = displayValue(inj.Value())
		}
		list.Injectables = append(list.Injectables, info)
	}

	for _, name := range sess.ListModels() {
		m, err := sess.Model(name)
		if err != nil {
			return list, err
		}
		deps := m.Deps()
		if deps == nil {
			deps = []string{}
		}
		list.Models = append(list.Models, output.ModelInfo{Name: name, Deps: deps})
	}

	for _, key := range sess.ListBroadcasts() {
		b, err := sess.Broadcast(key.Cast, key.Onto)
		if err != nil {
			return list, err
		}
		list.Broadcasts = append(list.Broadcasts, output.BroadcastInfo{
			Cast:      b.Cast,
			Onto:      b.Onto,
			CastOn:    b.CastOn,
			OntoOn:    b.OntoOn,
			CastIndex: b.CastIndex,
			OntoIndex: b.OntoIndex,
		})
	}

	return list, nil
}

func tableInfo(sess *sim.Session, t sim.Table, evaluate bool) (output.TableInfo, error) {
	info := output.TableInfo{Name: t.Name()}

	switch t := t.(type) {
	case *sim.FrameTable:
		info.Kind = "frame"
	case *sim.FuncTable:
		info.Kind = "function"
		info.Deps = t.Deps()
	case *sim.SourceTable:
		info.Kind = "source"
		info.Deps = t.Deps()
		if t.Evaluated() {
			evaluate = true
		}
	}

	if _, isFrame := t.(*sim.FrameTable); isFrame || evaluate {
		cols, err := t.Columns()
		if err != nil {
			return info, err
		}
		info.Columns = cols
		return info, nil
	}

	// registered columns are known without evaluating the table
	info.Columns = []string{}
	for _, key := range sess.ListColumns() {
		if key.Table == t.Name() {
			info.Columns = append(info.Columns, key.Name)
		}
	}
	return info, nil
}

// displayValue keeps scalars as they are and renders anything else as text.
func displayValue(v any) any {
	switch v.(type) {
	case nil, bool, string, int, int64, float64:
		return v
	}
	return fmt.Sprint(v)
}

func filterList(list output.ListOutput, kinds []string) output.ListOutput {
	if !slices.Contains(kinds, "tables") {
		list.Tables = nil
	}
	if !slices.Contains(kinds, "columns") {
		list.Columns = nil
	}
	if !slices.Contains(kinds, "injectables") {
		list.Injectables = nil
	}
	if !slices.Contains(kinds, "models") {
		list.Models = nil
	}
	if !slices.Contains(kinds, "broadcasts") {
		list.Broadcasts = nil
	}
	return list
}

func renderList(r *output.Renderer, list output.ListOutput, kinds []string) {
	for _, kind := range kinds {
		switch kind {
		case "tables":
			r.Header(2, fmt.Sprintf("Tables (%d)", len(list.Tables)))
			rows := make([][]any, 0, len(list.Tables))
			for _, t := range list.Tables {
				rows = append(rows, []any{t.Name, t.Kind, output.FormatList(t.Columns), output.FormatList(t.Deps)})
			}
			r.Table([]string{"Name", "Kind", "Columns", "Depends on"}, rows)

		case "columns":
			r.Header(2, fmt.Sprintf("Columns (%d)", len(list.Columns)))
			rows := make([][]any, 0, len(list.Columns))
			for _, c := range list.Columns {
				rows = append(rows, []any{c.Table, c.Name, output.FormatList(c.Deps)})
			}
			r.Table([]string{"Table", "Name", "Depends on"}, rows)

		case "injectables":
			r.Header(2, fmt.Sprintf("Injectables (%d)", len(list.Injectables)))
			rows := make([][]any, 0, len(list.Injectables))
			for _, i := range list.Injectables {
				value := any("(function)")
				if !i.Autocall {
					value = i.Value
				}
				rows = append(rows, []any{i.Name, value, output.FormatList(i.Deps)})
			}
			r.Table([]string{"Name", "Value", "Depends on"}, rows)

		case "models":
			r.Header(2, fmt.Sprintf("Models (%d)", len(list.Models)))
			rows := make([][]any, 0, len(list.Models))
			for _, m := range list.Models {
				rows = append(rows, []any{m.Name, output.FormatList(m.Deps)})
			}
			r.Table([]string{"Name", "Depends on"}, rows)

		case "broadcasts":
			r.Header(2, fmt.Sprintf("Broadcasts (%d)", len(list.Broadcasts)))
			rows := make([][]any, 0, len(list.Broadcasts))
			for _, b := range list.Broadcasts {
				rows = append(rows, []any{b.Cast, b.Onto, joinKey(b.CastOn, b.CastIndex), joinKey(b.OntoOn, b.OntoIndex)})
			}
			r.Table([]string{"Cast", "Onto", "Cast key", "Onto key"}, rows)
		}
		r.Println("")
	}
}

func joinKey(on string, index bool) string {
	if index {
		return "(index)"
	}
	return on
}
