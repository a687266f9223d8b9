package sim

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapsim/pkg/frame"
)

// TableFunc computes a table from its resolved dependencies.
type TableFunc func(Deps) (*frame.Frame, error)

// Table is a named table handle. The variants are *FrameTable, *FuncTable
// and *SourceTable.
//
// Reads overlay the session's registered extra columns for the table onto
// its local columns. A registered column shadows a local column of the same
// name; FrameTable.UpdateCol removes that registration again, so the most
// recent write to a (table, column) pair is what reads return.
type Table interface {
	Name() string

	// ToFrame materializes the named columns, or every column when none
	// are given. Extra columns are evaluated on every call.
	ToFrame(columns ...string) (*frame.Frame, error)

	// Column is ToFrame(name) reduced to one series.
	Column(name string) (*frame.Series, error)

	// Columns lists local columns followed by extra columns not already local.
	Columns() ([]string, error)
	LocalColumns() ([]string, error)
	Index() ([]any, error)
	Len() (int, error)

	// materialize is ToFrame with an explicit selection: nil selects every
	// column, an empty non-nil slice selects none.
	materialize(columns []string) (*frame.Frame, error)
}

type tableBase struct {
	name string
	sess *Session
}

func (b tableBase) Name() string { return b.name }

// overlay builds the requested view of a table from its local frame and the
// registered extra columns.
func (b tableBase) overlay(local *frame.Frame, columns []string) (*frame.Frame, error) {
	extras := b.sess.extraColumns(b.name)

	if len(columns) == 0 {
		columns = mergeNames(local.Columns(), extras)
	}

	out, err := frame.New(local.Index())
	if err != nil {
		return nil, err
	}
	for _, name := range columns {
		if out.Has(name) {
			continue
		}
		if slices.Contains(extras, name) {
			s, err := b.sess.evalColumn(ColumnKey{Table: b.name, Name: name})
			if err != nil {
				return nil, err
			}
			if err := out.Set(name, s); err != nil {
				return nil, fmt.Errorf("column %s.%s: %w", b.name, name, err)
			}
			continue
		}
		s, err := local.Column(name)
		if err != nil {
			return nil, &NotFoundError{Kind: "column", Name: ColumnKey{Table: b.name, Name: name}.String()}
		}
		if err := out.SetValues(name, s.Values()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b tableBase) columnsOf(local []string) []string {
	return mergeNames(local, b.sess.extraColumns(b.name))
}

func (b tableBase) column(t Table, name string) (*frame.Series, error) {
	f, err := t.materialize([]string{name})
	if err != nil {
		return nil, err
	}
	return f.Column(name)
}

// FrameTable is a table backed by materialized data.
type FrameTable struct {
	tableBase
	df *frame.Frame
}

func (t *FrameTable) ToFrame(columns ...string) (*frame.Frame, error) {
	return t.materialize(columns)
}

func (t *FrameTable) materialize(columns []string) (*frame.Frame, error) {
	return t.overlay(t.df, columns)
}

func (t *FrameTable) Column(name string) (*frame.Series, error) { return t.column(t, name) }

func (t *FrameTable) Columns() ([]string, error) { return t.columnsOf(t.df.Columns()), nil }

func (t *FrameTable) LocalColumns() ([]string, error) { return t.df.Columns(), nil }

func (t *FrameTable) Index() ([]any, error) { return slices.Clone(t.df.Index()), nil }

func (t *FrameTable) Len() (int, error) { return t.df.Len(), nil }

// UpdateCol writes s into local storage, aligned by index label, and drops
// any registered extra column of the same name.
func (t *FrameTable) UpdateCol(name string, s *frame.Series) error {
	if err := t.df.Set(name, s); err != nil {
		return fmt.Errorf("update %s.%s: %w", t.name, name, err)
	}
	t.sess.columns.Delete(ColumnKey{Table: t.name, Name: name})
	return nil
}

// SetValues writes values positionally into local storage, like UpdateCol.
func (t *FrameTable) SetValues(name string, values []any) error {
	if err := t.df.SetValues(name, values); err != nil {
		return fmt.Errorf("update %s.%s: %w", t.name, name, err)
	}
	t.sess.columns.Delete(ColumnKey{Table: t.name, Name: name})
	return nil
}

// FuncTable is a table computed by a function on every read. Column names,
// index and length are a snapshot of the most recent call.
type FuncTable struct {
	tableBase
	fn   TableFunc
	deps []string

	evaluated bool
	local     []string
	index     []any
}

// Deps returns the declared dependency names.
func (t *FuncTable) Deps() []string { return slices.Clone(t.deps) }

func (t *FuncTable) call() (*frame.Frame, error) {
	df, err := t.sess.callTable(t.name, t.fn, t.deps)
	if err != nil {
		return nil, err
	}
	t.evaluated = true
	t.local = df.Columns()
	t.index = slices.Clone(df.Index())
	return df, nil
}

func (t *FuncTable) ensure() error {
	if t.evaluated {
		return nil
	}
	_, err := t.call()
	return err
}

func (t *FuncTable) ToFrame(columns ...string) (*frame.Frame, error) {
	return t.materialize(columns)
}

func (t *FuncTable) materialize(columns []string) (*frame.Frame, error) {
	df, err := t.call()
	if err != nil {
		return nil, err
	}
	return t.overlay(df, columns)
}

func (t *FuncTable) Column(name string) (*frame.Series, error) { return t.column(t, name) }

func (t *FuncTable) Columns() ([]string, error) {
	if err := t.ensure(); err != nil {
		return nil, err
	}
	return t.columnsOf(t.local), nil
}

func (t *FuncTable) LocalColumns() ([]string, error) {
	if err := t.ensure(); err != nil {
		return nil, err
	}
	return slices.Clone(t.local), nil
}

func (t *FuncTable) Index() ([]any, error) {
	if err := t.ensure(); err != nil {
		return nil, err
	}
	return slices.Clone(t.index), nil
}

func (t *FuncTable) Len() (int, error) {
	if err := t.ensure(); err != nil {
		return 0, err
	}
	return len(t.index), nil
}

// SourceTable is a table computed at most once. Evaluate stores the result
// and replaces the registry entry with a *FrameTable of the same name.
type SourceTable struct {
	tableBase
	fn   TableFunc
	deps []string

	promoted *FrameTable
}

// Deps returns the declared dependency names.
func (t *SourceTable) Deps() []string { return slices.Clone(t.deps) }

// Evaluated reports whether the source has been computed.
func (t *SourceTable) Evaluated() bool { return t.promoted != nil }

// Evaluate computes the source on first use and returns the materialized
// table. Later calls return the same table without calling the function.
func (t *SourceTable) Evaluate() (*FrameTable, error) {
	if t.promoted != nil {
		return t.promoted, nil
	}
	df, err := t.sess.callTable(t.name, t.fn, t.deps)
	if err != nil {
		return nil, err
	}
	t.promoted = &FrameTable{tableBase: t.tableBase, df: df}

	// a newer registration under the same name wins over the promotion
	if cur, ok := t.sess.tables.Get(t.name); ok && cur == Table(t) {
		t.sess.tables.Put(t.name, t.promoted)
	}
	t.sess.logger.Debug("promoted table source", "table", t.name, "rows", df.Len())
	return t.promoted, nil
}

func (t *SourceTable) ToFrame(columns ...string) (*frame.Frame, error) {
	return t.materialize(columns)
}

func (t *SourceTable) materialize(columns []string) (*frame.Frame, error) {
	ft, err := t.Evaluate()
	if err != nil {
		return nil, err
	}
	return ft.materialize(columns)
}

func (t *SourceTable) Column(name string) (*frame.Series, error) { return t.column(t, name) }

func (t *SourceTable) Columns() ([]string, error) {
	ft, err := t.Evaluate()
	if err != nil {
		return nil, err
	}
	return ft.Columns()
}

func (t *SourceTable) LocalColumns() ([]string, error) {
	ft, err := t.Evaluate()
	if err != nil {
		return nil, err
	}
	return ft.LocalColumns()
}

func (t *SourceTable) Index() ([]any, error) {
	ft, err := t.Evaluate()
	if err != nil {
		return nil, err
	}
	return ft.Index()
}

func (t *SourceTable) Len() (int, error) {
	ft, err := t.Evaluate()
	if err != nil {
		return 0, err
	}
	return ft.Len()
}

// callTable resolves deps and invokes a table function under the cycle guard.
func (s *Session) callTable(name string, fn TableFunc, deps []string) (*frame.Frame, error) {
	release, err := s.enter("table:" + name)
	if err != nil {
		return nil, err
	}
	defer release()

	resolved, err := s.Resolve(deps)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", name, err)
	}
	df, err := fn(resolved)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", name, err)
	}
	if df == nil {
		return nil, &TypeMismatchError{Kind: "table result", Name: name, Value: df}
	}
	return df, nil
}

// mergeNames returns a followed by the names of b not in a.
func mergeNames(a, b []string) []string {
	out := slices.Clone(a)
	for _, name := range b {
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}
