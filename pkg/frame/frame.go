package frame

import (
	"fmt"
	"slices"
)

// Frame is an ordered collection of equally long columns sharing one index.
type Frame struct {
	index   []any
	names   []string
	columns map[string][]any
}

// New creates a frame with the given index and columns. Series whose index
// differs from the frame index are aligned by label.
func New(index []any, cols ...*Series) (*Frame, error) {
	f := &Frame{
		index:   cloneSlice(index),
		columns: make(map[string][]any, len(cols)),
	}
	if f.index == nil {
		f.index = []any{}
	}
	for _, s := range cols {
		if err := f.Set(s.Name(), s); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FromColumns creates a frame from raw column slices in the given order.
// A nil index defaults to positions 0..n-1.
func FromColumns(index []any, names []string, data map[string][]any) (*Frame, error) {
	n := len(index)
	if index == nil && len(names) > 0 {
		n = len(data[names[0]])
		index = RangeIndex(n)
	}
	f := &Frame{
		index:   cloneSlice(index),
		columns: make(map[string][]any, len(names)),
	}
	if f.index == nil {
		f.index = []any{}
	}
	for _, name := range names {
		if err := f.SetValues(name, data[name]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Index returns the row labels. The slice must not be modified.
func (f *Frame) Index() []any { return f.index }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.index) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string { return slices.Clone(f.names) }

// Has reports whether the frame has a column.
func (f *Frame) Has(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Column returns a copy of one column as a series.
func (f *Frame) Column(name string) (*Series, error) {
	vals, ok := f.columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return &Series{name: name, index: cloneSlice(f.index), values: cloneSlice(vals)}, nil
}

// Set adds or replaces a column, aligning s to the frame index by label.
func (f *Frame) Set(name string, s *Series) error {
	return f.setOwned(name, s.Align(f.index))
}

// SetValues adds or replaces a column positionally.
func (f *Frame) SetValues(name string, values []any) error {
	if len(values) != len(f.index) {
		return fmt.Errorf("column %q: %w: frame has %d rows, got %d values",
			name, ErrLengthMismatch, len(f.index), len(values))
	}
	return f.setOwned(name, cloneSlice(values))
}

func (f *Frame) setOwned(name string, values []any) error {
	if _, exists := f.columns[name]; !exists {
		f.names = append(f.names, name)
	}
	f.columns[name] = values
	return nil
}

// Drop removes a column if present.
func (f *Frame) Drop(name string) {
	if _, ok := f.columns[name]; !ok {
		return
	}
	delete(f.columns, name)
	f.names = slices.DeleteFunc(f.names, func(n string) bool { return n == name })
}

// Select returns a copy holding only the named columns, in the order given.
// Selecting no columns yields an index-only frame.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{
		index:   cloneSlice(f.index),
		columns: make(map[string][]any, len(names)),
	}
	for _, name := range names {
		vals, ok := f.columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
		}
		if _, dup := out.columns[name]; dup {
			continue
		}
		out.names = append(out.names, name)
		out.columns[name] = cloneSlice(vals)
	}
	return out, nil
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	out, _ := f.Select(f.names...)
	return out
}

// Row returns the values of row i keyed by column name.
func (f *Frame) Row(i int) map[string]any {
	row := make(map[string]any, len(f.names))
	for _, name := range f.names {
		row[name] = f.columns[name][i]
	}
	return row
}

// Equal reports whether both frames have the same index, column order and values.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if !equalValues(f.index, o.index) || !slices.Equal(f.names, o.names) {
		return false
	}
	for _, name := range f.names {
		if !equalValues(f.columns[name], o.columns[name]) {
			return false
		}
	}
	return true
}
