package script

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapsim/internal/sim"
	"github.com/leapstack-labs/leapsim/pkg/frame"
	"go.starlark.net/starlark"
)

type method = func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

// bindAttr looks up a method and binds it to recv.
func bindAttr(methods map[string]method, recv starlark.Value, name string) (starlark.Value, error) {
	fn, ok := methods[name]
	if !ok {
		return nil, nil
	}
	return starlark.NewBuiltin(name, fn).BindReceiver(recv), nil
}

func attrNames(methods map[string]method, extra ...string) []string {
	names := make([]string, 0, len(methods)+len(extra))
	for name := range methods {
		names = append(names, name)
	}
	names = append(names, extra...)
	sort.Strings(names)
	return names
}

// variadicStrings reads positional string arguments.
func variadicStrings(b *starlark.Builtin, args starlark.Tuple) ([]string, error) {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		s, ok := starlark.AsString(arg)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d: got %s, want string", b.Name(), i+1, arg.Type())
		}
		out = append(out, s)
	}
	return out, nil
}

func anyList(values []any) *starlark.List {
	list := make([]starlark.Value, len(values))
	for i, v := range values {
		list[i] = cellToStarlark(v)
	}
	return starlark.NewList(list)
}

func stringsList(values []string) *starlark.List {
	list := make([]starlark.Value, len(values))
	for i, v := range values {
		list[i] = starlark.String(v)
	}
	return starlark.NewList(list)
}

// TableValue exposes a registered table to scripts.
type TableValue struct {
	table sim.Table
}

var (
	_ starlark.HasAttrs = (*TableValue)(nil)
	_ starlark.HasAttrs = (*FrameValue)(nil)
	_ starlark.Mapping  = (*FrameValue)(nil)
	_ starlark.HasAttrs = (*SeriesValue)(nil)
	_ starlark.Mapping  = (*SeriesValue)(nil)
)

// Table returns the wrapped table.
func (v *TableValue) Table() sim.Table { return v.table }

func (v *TableValue) String() string        { return fmt.Sprintf("<table %s>", v.table.Name()) }
func (v *TableValue) Type() string          { return "table" }
func (v *TableValue) Freeze()               {}
func (v *TableValue) Truth() starlark.Bool  { return starlark.True }
func (v *TableValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: table") }

var tableMethods = map[string]method{
	"to_frame":      tableToFrame,
	"get_column":    tableGetColumn,
	"update_col":    tableUpdateCol,
	"columns":       tableColumns,
	"local_columns": tableLocalColumns,
	"index":         tableIndex,
	"length":        tableLength,
}

func (v *TableValue) Attr(name string) (starlark.Value, error) {
	if name == "name" {
		return starlark.String(v.table.Name()), nil
	}
	return bindAttr(tableMethods, v, name)
}

func (v *TableValue) AttrNames() []string { return attrNames(tableMethods, "name") }

// tableToFrame accepts columns positionally, to_frame("a", "b"), or as a
// list keyword, to_frame(columns = ["a", "b"]).
func tableToFrame(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	columns, err := variadicStrings(b, args)
	if err != nil {
		return nil, err
	}
	for _, kv := range kwargs {
		if key, _ := starlark.AsString(kv[0]); key != "columns" {
			return nil, fmt.Errorf("%s: unexpected keyword argument %s", b.Name(), kv[0])
		}
		if len(args) > 0 {
			return nil, fmt.Errorf("%s: columns given both positionally and by keyword", b.Name())
		}
		if name, ok := starlark.AsString(kv[1]); ok {
			columns = []string{name}
			continue
		}
		if columns, err = stringList(kv[1]); err != nil {
			return nil, fmt.Errorf("%s: columns: %w", b.Name(), err)
		}
	}
	t := b.Receiver().(*TableValue).table
	f, err := t.ToFrame(columns...)
	if err != nil {
		return nil, err
	}
	return newFrameValue(f), nil
}

func tableGetColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	s, err := b.Receiver().(*TableValue).table.Column(name)
	if err != nil {
		return nil, err
	}
	return &SeriesValue{series: s}, nil
}

func tableUpdateCol(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var values starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "values", &values); err != nil {
		return nil, err
	}
	t := b.Receiver().(*TableValue).table
	ft, ok := t.(*sim.FrameTable)
	if !ok {
		return nil, fmt.Errorf("%s: table %s is computed and cannot be updated", b.Name(), t.Name())
	}

	switch val := values.(type) {
	case *SeriesValue:
		err := ft.UpdateCol(name, val.series)
		return starlark.None, err
	default:
		items, err := listToGo(values)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return starlark.None, ft.SetValues(name, items)
	}
}

func tableColumns(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	cols, err := b.Receiver().(*TableValue).table.Columns()
	if err != nil {
		return nil, err
	}
	return stringsList(cols), nil
}

func tableLocalColumns(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	cols, err := b.Receiver().(*TableValue).table.LocalColumns()
	if err != nil {
		return nil, err
	}
	return stringsList(cols), nil
}

func tableIndex(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	idx, err := b.Receiver().(*TableValue).table.Index()
	if err != nil {
		return nil, err
	}
	return anyList(idx), nil
}

func tableLength(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	n, err := b.Receiver().(*TableValue).table.Len()
	if err != nil {
		return nil, err
	}
	return starlark.MakeInt(n), nil
}

// FrameValue wraps a frame. Frames created at module level are frozen with
// the module and reject set_column.
type FrameValue struct {
	frame  *frame.Frame
	frozen bool
}

func newFrameValue(f *frame.Frame) *FrameValue { return &FrameValue{frame: f} }

// Frame returns the wrapped frame.
func (v *FrameValue) Frame() *frame.Frame { return v.frame }

func (v *FrameValue) String() string {
	return fmt.Sprintf("<frame %d rows x %d columns>", v.frame.Len(), len(v.frame.Columns()))
}
func (v *FrameValue) Type() string          { return "frame" }
func (v *FrameValue) Freeze()               { v.frozen = true }
func (v *FrameValue) Truth() starlark.Bool  { return v.frame.Len() > 0 }
func (v *FrameValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: frame") }

// Get implements f["column"].
func (v *FrameValue) Get(key starlark.Value) (starlark.Value, bool, error) {
	name, ok := starlark.AsString(key)
	if !ok {
		return nil, false, fmt.Errorf("frame key must be string, got %s", key.Type())
	}
	if !v.frame.Has(name) {
		return nil, false, nil
	}
	s, err := v.frame.Column(name)
	if err != nil {
		return nil, false, err
	}
	return &SeriesValue{series: s}, true, nil
}

var frameMethods = map[string]method{
	"columns":    frameColumns,
	"index":      frameIndex,
	"length":     frameLength,
	"get_column": frameGetColumn,
	"set_column": frameSetColumn,
	"select":     frameSelect,
	"copy":       frameCopy,
	"row":        frameRow,
	"to_dict":    frameToDict,
}

func (v *FrameValue) Attr(name string) (starlark.Value, error) { return bindAttr(frameMethods, v, name) }
func (v *FrameValue) AttrNames() []string                      { return attrNames(frameMethods) }

func frameColumns(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return stringsList(b.Receiver().(*FrameValue).frame.Columns()), nil
}

func frameIndex(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return anyList(b.Receiver().(*FrameValue).frame.Index()), nil
}

func frameLength(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return starlark.MakeInt(b.Receiver().(*FrameValue).frame.Len()), nil
}

func frameGetColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	s, err := b.Receiver().(*FrameValue).frame.Column(name)
	if err != nil {
		return nil, err
	}
	return &SeriesValue{series: s}, nil
}

func frameSetColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var values starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "values", &values); err != nil {
		return nil, err
	}
	v := b.Receiver().(*FrameValue)
	if v.frozen {
		return nil, fmt.Errorf("%s: cannot modify frozen frame", b.Name())
	}
	if s, ok := values.(*SeriesValue); ok {
		return starlark.None, v.frame.Set(name, s.series)
	}
	items, err := listToGo(values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, v.frame.SetValues(name, items)
}

func frameSelect(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	names, err := variadicStrings(b, args)
	if err != nil {
		return nil, err
	}
	f, err := b.Receiver().(*FrameValue).frame.Select(names...)
	if err != nil {
		return nil, err
	}
	return newFrameValue(f), nil
}

func frameCopy(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return newFrameValue(b.Receiver().(*FrameValue).frame.Copy()), nil
}

func frameRow(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var i int
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "i", &i); err != nil {
		return nil, err
	}
	f := b.Receiver().(*FrameValue).frame
	if i < 0 || i >= f.Len() {
		return nil, fmt.Errorf("%s: row %d out of range (frame has %d rows)", b.Name(), i, f.Len())
	}
	row := f.Row(i)
	dict := starlark.NewDict(len(row))
	for _, name := range f.Columns() {
		if err := dict.SetKey(starlark.String(name), cellToStarlark(row[name])); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

func frameToDict(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	f := b.Receiver().(*FrameValue).frame
	dict := starlark.NewDict(len(f.Columns()))
	for _, name := range f.Columns() {
		s, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		if err := dict.SetKey(starlark.String(name), anyList(s.Values())); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

// SeriesValue wraps a series. Series are immutable from scripts.
type SeriesValue struct {
	series *frame.Series
}

// Series returns the wrapped series.
func (v *SeriesValue) Series() *frame.Series { return v.series }

func (v *SeriesValue) String() string {
	return fmt.Sprintf("<series %s, %d values>", v.series.Name(), v.series.Len())
}
func (v *SeriesValue) Type() string          { return "series" }
func (v *SeriesValue) Freeze()               {}
func (v *SeriesValue) Truth() starlark.Bool  { return v.series.Len() > 0 }
func (v *SeriesValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: series") }

// Get implements s[label].
func (v *SeriesValue) Get(key starlark.Value) (starlark.Value, bool, error) {
	label, err := ToGo(key)
	if err != nil {
		return nil, false, err
	}
	val, ok := v.series.Get(label)
	if !ok {
		return nil, false, nil
	}
	return cellToStarlark(val), true, nil
}

var seriesMethods = map[string]method{
	"values": seriesValues,
	"index":  seriesIndex,
	"length": seriesLength,
	"get":    seriesGet,
	"rename": seriesRename,
}

func (v *SeriesValue) Attr(name string) (starlark.Value, error) {
	if name == "name" {
		return starlark.String(v.series.Name()), nil
	}
	return bindAttr(seriesMethods, v, name)
}

func (v *SeriesValue) AttrNames() []string { return attrNames(seriesMethods, "name") }

func seriesValues(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return anyList(b.Receiver().(*SeriesValue).series.Values()), nil
}

func seriesIndex(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return anyList(b.Receiver().(*SeriesValue).series.Index()), nil
}

func seriesLength(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return starlark.MakeInt(b.Receiver().(*SeriesValue).series.Len()), nil
}

func seriesGet(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label starlark.Value
	var def starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "label", &label, "default?", &def); err != nil {
		return nil, err
	}
	val, found, err := b.Receiver().(*SeriesValue).Get(label)
	if err != nil {
		return nil, err
	}
	if !found {
		return def, nil
	}
	return val, nil
}

func seriesRename(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	return &SeriesValue{series: b.Receiver().(*SeriesValue).series.Rename(name)}, nil
}
