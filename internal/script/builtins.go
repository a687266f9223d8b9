package script

import (
	"fmt"

	"github.com/leapstack-labs/leapsim/internal/sim"
	"github.com/leapstack-labs/leapsim/pkg/frame"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

type builtinFunc = func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

// builtins returns the predeclared globals available to every script.
func (l *Loader) builtins() starlark.StringDict {
	funcs := map[string]builtinFunc{
		"table":          l.builtinTable,
		"table_source":   l.builtinTableSource,
		"column":         l.builtinColumn,
		"injectable":     l.builtinInjectable,
		"model":          l.builtinModel,
		"broadcast":      l.builtinBroadcast,
		"frame":          builtinFrame,
		"series":         builtinSeries,
		"merge_tables":   l.builtinMergeTables,
		"get_table":      l.builtinGetTable,
		"get_injectable": l.builtinGetInjectable,
		"partial_update": l.builtinPartialUpdate,
		"sim_error":      builtinSimError,
	}

	globals := make(starlark.StringDict, len(funcs)+1)
	for name, fn := range funcs {
		globals[name] = starlark.NewBuiltin(name, fn)
	}
	globals["struct"] = starlark.NewBuiltin("struct", starlarkstruct.Make)
	return globals
}

// depsFor returns the explicit deps if given, otherwise fn's parameter names.
func depsFor(fn starlark.Callable, deps starlark.Value) ([]string, error) {
	if deps != nil && deps != starlark.None {
		return stringList(deps)
	}
	return paramNames(fn)
}

func (l *Loader) builtinTable(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var value, deps starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "value", &value, "deps?", &deps); err != nil {
		return nil, err
	}

	if fn, ok := value.(starlark.Callable); ok {
		names, err := depsFor(fn, deps)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", b.Name(), name, err)
		}
		return starlark.None, l.sess.AddTable(name, l.tableFunc(fn, names), names...)
	}

	f, err := toFrame(value)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", b.Name(), name, err)
	}
	return starlark.None, l.sess.AddTable(name, f)
}

func (l *Loader) builtinTableSource(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var fn starlark.Callable
	var deps starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "fn", &fn, "deps?", &deps); err != nil {
		return nil, err
	}
	names, err := depsFor(fn, deps)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", b.Name(), name, err)
	}
	return starlark.None, l.sess.AddTableSource(name, l.tableFunc(fn, names), names...)
}

func (l *Loader) builtinColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var table, name string
	var value, deps starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "table", &table, "name", &name, "value", &value, "deps?", &deps); err != nil {
		return nil, err
	}

	if fn, ok := value.(starlark.Callable); ok {
		names, err := depsFor(fn, deps)
		if err != nil {
			return nil, fmt.Errorf("%s %s.%s: %w", b.Name(), table, name, err)
		}
		return starlark.None, l.sess.AddColumn(table, name, l.columnFunc(name, fn, names), names...)
	}

	s, err := toSeries(name, value)
	if err != nil {
		return nil, fmt.Errorf("%s %s.%s: %w", b.Name(), table, name, err)
	}
	return starlark.None, l.sess.AddColumn(table, name, s)
}

func (l *Loader) builtinInjectable(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var value, deps starlark.Value
	autocall := true
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name, "value", &value, "autocall?", &autocall, "deps?", &deps); err != nil {
		return nil, err
	}

	if fn, ok := value.(starlark.Callable); ok && autocall {
		names, err := depsFor(fn, deps)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", b.Name(), name, err)
		}
		return starlark.None, l.sess.AddInjectable(name, l.injectableFunc(fn, names), true, names...)
	}

	v, err := ToGo(value)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", b.Name(), name, err)
	}
	return starlark.None, l.sess.AddInjectable(name, v, false)
}

func (l *Loader) builtinModel(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var fn starlark.Callable
	var deps starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "fn", &fn, "deps?", &deps); err != nil {
		return nil, err
	}
	names, err := depsFor(fn, deps)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", b.Name(), name, err)
	}
	return starlark.None, l.sess.AddModel(name, l.modelFunc(fn, names), names...)
}

func (l *Loader) builtinBroadcast(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var bc sim.Broadcast
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"cast", &bc.Cast, "onto", &bc.Onto,
		"cast_on?", &bc.CastOn, "onto_on?", &bc.OntoOn,
		"cast_index?", &bc.CastIndex, "onto_index?", &bc.OntoIndex); err != nil {
		return nil, err
	}
	return starlark.None, l.sess.AddBroadcast(bc)
}

func builtinFrame(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data *starlark.Dict
	var index starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data?", &data, "index?", &index); err != nil {
		return nil, err
	}
	if data == nil {
		data = starlark.NewDict(0)
	}

	var idx []any
	if index != nil && index != starlark.None {
		var err error
		if idx, err = listToGo(index); err != nil {
			return nil, fmt.Errorf("%s: index: %w", b.Name(), err)
		}
	}

	f, err := frameFromDict(data, idx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return newFrameValue(f), nil
}

func builtinSeries(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var values, index starlark.Value
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "values", &values, "index?", &index, "name?", &name); err != nil {
		return nil, err
	}

	vals, err := listToGo(values)
	if err != nil {
		return nil, fmt.Errorf("%s: values: %w", b.Name(), err)
	}
	var idx []any
	if index != nil && index != starlark.None {
		if idx, err = listToGo(index); err != nil {
			return nil, fmt.Errorf("%s: index: %w", b.Name(), err)
		}
	}

	s, err := frame.NewSeries(name, idx, vals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return &SeriesValue{series: s}, nil
}

func (l *Loader) builtinMergeTables(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var target string
	var tables *starlark.List
	var columns starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "target", &target, "tables", &tables, "columns?", &columns); err != nil {
		return nil, err
	}

	participants := make([]sim.Table, 0, tables.Len())
	for i := 0; i < tables.Len(); i++ {
		switch v := tables.Index(i).(type) {
		case *TableValue:
			participants = append(participants, v.table)
		case starlark.String:
			t, err := l.sess.Table(string(v))
			if err != nil {
				return nil, err
			}
			participants = append(participants, t)
		default:
			return nil, fmt.Errorf("%s: tables[%d]: got %s, want table or string", b.Name(), i, v.Type())
		}
	}

	cols, err := stringList(columns)
	if err != nil {
		return nil, fmt.Errorf("%s: columns: %w", b.Name(), err)
	}

	f, err := l.sess.MergeTables(target, participants, cols...)
	if err != nil {
		return nil, err
	}
	return newFrameValue(f), nil
}

func (l *Loader) builtinGetTable(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	t, err := l.sess.Table(name)
	if err != nil {
		return nil, err
	}
	return &TableValue{table: t}, nil
}

func (l *Loader) builtinGetInjectable(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	v, err := l.sess.InjectableValue(name)
	if err != nil {
		return nil, err
	}
	return ToStarlark(v)
}

func (l *Loader) builtinPartialUpdate(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var update starlark.Value
	var table, column string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "update", &update, "table", &table, "column", &column); err != nil {
		return nil, err
	}
	if update == starlark.None {
		return starlark.None, nil
	}
	s, ok := update.(*SeriesValue)
	if !ok {
		return nil, fmt.Errorf("%s: got %s, want series", b.Name(), update.Type())
	}
	return starlark.None, l.sess.PartialUpdate(s.series, table, column)
}

func builtinSimError(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var msg string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "msg", &msg); err != nil {
		return nil, err
	}
	return nil, sim.NewSimulationError("%s", msg)
}
