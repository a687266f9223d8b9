package script

import (
	"fmt"

	"github.com/leapstack-labs/leapsim/internal/sim"
	"github.com/leapstack-labs/leapsim/pkg/frame"
	"go.starlark.net/starlark"
)

// ToStarlark converts a Go value to a Starlark value.
// Tables, frames and series are wrapped; Starlark values pass through.
// Supported scalars: string, ints, floats, bool and nil; plus []any, []string,
// []int, []float64 and map[string]any.
func ToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case starlark.Value:
		return val, nil

	case sim.Table:
		return &TableValue{table: val}, nil

	case *frame.Frame:
		return newFrameValue(val), nil

	case *frame.Series:
		return &SeriesValue{series: val}, nil

	case string:
		return starlark.String(val), nil

	case int:
		return starlark.MakeInt(val), nil

	case int32:
		return starlark.MakeInt64(int64(val)), nil

	case int64:
		return starlark.MakeInt64(val), nil

	case uint32:
		return starlark.MakeUint64(uint64(val)), nil

	case uint64:
		return starlark.MakeUint64(val), nil

	case float32:
		return starlark.Float(val), nil

	case float64:
		return starlark.Float(val), nil

	case bool:
		return starlark.Bool(val), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []int:
		list := make([]starlark.Value, len(val))
		for i, n := range val {
			list[i] = starlark.MakeInt(n)
		}
		return starlark.NewList(list), nil

	case []float64:
		list := make([]starlark.Value, len(val))
		for i, f := range val {
			list[i] = starlark.Float(f)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := ToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, v := range val {
			sv, err := ToStarlark(v)
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// cellToStarlark converts a frame cell. Driver types without a Starlark
// counterpart, such as time.Time, are rendered as strings.
func cellToStarlark(v any) starlark.Value {
	sv, err := ToStarlark(v)
	if err != nil {
		return starlark.String(fmt.Sprint(v))
	}
	return sv
}

// ToGo converts a Starlark value back to a Go value.
// Returns: string, int64, float64, bool, []any, map[string]any, nil,
// *frame.Frame, *frame.Series or sim.Table. Callables are returned as is.
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil

	case starlark.String:
		return string(val), nil

	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", val.String())
		}
		return i64, nil

	case starlark.Float:
		return float64(val), nil

	case starlark.Bool:
		return bool(val), nil

	case *FrameValue:
		return val.frame.Copy(), nil

	case *SeriesValue:
		return val.series.Copy(), nil

	case *TableValue:
		return val.table, nil

	case *starlark.List, starlark.Tuple:
		return listToGo(val)

	case *starlark.Dict:
		result := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			result[string(key)] = gv
		}
		return result, nil

	case starlark.Callable:
		return val, nil

	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}

// listToGo converts a list or tuple into a []any.
func listToGo(v starlark.Value) ([]any, error) {
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("got %s, want list", v.Type())
	}
	var out []any
	iter := iterable.Iterate()
	defer iter.Done()

	var item starlark.Value
	for i := 0; iter.Next(&item); i++ {
		gv, err := ToGo(item)
		if err != nil {
			return nil, fmt.Errorf("list index %d: %w", i, err)
		}
		out = append(out, gv)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

// stringList converts a list, tuple or None to a []string.
func stringList(v starlark.Value) ([]string, error) {
	if v == nil || v == starlark.None {
		return nil, nil
	}
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("got %s, want list of strings", v.Type())
	}
	out := []string{}
	iter := iterable.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		s, ok := starlark.AsString(item)
		if !ok {
			return nil, fmt.Errorf("got %s, want string", item.Type())
		}
		out = append(out, s)
	}
	return out, nil
}

// toSeries converts a series or list value into a series. Lists get a
// positional index.
func toSeries(name string, v starlark.Value) (*frame.Series, error) {
	switch val := v.(type) {
	case *SeriesValue:
		return val.series.Rename(name), nil
	case *starlark.List, starlark.Tuple:
		values, err := listToGo(val)
		if err != nil {
			return nil, err
		}
		return frame.NewSeries(name, nil, values)
	}
	return nil, fmt.Errorf("got %s, want series or list", v.Type())
}

// toFrame converts a frame, table or dict value into a frame.
func toFrame(v starlark.Value) (*frame.Frame, error) {
	switch val := v.(type) {
	case *FrameValue:
		return val.frame.Copy(), nil
	case *TableValue:
		return val.table.ToFrame()
	case *starlark.Dict:
		return frameFromDict(val, nil)
	}
	return nil, fmt.Errorf("got %s, want frame", v.Type())
}

// frameFromDict builds a frame from a column -> list dict, keeping the
// dict's insertion order.
func frameFromDict(d *starlark.Dict, index []any) (*frame.Frame, error) {
	names := make([]string, 0, d.Len())
	data := make(map[string][]any, d.Len())
	for _, item := range d.Items() {
		name, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("column name must be string, got %s", item[0].Type())
		}
		values, err := listToGo(item[1])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		names = append(names, name)
		data[name] = values
	}
	return frame.FromColumns(index, names, data)
}
