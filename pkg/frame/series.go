// Package frame provides the in-memory tabular engine used by leapsim.
//
// A Frame is an ordered set of named columns sharing one row index. A Series
// is a single named column with its own index. Values are stored as `any`;
// index labels and join keys must be comparable (ints, floats, strings, bools).
package frame

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// Errors returned by frame operations.
var (
	ErrColumnNotFound = errors.New("column not found")
	ErrLengthMismatch = errors.New("length mismatch")
	ErrLabelNotFound  = errors.New("index label not found")
)

// Series is a named column of values aligned to an index.
type Series struct {
	name   string
	index  []any
	values []any
}

// NewSeries creates a series. A nil index defaults to positions 0..n-1.
func NewSeries(name string, index []any, values []any) (*Series, error) {
	if index == nil {
		index = RangeIndex(len(values))
	}
	if len(index) != len(values) {
		return nil, fmt.Errorf("series %q: %w: index has %d labels, values has %d",
			name, ErrLengthMismatch, len(index), len(values))
	}
	return &Series{
		name:   name,
		index:  cloneSlice(index),
		values: cloneSlice(values),
	}, nil
}

// RangeIndex returns the labels 0..n-1.
func RangeIndex(n int) []any {
	idx := make([]any, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Name returns the series name.
func (s *Series) Name() string { return s.name }

// Index returns the index labels. The slice must not be modified.
func (s *Series) Index() []any { return s.index }

// Values returns the values. The slice must not be modified.
func (s *Series) Values() []any { return s.values }

// Len returns the number of values.
func (s *Series) Len() int { return len(s.values) }

// At returns the value at position i.
func (s *Series) At(i int) any { return s.values[i] }

// Get returns the first value stored under label.
func (s *Series) Get(label any) (any, bool) {
	k := normalizeKey(label)
	for i, l := range s.index {
		if normalizeKey(l) == k {
			return s.values[i], true
		}
	}
	return nil, false
}

// Rename returns a copy of the series under a new name.
func (s *Series) Rename(name string) *Series {
	c := s.Copy()
	c.name = name
	return c
}

// Copy returns a deep copy of the series' slices.
func (s *Series) Copy() *Series {
	return &Series{
		name:   s.name,
		index:  cloneSlice(s.index),
		values: cloneSlice(s.values),
	}
}

// Update overwrites values in place at the labels of update.
// Every label of update must exist in s.
func (s *Series) Update(update *Series) error {
	pos := positions(s.index)
	for i, label := range update.index {
		ps, ok := pos[normalizeKey(label)]
		if !ok {
			return fmt.Errorf("series %q: %w: %v", s.name, ErrLabelNotFound, label)
		}
		for _, p := range ps {
			s.values[p] = update.values[i]
		}
	}
	return nil
}

// Align returns the values of s reordered to match index. Labels missing
// from s produce nil.
func (s *Series) Align(index []any) []any {
	if sameLabels(s.index, index) {
		return cloneSlice(s.values)
	}
	pos := positions(s.index)
	out := make([]any, len(index))
	for i, label := range index {
		if ps, ok := pos[normalizeKey(label)]; ok {
			out[i] = s.values[ps[0]]
		}
	}
	return out
}

// Equal reports whether two series have the same name, index and values.
func (s *Series) Equal(o *Series) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.name == o.name && equalValues(s.index, o.index) && equalValues(s.values, o.values)
}

func cloneSlice(in []any) []any {
	if in == nil {
		return nil
	}
	out := make([]any, len(in))
	copy(out, in)
	return out
}

func positions(index []any) map[any][]int {
	pos := make(map[any][]int, len(index))
	for i, label := range index {
		k := normalizeKey(label)
		pos[k] = append(pos[k], i)
	}
	return pos
}

func sameLabels(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if normalizeKey(a[i]) != normalizeKey(b[i]) {
			return false
		}
	}
	return true
}

func equalValues(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if normalizeNumber(a[i]) != normalizeNumber(b[i]) && !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// normalizeNumber maps integers of every Go type onto int64 and float32 onto
// float64. Unsigned values above math.MaxInt64 stay uint64 so they never
// collide with negative labels.
func normalizeNumber(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		if uint64(x) > math.MaxInt64 {
			return uint64(x)
		}
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return x
		}
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	}
	if v != nil && !reflect.TypeOf(v).Comparable() {
		return fmt.Sprintf("%v", v)
	}
	return v
}

// normalizeKey maps numerically equal labels onto one comparable key, so
// 1, int32(1), int64(1) and 1.0 all join together. Floats with a fractional
// part, or outside the int64 range, keep their float64 key.
func normalizeKey(v any) any {
	k := normalizeNumber(v)
	if f, ok := k.(float64); ok && f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return k
}
