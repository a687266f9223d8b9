package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSeries(t *testing.T, name string, index, values []any) *Series {
	t.Helper()
	s, err := NewSeries(name, index, values)
	require.NoError(t, err)
	return s
}

func TestNewSeries(t *testing.T) {
	tests := []struct {
		name      string
		index     []any
		values    []any
		wantIndex []any
		wantErr   bool
	}{
		{
			name:      "explicit index",
			index:     []any{"a", "b"},
			values:    []any{1, 2},
			wantIndex: []any{"a", "b"},
		},
		{
			name:      "default range index",
			values:    []any{1, 2, 3},
			wantIndex: []any{0, 1, 2},
		},
		{
			name:    "length mismatch",
			index:   []any{1},
			values:  []any{1, 2},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSeries("x", tt.index, tt.values)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrLengthMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIndex, s.Index())
			assert.Equal(t, tt.values, s.Values())
			assert.Equal(t, len(tt.values), s.Len())
		})
	}
}

func TestSeries_GetNormalizesIntegerLabels(t *testing.T) {
	s := mustSeries(t, "x", []any{int64(10), int64(20)}, []any{"a", "b"})

	v, ok := s.Get(20)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = s.Get(30)
	assert.False(t, ok)
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{"int widths", int32(7), uint16(7), true},
		{"integral float matches int", 1.0, 1, true},
		{"float32 matches int64", float32(3), int64(3), true},
		{"fractional float", 1.5, 1, false},
		{"huge uint64 is not negative", uint64(math.MaxUint64), -1, false},
		{"huge uint is not min int", uint(math.MaxUint), int64(math.MinInt64), false},
		{"uint64 in range", uint64(42), 42, true},
		{"string is not int", "1", 1, false},
		{"bytes match string", []byte("z1"), "z1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, normalizeKey(tt.a) == normalizeKey(tt.b))
		})
	}
}

func TestSeries_Update(t *testing.T) {
	s := mustSeries(t, "x", []any{1, 2, 3}, []any{10, 20, 30})

	require.NoError(t, s.Update(mustSeries(t, "x", []any{3, 1}, []any{300, 100})))
	assert.Equal(t, []any{100, 20, 300}, s.Values())

	err := s.Update(mustSeries(t, "x", []any{9}, []any{0}))
	assert.ErrorIs(t, err, ErrLabelNotFound)
}

func TestSeries_Align(t *testing.T) {
	s := mustSeries(t, "x", []any{"a", "b", "c"}, []any{1, 2, 3})

	assert.Equal(t, []any{3, nil, 1}, s.Align([]any{"c", "z", "a"}))
	assert.Equal(t, []any{1, 2, 3}, s.Align([]any{"a", "b", "c"}))
}

func TestFrame_SetAlignsByLabel(t *testing.T) {
	f, err := New([]any{1, 2, 3})
	require.NoError(t, err)

	require.NoError(t, f.Set("income", mustSeries(t, "income", []any{3, 1, 2}, []any{30, 10, 20})))

	col, err := f.Column("income")
	require.NoError(t, err)
	assert.Equal(t, []any{10, 20, 30}, col.Values())
	assert.Equal(t, []any{1, 2, 3}, col.Index())
}

func TestFrame_SetValues(t *testing.T) {
	f, err := New([]any{1, 2})
	require.NoError(t, err)

	require.NoError(t, f.SetValues("a", []any{"x", "y"}))
	require.NoError(t, f.SetValues("b", []any{true, false}))
	require.NoError(t, f.SetValues("a", []any{"p", "q"}))

	assert.Equal(t, []string{"a", "b"}, f.Columns())
	assert.ErrorIs(t, f.SetValues("c", []any{1}), ErrLengthMismatch)
}

func TestFrame_FromColumns(t *testing.T) {
	f, err := FromColumns(nil, []string{"a", "b"}, map[string][]any{
		"a": {1, 2, 3},
		"b": {"x", "y", "z"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []any{0, 1, 2}, f.Index())
	assert.Equal(t, map[string]any{"a": 2, "b": "y"}, f.Row(1))
}

func TestFrame_SelectCopiesData(t *testing.T) {
	f, err := FromColumns([]any{"r1", "r2"}, []string{"a", "b", "c"}, map[string][]any{
		"a": {1, 2},
		"b": {3, 4},
		"c": {5, 6},
	})
	require.NoError(t, err)

	sel, err := f.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.Columns())

	require.NoError(t, sel.SetValues("a", []any{100, 200}))
	orig, _ := f.Column("a")
	assert.Equal(t, []any{1, 2}, orig.Values(), "select must not alias source storage")

	empty, err := f.Select()
	require.NoError(t, err)
	assert.Empty(t, empty.Columns())
	assert.Equal(t, 2, empty.Len())

	_, err = f.Select("missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestFrame_DropAndEqual(t *testing.T) {
	f, err := FromColumns([]any{1}, []string{"a", "b"}, map[string][]any{"a": {1}, "b": {2}})
	require.NoError(t, err)

	c := f.Copy()
	assert.True(t, f.Equal(c))

	c.Drop("a")
	c.Drop("nope")
	assert.Equal(t, []string{"b"}, c.Columns())
	assert.False(t, f.Equal(c))
}
