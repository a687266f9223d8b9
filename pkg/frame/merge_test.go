package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func households(t *testing.T) *Frame {
	t.Helper()
	f, err := FromColumns([]any{1, 2, 3}, []string{"income"}, map[string][]any{
		"income": {100, 200, 300},
	})
	require.NoError(t, err)
	return f
}

func persons(t *testing.T) *Frame {
	t.Helper()
	f, err := FromColumns([]any{"p1", "p2", "p3", "p4"}, []string{"household_id", "age"}, map[string][]any{
		"household_id": {2, 1, 2, 9},
		"age":          {30, 40, 5, 70},
	})
	require.NoError(t, err)
	return f
}

func TestMerge_IndexOntoColumn(t *testing.T) {
	merged, err := Merge(households(t), persons(t), MergeOptions{
		LeftIndex: true,
		RightOn:   "household_id",
	})
	require.NoError(t, err)

	// left order: household 1 then 2; person p4 has no household.
	assert.Equal(t, []any{"p2", "p1", "p3"}, merged.Index())
	assert.Equal(t, []string{"income", "household_id", "age"}, merged.Columns())

	income, _ := merged.Column("income")
	assert.Equal(t, []any{100, 200, 200}, income.Values())
}

func TestMerge_ColumnOntoIndex(t *testing.T) {
	merged, err := Merge(persons(t), households(t), MergeOptions{
		LeftOn:     "household_id",
		RightIndex: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"p1", "p2", "p3"}, merged.Index())
	income, _ := merged.Column("income")
	assert.Equal(t, []any{200, 100, 200}, income.Values())
}

func TestMerge_ColumnsBothSides(t *testing.T) {
	left, err := FromColumns(nil, []string{"zone", "name"}, map[string][]any{
		"zone": {"a", "b"},
		"name": {"left-a", "left-b"},
	})
	require.NoError(t, err)
	right, err := FromColumns(nil, []string{"zone", "name"}, map[string][]any{
		"zone": {"b", "a", "a"},
		"name": {"r-b", "r-a1", "r-a2"},
	})
	require.NoError(t, err)

	merged, err := Merge(left, right, MergeOptions{LeftOn: "zone", RightOn: "zone"})
	require.NoError(t, err)

	assert.Equal(t, []any{0, 1, 2}, merged.Index())
	assert.Equal(t, []string{"zone", "name_x", "name_y"}, merged.Columns())
	ny, _ := merged.Column("name_y")
	assert.Equal(t, []any{"r-a1", "r-a2", "r-b"}, ny.Values())
}

func TestMerge_BothIndexes(t *testing.T) {
	extra, err := FromColumns([]any{3, 1}, []string{"cars"}, map[string][]any{"cars": {2, 0}})
	require.NoError(t, err)

	merged, err := Merge(households(t), extra, MergeOptions{LeftIndex: true, RightIndex: true})
	require.NoError(t, err)

	assert.Equal(t, []any{1, 3}, merged.Index())
	cars, _ := merged.Column("cars")
	assert.Equal(t, []any{0, 2}, cars.Values())
}

func TestMerge_NilKeysNeverMatch(t *testing.T) {
	left, err := FromColumns(nil, []string{"k"}, map[string][]any{"k": {nil, 1}})
	require.NoError(t, err)
	right, err := FromColumns(nil, []string{"k"}, map[string][]any{"k": {nil, int64(1)}})
	require.NoError(t, err)

	merged, err := Merge(left, right, MergeOptions{LeftOn: "k", RightOn: "k"})
	require.NoError(t, err)
	assert.Equal(t, 1, merged.Len())
}

func TestMerge_FloatKeysMatchIntegerIndex(t *testing.T) {
	// keys read from CSV or Parquet often arrive as floats
	left, err := FromColumns([]any{"p1", "p2", "p3"}, []string{"household_id"}, map[string][]any{
		"household_id": {2.0, 1.0, 1.5},
	})
	require.NoError(t, err)

	merged, err := Merge(left, households(t), MergeOptions{LeftOn: "household_id", RightIndex: true})
	require.NoError(t, err)

	assert.Equal(t, []any{"p1", "p2"}, merged.Index())
	income, _ := merged.Column("income")
	assert.Equal(t, []any{200, 100}, income.Values())
}

func TestMerge_LargeUnsignedKeysDoNotWrap(t *testing.T) {
	left, err := FromColumns(nil, []string{"k"}, map[string][]any{"k": {uint64(math.MaxUint64)}})
	require.NoError(t, err)
	right, err := FromColumns(nil, []string{"k"}, map[string][]any{"k": {-1}})
	require.NoError(t, err)

	merged, err := Merge(left, right, MergeOptions{LeftOn: "k", RightOn: "k"})
	require.NoError(t, err)
	assert.Equal(t, 0, merged.Len())
}

func TestMerge_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts MergeOptions
		err  error
	}{
		{"no left key", MergeOptions{RightOn: "household_id"}, ErrInvalidMerge},
		{"both left keys", MergeOptions{LeftOn: "income", LeftIndex: true, RightOn: "household_id"}, ErrInvalidMerge},
		{"no right key", MergeOptions{LeftIndex: true}, ErrInvalidMerge},
		{"missing column", MergeOptions{LeftIndex: true, RightOn: "nope"}, ErrColumnNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Merge(households(t), persons(t), tt.opts)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
