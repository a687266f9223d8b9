package frame

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func mixedFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := FromColumns([]any{1, 2, 3}, []string{"count", "share", "flag", "label"}, map[string][]any{
		"count": {1, nil, int64(3)},
		"share": {1, 0.5, nil},
		"flag":  {true, false, nil},
		"label": {"a", 7, nil},
	})
	require.NoError(t, err)
	return f
}

func TestFrame_ToArrow(t *testing.T) {
	tbl, err := mixedFrame(t).ToArrow(memory.NewGoAllocator())
	require.NoError(t, err)
	defer tbl.Release()

	assert.EqualValues(t, 3, tbl.NumRows())
	require.EqualValues(t, 5, tbl.NumCols())

	schema := tbl.Schema()
	assert.Equal(t, IndexColumn, schema.Field(0).Name)
	assert.Equal(t, arrow.INT64, schema.Field(1).Type.ID())
	assert.Equal(t, arrow.FLOAT64, schema.Field(2).Type.ID())
	assert.Equal(t, arrow.BOOL, schema.Field(3).Type.ID())
	assert.Equal(t, arrow.STRING, schema.Field(4).Type.ID())
}

func TestFrame_WriteParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, mixedFrame(t).WriteParquet(&buf))

	mem := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(buf.Bytes()),
		parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	require.NoError(t, err)
	defer tbl.Release()

	assert.EqualValues(t, 3, tbl.NumRows())
	assert.EqualValues(t, 5, tbl.NumCols())
}

func TestFrame_YAMLSafe(t *testing.T) {
	f, err := FromColumns([]any{10, 20}, []string{"income"}, map[string][]any{"income": {1.5, 2.5}})
	require.NoError(t, err)

	assert.Equal(t, map[string]map[string]any{
		"income": {"10": 1.5, "20": 2.5},
	}, f.YAMLSafe())

	out, err := yaml.Marshal(f)
	require.NoError(t, err)

	var back map[string]map[string]float64
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, 2.5, back["income"]["20"])
}

func TestOrderedYAML(t *testing.T) {
	cfg := map[string]any{
		"zeta":   1,
		"years":  []int{2020},
		"name":   "baseline",
		"alpha":  "x",
		"models": []string{"grow"},
	}

	tests := []struct {
		name  string
		order []string
		want  []string
	}{
		{"explicit order first", []string{"name", "models", "years", "missing"}, []string{"name", "models", "years", "alpha", "zeta"}},
		{"no order sorts", nil, []string{"alpha", "models", "name", "years", "zeta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := OrderedYAML(cfg, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.want, topLevelKeys(out))
		})
	}
}

func TestFrame_WriteYAML(t *testing.T) {
	f, err := FromColumns([]any{1, 2}, []string{"zone_id", "income", "area"}, map[string][]any{
		"zone_id": {"z2", "z1"},
		"income":  {100, 200},
		"area":    {1.5, 4.0},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.WriteYAML(&buf))
	assert.Equal(t, []string{"zone_id", "income", "area"}, topLevelKeys(buf.String()))

	var back map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, 1.5, back["area"]["1"])
	assert.Equal(t, "z2", back["zone_id"]["1"])
}

func topLevelKeys(doc string) []string {
	keys := []string{}
	for _, line := range strings.Split(doc, "\n") {
		if line == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "-") {
			continue
		}
		keys = append(keys, strings.SplitN(line, ":", 2)[0])
	}
	return keys
}
