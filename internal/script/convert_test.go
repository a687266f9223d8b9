package script

import (
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/leapsim/internal/sim"
	"github.com/leapstack-labs/leapsim/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestToStarlark(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantStr string
		wantErr bool
	}{
		{name: "string", input: "hello", wantStr: `"hello"`},
		{name: "int", input: 42, wantStr: "42"},
		{name: "int32", input: int32(7), wantStr: "7"},
		{name: "int64", input: int64(123456789), wantStr: "123456789"},
		{name: "float64", input: 3.14, wantStr: "3.14"},
		{name: "bool", input: true, wantStr: "True"},
		{name: "nil", input: nil, wantStr: "None"},
		{name: "string slice", input: []string{"a", "b"}, wantStr: `["a", "b"]`},
		{name: "int slice", input: []int{2020, 2021}, wantStr: "[2020, 2021]"},
		{name: "any slice", input: []any{"x", 1, true}, wantStr: `["x", 1, True]`},
		{name: "map", input: map[string]any{"key": "value"}, wantStr: `{"key": "value"}`},
		{name: "starlark value", input: starlark.String("kept"), wantStr: `"kept"`},
		{name: "unsupported", input: time.Second, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToStarlark(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStr, got.String())
		})
	}
}

func TestToStarlark_Wrappers(t *testing.T) {
	f, err := frame.FromColumns([]any{1, 2}, []string{"a"}, map[string][]any{"a": {10, 20}})
	require.NoError(t, err)
	s, err := frame.NewSeries("a", nil, []any{1})
	require.NoError(t, err)

	sess := sim.NewSession()
	require.NoError(t, sess.AddTable("t", f.Copy()))
	tbl, err := sess.Table("t")
	require.NoError(t, err)

	v, err := ToStarlark(f)
	require.NoError(t, err)
	assert.Equal(t, "frame", v.Type())

	v, err = ToStarlark(s)
	require.NoError(t, err)
	assert.Equal(t, "series", v.Type())

	v, err = ToStarlark(tbl)
	require.NoError(t, err)
	assert.Equal(t, "table", v.Type())
	assert.Equal(t, "<table t>", v.String())
}

func TestToGo(t *testing.T) {
	list := starlark.NewList([]starlark.Value{starlark.MakeInt(1), starlark.String("b")})
	dict := starlark.NewDict(1)
	require.NoError(t, dict.SetKey(starlark.String("k"), starlark.Float(1.5)))

	tests := []struct {
		name    string
		input   starlark.Value
		want    any
		wantErr bool
	}{
		{name: "none", input: starlark.None, want: nil},
		{name: "string", input: starlark.String("x"), want: "x"},
		{name: "int", input: starlark.MakeInt(3), want: int64(3)},
		{name: "float", input: starlark.Float(2.5), want: 2.5},
		{name: "bool", input: starlark.False, want: false},
		{name: "list", input: list, want: []any{int64(1), "b"}},
		{name: "tuple", input: starlark.Tuple{starlark.True}, want: []any{true}},
		{name: "empty list", input: starlark.NewList(nil), want: []any{}},
		{name: "dict", input: dict, want: map[string]any{"k": 1.5}},
		{name: "set", input: starlark.NewSet(0), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToGo(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToGo_FrameIsCopied(t *testing.T) {
	f, err := frame.FromColumns(nil, []string{"a"}, map[string][]any{"a": {1, 2}})
	require.NoError(t, err)
	fv := newFrameValue(f)

	got, err := ToGo(fv)
	require.NoError(t, err)
	out, ok := got.(*frame.Frame)
	require.True(t, ok)
	assert.True(t, out.Equal(f))

	require.NoError(t, out.SetValues("a", []any{9, 9}))
	col, err := f.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, col.Values())
}

func TestToGo_CallablePassesThrough(t *testing.T) {
	b := starlark.NewBuiltin("noop", func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		return starlark.None, nil
	})
	got, err := ToGo(b)
	require.NoError(t, err)
	assert.Same(t, b, got)
}

func TestThreadPool_GetPut(t *testing.T) {
	setups := 0
	pool := NewThreadPool(2, func(*starlark.Thread) { setups++ })

	thread := pool.Get("first")
	require.NotNil(t, thread)
	assert.Equal(t, "first", thread.Name)
	assert.Equal(t, 1, setups)

	pool.Put(thread)
	assert.Equal(t, 1, pool.Size())

	reused := pool.Get("second")
	assert.Same(t, thread, reused)
	assert.Equal(t, "second", reused.Name)
	assert.Equal(t, 1, setups, "reused threads are not set up again")

	threads := []*starlark.Thread{pool.Get("a"), pool.Get("b"), pool.Get("c")}
	for _, th := range threads {
		pool.Put(th)
	}
	assert.Equal(t, 2, pool.Size(), "pool keeps at most maxSize threads")
}

func TestThreadPool_Concurrent(t *testing.T) {
	pool := NewThreadPool(10, nil)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			thread := pool.Get("worker")
			pool.Put(thread)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, pool.Size(), 10)
}
