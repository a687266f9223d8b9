package sim

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapsim/pkg/frame"
)

// ColumnFunc computes a column from its resolved dependencies.
type ColumnFunc func(Deps) (*frame.Series, error)

// Column is a registered extra column. The variants are *SeriesColumn and
// *FuncColumn.
type Column interface {
	Key() ColumnKey
	column()
}

// SeriesColumn wraps pre-built values.
type SeriesColumn struct {
	key    ColumnKey
	series *frame.Series
}

func (c *SeriesColumn) Key() ColumnKey { return c.key }
func (c *SeriesColumn) column()        {}

// Series returns a copy of the wrapped series.
func (c *SeriesColumn) Series() *frame.Series { return c.series.Copy() }

// FuncColumn computes its values on every read.
type FuncColumn struct {
	key  ColumnKey
	fn   ColumnFunc
	deps []string
}

func (c *FuncColumn) Key() ColumnKey { return c.key }
func (c *FuncColumn) column()        {}

// Deps returns the declared dependency names.
func (c *FuncColumn) Deps() []string { return slices.Clone(c.deps) }

// evalColumn returns the current values of a registered column.
func (s *Session) evalColumn(key ColumnKey) (*frame.Series, error) {
	c, ok := s.columns.Get(key)
	if !ok {
		return nil, &NotFoundError{Kind: "column", Name: key.String()}
	}

	switch c := c.(type) {
	case *SeriesColumn:
		return c.Series(), nil
	case *FuncColumn:
		release, err := s.enter("column:" + key.String())
		if err != nil {
			return nil, err
		}
		defer release()

		resolved, err := s.Resolve(c.deps)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", key, err)
		}
		series, err := c.fn(resolved)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", key, err)
		}
		if series == nil {
			return nil, &TypeMismatchError{Kind: "column result", Name: key.String(), Value: series}
		}
		return series, nil
	}
	return nil, &TypeMismatchError{Kind: "column", Name: key.String(), Value: c}
}
