package frame

import (
	"errors"
	"fmt"
)

// ErrInvalidMerge is returned when merge keys are not fully specified.
var ErrInvalidMerge = errors.New("invalid merge")

// MergeOptions selects the join keys of each side. Each side uses either a
// key column (LeftOn / RightOn) or its row index (LeftIndex / RightIndex).
type MergeOptions struct {
	LeftOn     string
	RightOn    string
	LeftIndex  bool
	RightIndex bool
	// Suffixes disambiguate non-key column names present on both sides.
	// Defaults to "_x" and "_y".
	Suffixes [2]string
}

func (o MergeOptions) validate() error {
	if (o.LeftOn == "") == !o.LeftIndex {
		return fmt.Errorf("%w: left side needs exactly one of a key column or the index", ErrInvalidMerge)
	}
	if (o.RightOn == "") == !o.RightIndex {
		return fmt.Errorf("%w: right side needs exactly one of a key column or the index", ErrInvalidMerge)
	}
	return nil
}

// Merge inner-joins right onto left.
//
// Rows come out in left order, and for each left row its matches in right
// order. The result index is taken from the side that joined on a column
// when the other side joined on its index, from left when both sides used
// the index, and is 0..n-1 when both sides used columns. Rows whose key is
// nil never match.
func Merge(left, right *Frame, opts MergeOptions) (*Frame, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Suffixes == [2]string{} {
		opts.Suffixes = [2]string{"_x", "_y"}
	}

	leftKeys, err := joinKeys(left, opts.LeftOn, opts.LeftIndex)
	if err != nil {
		return nil, fmt.Errorf("left side: %w", err)
	}
	rightKeys, err := joinKeys(right, opts.RightOn, opts.RightIndex)
	if err != nil {
		return nil, fmt.Errorf("right side: %w", err)
	}

	lookup := make(map[any][]int, len(rightKeys))
	for j, k := range rightKeys {
		if k == nil {
			continue
		}
		nk := normalizeKey(k)
		lookup[nk] = append(lookup[nk], j)
	}

	var lrows, rrows []int
	for i, k := range leftKeys {
		if k == nil {
			continue
		}
		for _, j := range lookup[normalizeKey(k)] {
			lrows = append(lrows, i)
			rrows = append(rrows, j)
		}
	}

	var index []any
	switch {
	case opts.LeftIndex && opts.RightIndex:
		index = take(left.index, lrows)
	case opts.LeftIndex:
		index = take(right.index, rrows)
	case opts.RightIndex:
		index = take(left.index, lrows)
	default:
		index = RangeIndex(len(lrows))
	}

	// A key column with the same name on both sides is emitted once.
	sharedKey := ""
	if opts.LeftOn != "" && opts.LeftOn == opts.RightOn {
		sharedKey = opts.LeftOn
	}
	overlap := make(map[string]bool)
	for _, name := range right.names {
		if name != sharedKey && left.Has(name) {
			overlap[name] = true
		}
	}

	out := &Frame{
		index:   index,
		columns: make(map[string][]any, len(left.names)+len(right.names)),
	}
	for _, name := range left.names {
		outName := name
		if overlap[name] {
			outName = name + opts.Suffixes[0]
		}
		_ = out.setOwned(outName, take(left.columns[name], lrows))
	}
	for _, name := range right.names {
		if name == sharedKey {
			continue
		}
		outName := name
		if overlap[name] {
			outName = name + opts.Suffixes[1]
		}
		_ = out.setOwned(outName, take(right.columns[name], rrows))
	}
	return out, nil
}

func joinKeys(f *Frame, on string, useIndex bool) ([]any, error) {
	if useIndex {
		return f.index, nil
	}
	vals, ok := f.columns[on]
	if !ok {
		return nil, fmt.Errorf("%w: merge key %s", ErrColumnNotFound, on)
	}
	return vals, nil
}

func take(src []any, rows []int) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = src[r]
	}
	return out
}
