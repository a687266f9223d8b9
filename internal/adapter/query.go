package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapsim/pkg/frame"
)

// QueryFrame runs query and collects the result set into a frame. When
// indexCol is set, that column becomes the row index instead of a column.
func QueryFrame(ctx context.Context, a Adapter, query, indexCol string) (*frame.Frame, error) {
	rows, err := a.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return ScanFrame(rows, indexCol)
}

// ScanFrame reads every remaining row of rows into a frame.
func ScanFrame(rows *sql.Rows, indexCol string) (*frame.Frame, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	indexPos := -1
	if indexCol != "" {
		indexPos = slices.Index(names, indexCol)
		if indexPos < 0 {
			return nil, fmt.Errorf("%w: index column %s", frame.ErrColumnNotFound, indexCol)
		}
	}

	data := make([][]any, len(names))
	var index []any

	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range vals {
			v = normalizeValue(v)
			if i == indexPos {
				index = append(index, v)
				continue
			}
			data[i] = append(data[i], v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	rowCount := len(index)
	if indexPos < 0 {
		rowCount = 0
		if len(data) > 0 {
			rowCount = len(data[0])
		}
		index = frame.RangeIndex(rowCount)
	}
	if index == nil {
		index = []any{}
	}

	out, err := frame.New(index)
	if err != nil {
		return nil, err
	}
	for i, name := range names {
		if i == indexPos {
			continue
		}
		col := data[i]
		if col == nil {
			col = make([]any, rowCount)
		}
		if err := out.SetValues(name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// normalizeValue converts driver values to frame-friendly Go values.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}
