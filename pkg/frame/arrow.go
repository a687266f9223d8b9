package frame

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// IndexColumn is the column name the frame index is written under.
const IndexColumn = "__index__"

// ToArrow converts the frame into an Arrow table. The index is emitted as
// the first column, named IndexColumn. Column types are inferred from the
// values: integers become int64, any float promotes the column to float64,
// bools stay boolean and everything else is written as a string.
// The caller owns the returned table and must Release it.
func (f *Frame) ToArrow(mem memory.Allocator) (arrow.Table, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	names := append([]string{IndexColumn}, f.names...)
	fields := make([]arrow.Field, len(names))
	columns := make([]arrow.Column, len(names))

	for i, name := range names {
		vals := f.index
		if i > 0 {
			vals = f.columns[name]
		}
		dt := inferArrowType(vals)
		arr, err := buildArrowArray(mem, dt, vals)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
		chunked := arrow.NewChunked(dt, []arrow.Array{arr})
		arr.Release()
		columns[i] = *arrow.NewColumn(fields[i], chunked)
		chunked.Release()
	}

	schema := arrow.NewSchema(fields, nil)
	tbl := array.NewTable(schema, columns, int64(f.Len()))
	for i := range columns {
		columns[i].Release()
	}
	return tbl, nil
}

// WriteParquet writes the frame, index included, as a Snappy-compressed
// Parquet file.
func (f *Frame) WriteParquet(w io.Writer) error {
	tbl, err := f.ToArrow(memory.NewGoAllocator())
	if err != nil {
		return err
	}
	defer tbl.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(tbl.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	chunk := tbl.NumRows()
	if chunk == 0 {
		chunk = 1
	}
	if err := writer.WriteTable(tbl, chunk); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func inferArrowType(vals []any) arrow.DataType {
	var sawInt, sawFloat, sawBool, sawOther bool
	for _, v := range vals {
		switch normalizeNumber(v).(type) {
		case nil:
		case int64:
			sawInt = true
		case float64:
			sawFloat = true
		case bool:
			sawBool = true
		default:
			sawOther = true
		}
	}
	switch {
	case sawOther || (sawBool && (sawInt || sawFloat)):
		return arrow.BinaryTypes.String
	case sawFloat:
		return arrow.PrimitiveTypes.Float64
	case sawBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.PrimitiveTypes.Int64
	}
}

func buildArrowArray(mem memory.Allocator, dt arrow.DataType, vals []any) (arrow.Array, error) {
	switch dt.ID() {
	case arrow.INT64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range vals {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(normalizeNumber(v).(int64))
		}
		return b.NewArray(), nil
	case arrow.FLOAT64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, v := range vals {
			switch x := normalizeNumber(v).(type) {
			case nil:
				b.AppendNull()
			case int64:
				b.Append(float64(x))
			case float64:
				b.Append(x)
			}
		}
		return b.NewArray(), nil
	case arrow.BOOL:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range vals {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(bool))
		}
		return b.NewArray(), nil
	case arrow.STRING:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, v := range vals {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(fmt.Sprint(v))
		}
		return b.NewArray(), nil
	default:
		return nil, fmt.Errorf("unsupported arrow type %s", dt)
	}
}
