package frame

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the frame with a header row. The index is written as the
// first column, named IndexColumn. Nil values are written as empty fields.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{IndexColumn}, f.names...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(header))
	for i, label := range f.index {
		record[0] = csvField(label)
		for j, name := range f.names {
			record[j+1] = csvField(f.columns[name][i])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvField(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
