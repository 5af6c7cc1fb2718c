// Package csvexport turns row collections into downloadable CSV files.
package csvexport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// Encode writes header followed by rows. Fields containing a comma, a double
// quote or a line break are double-quoted with embedded quotes doubled.
func Encode(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(header) > 0 {
		if err := w.Write(header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	return buf.Bytes(), nil
}

// Table is a row source with a fixed column set.
type Table[T any] struct {
	Columns []string
	Row     func(T) []string
}

// Encode renders items through the table's row mapper.
func (t Table[T]) Encode(items []T) ([]byte, error) {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, t.Row(it))
	}
	return Encode(t.Columns, rows)
}

// Filename returns "<entity>_<YYYY-MM-DD>.csv" for the given day.
func Filename(entity string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", entity, now.Format("2006-01-02"))
}
