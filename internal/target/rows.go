package target

import (
	"database/sql"
	"fmt"
	"math"
	"unicode/utf8"
)

// Result is a fully read result set. Columns keep the order reported by the driver.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Index returns the position of a column, or -1.
func (r *Result) Index(name string) int {
	for i, col := range r.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Maps returns each row keyed by column name.
func (r *Result) Maps() []map[string]any {
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			m[col] = row[i]
		}
		out = append(out, m)
	}
	return out
}

// readAll drains rows into a Result. The caller closes rows.
func readAll(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	res := &Result{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i := range values {
			values[i] = normalizeValue(values[i])
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return res, nil
}

// normalizeValue converts driver values to JSON-serializable Go types.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		// database/sql returns []byte for TEXT columns on several drivers
		if utf8.Valid(val) {
			return string(val)
		}
		return val
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	default:
		return val
	}
}

// finite spells NaN and the infinities as strings, which JSON cannot carry as numbers.
func finite(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}

// Text extracts a string cell, accepting the []byte form some drivers use.
func Text(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	default:
		return "", false
	}
}
