package executor

import (
	"bytes"
	"encoding/json"

	"sqlscope-backend/internal/target"
)

// row marshals as a JSON object whose keys follow result column order.
type row struct {
	keys []string
	vals []any
}

func newRows(res *target.Result) []row {
	// Duplicate column names keep their first position and take the last value.
	var keys []string
	pos := make(map[string]int, len(res.Columns))
	src := make([]int, len(res.Columns))
	for i, col := range res.Columns {
		p, ok := pos[col]
		if !ok {
			p = len(keys)
			pos[col] = p
			keys = append(keys, col)
		}
		src[i] = p
	}

	rows := make([]row, 0, len(res.Rows))
	for _, r := range res.Rows {
		vals := make([]any, len(keys))
		for i, v := range r {
			vals[src[i]] = v
		}
		rows = append(rows, row{keys: keys, vals: vals})
	}
	return rows
}

func (r row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.vals[i])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encode renders a result as indented JSON.
func encode(res *target.Result) (string, error) {
	b, err := json.MarshalIndent(newRows(res), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
