package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FeatureRow is an ordered column -> value mapping. The column order is fixed
// when the row is created and is preserved when the row is encoded or handed
// to a model.
type FeatureRow struct {
	columns []string
	values  map[string]any
}

func NewFeatureRow(columns []string) FeatureRow {
	row := FeatureRow{
		columns: make([]string, 0, len(columns)),
		values:  make(map[string]any, len(columns)),
	}
	for _, c := range columns {
		if _, ok := row.values[c]; ok {
			continue
		}
		row.columns = append(row.columns, c)
		row.values[c] = nil
	}
	return row
}

func (r FeatureRow) Columns() []string {
	return r.columns
}

func (r FeatureRow) Len() int {
	return len(r.columns)
}

func (r FeatureRow) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

func (r FeatureRow) Get(column string) any {
	return r.values[column]
}

// Set assigns a value to an existing column. Columns outside the row are
// ignored and false is returned.
func (r FeatureRow) Set(column string, value any) bool {
	if _, ok := r.values[column]; !ok {
		return false
	}
	r.values[column] = value
	return true
}

// Values returns the row values in column order.
func (r FeatureRow) Values() []any {
	out := make([]any, len(r.columns))
	for i, c := range r.columns {
		out[i] = r.values[c]
	}
	return out
}

func (r FeatureRow) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// NonEmpty returns the subset of the row whose values are neither nil nor the
// empty string, keeping column order.
func (r FeatureRow) NonEmpty() FeatureRow {
	out := FeatureRow{values: make(map[string]any)}
	for _, c := range r.columns {
		v := r.values[c]
		if isEmpty(v) {
			continue
		}
		out.columns = append(out.columns, c)
		out.values[c] = v
	}
	return out
}

func (r FeatureRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[c])
		if err != nil {
			return nil, fmt.Errorf("error encoding column %s: %w", c, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
