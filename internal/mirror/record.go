package mirror

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// Record is one row keyed by column name. Column order is preserved when
// the record is serialized.
type Record struct {
	Columns []string
	Values  []any
}

// NewRecord builds a Record from raw driver values, coercing each value to a
// JSON-representable form.
func NewRecord(columns []Column, raw []any) Record {
	r := Record{
		Columns: make([]string, len(columns)),
		Values:  make([]any, len(columns)),
	}
	for i, c := range columns {
		r.Columns[i] = c.Name
		if i < len(raw) {
			r.Values[i] = CoerceValue(raw[i], c.DeclType)
		}
	}
	return r
}

// Get returns the value of the named column.
func (r Record) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// With returns a copy of the record with an extra column appended.
func (r Record) With(column string, value any) Record {
	out := Record{
		Columns: append(append([]string{}, r.Columns...), column),
		Values:  append(append([]any{}, r.Values...), value),
	}
	return out
}

// MarshalJSON writes the record as an object whose keys follow column order.
// Non-ASCII text is kept literal.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeLiteral(&buf, c); err != nil {
			return nil, fmt.Errorf("encoding column name %q: %w", c, err)
		}
		buf.WriteByte(':')
		if err := encodeLiteral(&buf, r.Values[i]); err != nil {
			return nil, fmt.Errorf("encoding column %q: %w", c, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeLiteral appends v as JSON without HTML escaping or a trailing newline.
func encodeLiteral(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// CoerceValue maps a driver value to something encoding/json represents
// faithfully. Temporal values become strings; DATE columns keep only the date
// and zoned times keep their offset. Stores that can hand back the stored
// text should do so, since a parsed time cannot reproduce it exactly.
func CoerceValue(v any, declType string) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		if strings.EqualFold(declType, "DATE") && isMidnight(val) {
			return val.Format(dateLayout)
		}
		layout := datetimeLayout
		if val.Nanosecond() != 0 {
			layout += ".999999"
		}
		if val.Location() != time.UTC {
			layout += "-07:00"
		}
		return val.Format(layout)
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		return base64.StdEncoding.EncodeToString(val)
	case int64, float64, string, bool:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return fmt.Sprint(val)
	}
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// EncodeJSON renders v with two-space indentation and literal non-ASCII text.
// Output is deterministic for equal input.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
