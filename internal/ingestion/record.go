package ingestion

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one raw upstream object. Upstream shapes mix snake_case and
// camelCase keys, so every accessor takes the accepted key variants in
// priority order.
type Record map[string]any

// DecodeRecords decodes a JSON array of objects, or an object wrapping one
// under "items", "logs", "candidates" or "data".
func DecodeRecords(data []byte) ([]Record, error) {
	var list []Record
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	for _, key := range []string{"items", "logs", "candidates", "data"} {
		raw, ok := wrapped[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode records under %q: %w", key, err)
		}
		return list, nil
	}
	return nil, fmt.Errorf("decode records: no array found")
}

// Value returns the first present, non-null, non-empty-string value
func (r Record) Value(keys ...string) (any, bool) {
	for _, key := range keys {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// String returns the first non-empty value rendered as trimmed text
func (r Record) String(keys ...string) string {
	v, ok := r.Value(keys...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(toString(v))
}

// Int returns the first value that parses as a finite integer
func (r Record) Int(keys ...string) (int64, bool) {
	for _, key := range keys {
		v, ok := r.Value(key)
		if !ok {
			continue
		}
		if n, ok := toInt(v); ok {
			return n, true
		}
	}
	return 0, false
}

// PositiveInt is Int restricted to values > 0
func (r Record) PositiveInt(keys ...string) int64 {
	n, ok := r.Int(keys...)
	if !ok || n <= 0 {
		return 0
	}
	return n
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return fmt.Sprint(v)
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}
