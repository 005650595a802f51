package schema

import (
	"encoding/json"
	"time"
)

// Record is a canonical, normalized entity record. Values hold the exact
// types produced by normalization (string, int, float64, bool, time.Time,
// []string, []any, map[string]any), so typed accessors never need to guess.
type Record map[string]any

// ID returns the record identity, empty for absent records.
func (r Record) ID() string {
	return r.String("id")
}

// String returns the named string field, empty when absent or mistyped.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Int returns the named int field, 0 when absent or mistyped.
func (r Record) Int(key string) int {
	switch n := r[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// Float returns the named float field, 0 when absent or mistyped.
func (r Record) Float(key string) float64 {
	switch n := r[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// Bool returns the named bool field, false when absent or mistyped.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Time returns the named timestamp and whether one is set.
func (r Record) Time(key string) (time.Time, bool) {
	t, ok := r[key].(time.Time)
	return t, ok && !t.IsZero()
}

// Strings returns the named string-slice field, never nil.
func (r Record) Strings(key string) []string {
	if s, ok := r[key].([]string); ok {
		return s
	}
	return []string{}
}

// Slice returns the named sequence field, never nil.
func (r Record) Slice(key string) []any {
	if s, ok := r[key].([]any); ok {
		return s
	}
	return []any{}
}

// Map returns the named nested object field, never nil.
func (r Record) Map(key string) map[string]any {
	if m, ok := r[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Clone returns a deep copy of the record. Stores hand out clones so views
// stay consistent even when the collection is mutated afterwards.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge overlays the given partial record and returns the receiver. Only
// keys present in partial are touched.
func (r Record) Merge(partial Record) Record {
	for k, v := range partial {
		r[k] = cloneValue(v)
	}
	return r
}

// MarshalJSON serializes timestamps as RFC 3339 strings so records round-trip
// through NormalizeJSON unchanged.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r))
	for k, v := range r {
		switch t := v.(type) {
		case time.Time:
			out[k] = t.Format(time.RFC3339Nano)
		default:
			out[k] = v
		}
	}
	return json.Marshal(out)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Record:
		return cloneMap(t)
	case []any:
		return cloneSlice(t)
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func cloneMap[M ~map[string]any](m M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = cloneValue(v)
	}
	return out
}
