// Package schema implements the declarative normalization layer shared by
// every business object store. Each entity declares a table of fields
// (canonical name, accepted source spellings, kind, default); normalization
// is a single generic fold over that table, so raw records arriving in
// camelCase, snake_case, or with fields missing entirely all collapse to the
// same canonical shape.
package schema

import (
	"time"

	"github.com/tidwall/gjson"
)

// Kind identifies the coercion rule applied to a field during normalization.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
	KindStringSlice
	KindSlice
	KindMap
)

// Field describes one canonical field of an entity record.
type Field struct {
	// Name is the canonical (snake_case) key.
	Name string
	// Aliases lists additional accepted source keys, typically the
	// camelCase spelling.
	Aliases []string
	// Kind selects the coercion rule.
	Kind Kind
	// Default is used when the field is absent or fails coercion. A nil
	// Default falls back to the kind's zero value (0, "", false, empty
	// slice, empty map, nil time).
	Default any
}

// Schema is the full field table for one entity type.
type Schema struct {
	Entity string
	fields []Field
}

// Base fields every entity record carries. The id field is handled
// separately because its absence selects the Absent branch.
var baseFields = []Field{
	{Name: "created_at", Aliases: []string{"createdAt"}, Kind: KindTime},
	{Name: "updated_at", Aliases: []string{"updatedAt"}, Kind: KindTime},
	{Name: "created_by", Aliases: []string{"createdBy"}, Kind: KindString},
}

// New builds a schema for the named entity. The base fields (created_at,
// updated_at, created_by) are appended automatically.
func New(entity string, fields ...Field) Schema {
	all := make([]Field, 0, len(fields)+len(baseFields))
	all = append(all, fields...)
	all = append(all, baseFields...)
	return Schema{Entity: entity, fields: all}
}

// Fields returns the declared field table including base fields.
func (s Schema) Fields() []Field {
	return s.fields
}

// Normalize folds raw input into a canonical record. It fails soft: a nil or
// non-mapping input, or input without a truthy id, yields (nil, false) and
// never an error. The input map is never mutated. Normalizing an already
// canonical record is a fixed point.
func (s Schema) Normalize(raw map[string]any) (Record, bool) {
	if raw == nil {
		return nil, false
	}
	id, _ := lookup(raw, "id", []string{"ID", "Id"})
	idStr := coerceString(id, "")
	if idStr == "" {
		return nil, false
	}
	rec := Record{"id": idStr}
	for _, f := range s.fields {
		v, ok := lookup(raw, f.Name, f.Aliases)
		if !ok {
			rec[f.Name] = defaultFor(f)
			continue
		}
		rec[f.Name] = coerce(f, v)
	}
	return rec, true
}

// NormalizeJSON parses raw JSON bytes tolerantly and normalizes the result.
// Anything that is not a JSON object yields the Absent branch.
func (s Schema) NormalizeJSON(data []byte) (Record, bool) {
	if !gjson.ValidBytes(data) {
		return nil, false
	}
	obj, ok := gjson.ParseBytes(data).Value().(map[string]any)
	if !ok {
		return nil, false
	}
	return s.Normalize(obj)
}

// Apply folds raw input into a canonical record without requiring an id.
// Every declared field takes its coerced value or default. Used by create
// paths, which assign identity themselves.
func (s Schema) Apply(raw map[string]any) Record {
	rec := Record{"id": ""}
	for _, f := range s.fields {
		v, ok := lookup(raw, f.Name, f.Aliases)
		if !ok {
			rec[f.Name] = defaultFor(f)
			continue
		}
		rec[f.Name] = coerce(f, v)
	}
	if id, ok := lookup(raw, "id", []string{"ID", "Id"}); ok {
		rec["id"] = coerceString(id, "")
	}
	return rec
}

// Partial extracts only the fields present in raw, coerced to canonical
// form. Fields absent from raw are omitted, so the result is safe to merge
// over an existing record.
func (s Schema) Partial(raw map[string]any) Record {
	rec := Record{}
	for _, f := range s.fields {
		v, ok := lookup(raw, f.Name, f.Aliases)
		if !ok {
			continue
		}
		rec[f.Name] = coerce(f, v)
	}
	return rec
}

// Defaults returns a record holding every field's default and an empty id.
// Empty derived views are built over this record.
func (s Schema) Defaults() Record {
	rec := Record{"id": ""}
	for _, f := range s.fields {
		rec[f.Name] = defaultFor(f)
	}
	return rec
}

func lookup(raw map[string]any, name string, aliases []string) (any, bool) {
	if v, ok := raw[name]; ok {
		return v, true
	}
	for _, a := range aliases {
		if v, ok := raw[a]; ok {
			return v, true
		}
	}
	return nil, false
}

func defaultFor(f Field) any {
	switch f.Kind {
	case KindString:
		if s, ok := f.Default.(string); ok {
			return s
		}
		return ""
	case KindInt:
		if n, ok := f.Default.(int); ok {
			return n
		}
		return 0
	case KindFloat:
		switch d := f.Default.(type) {
		case float64:
			return d
		case int:
			return float64(d)
		}
		return float64(0)
	case KindBool:
		if b, ok := f.Default.(bool); ok {
			return b
		}
		return false
	case KindTime:
		if t, ok := f.Default.(time.Time); ok {
			return t
		}
		return nil
	case KindStringSlice:
		if d, ok := f.Default.([]string); ok {
			return append([]string(nil), d...)
		}
		return []string{}
	case KindSlice:
		if d, ok := f.Default.([]any); ok {
			return cloneSlice(d)
		}
		return []any{}
	case KindMap:
		if d, ok := f.Default.(map[string]any); ok {
			return cloneMap(d)
		}
		return map[string]any{}
	}
	return nil
}

func coerce(f Field, v any) any {
	switch f.Kind {
	case KindString:
		return coerceString(v, defaultFor(f).(string))
	case KindInt:
		return coerceInt(v, defaultFor(f).(int))
	case KindFloat:
		return coerceFloat(v, defaultFor(f).(float64))
	case KindBool:
		if b, ok := v.(bool); ok {
			return b
		}
		return defaultFor(f)
	case KindTime:
		if t, ok := coerceTime(v); ok {
			return t
		}
		return defaultFor(f)
	case KindStringSlice:
		if out, ok := coerceStringSlice(v); ok {
			return out
		}
		return defaultFor(f)
	case KindSlice:
		if out, ok := coerceSlice(v); ok {
			return out
		}
		return defaultFor(f)
	case KindMap:
		if m, ok := v.(map[string]any); ok {
			return cloneMap(m)
		}
		if m, ok := v.(Record); ok {
			return cloneMap(m)
		}
		return defaultFor(f)
	}
	return v
}

func coerceString(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func coerceInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	}
	return fallback
}

func coerceFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return fallback
}

func coerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	}
	return time.Time{}, false
}

func coerceStringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...), true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out, true
	}
	return nil, false
}

func coerceSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return cloneSlice(s), true
	case []map[string]any:
		out := make([]any, 0, len(s))
		for _, item := range s {
			out = append(out, cloneMap(item))
		}
		return out, true
	}
	return nil, false
}
