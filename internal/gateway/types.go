package gateway

import "time"

// Record is a single row from the remote collection: a stable unique id
// plus resource-specific primitive attributes. Kept schemaless because the
// console renders whatever columns the resource defines.
type Record map[string]any

// ID returns the record's unique identifier. Users carry "id", support
// tickets "ticket_id".
func (r Record) ID() string {
	if v, ok := r["id"].(string); ok && v != "" {
		return v
	}
	if v, ok := r["ticket_id"].(string); ok {
		return v
	}
	return ""
}

// Str returns a string attribute, or "" if absent or not a string.
func (r Record) Str(key string) string {
	v, _ := r[key].(string)
	return v
}

// Int returns a numeric attribute. JSON numbers decode as float64.
func (r Record) Int(key string) int {
	switch v := r[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Time parses a timestamp attribute. Returns the zero time for null or
// unparseable values (last_login may legitimately be null).
func (r Record) Time(key string) time.Time {
	s, ok := r[key].(string)
	if !ok {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Clone returns a shallow copy. Attribute values are primitives, so a
// shallow copy is a full snapshot.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Merge overlays fields onto a copy of the record and returns it.
func (r Record) Merge(fields map[string]any) Record {
	c := r.Clone()
	for k, v := range fields {
		c[k] = v
	}
	return c
}

// PageResult is one authoritative page of a collection as reported by the
// list endpoint.
type PageResult struct {
	Items []Record `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
	Pages int      `json:"pages"`
}
