package domain

import (
	"encoding/json"
	"time"
)

// Metadata is the optional structured map attached to a chunk (page number,
// creation date, loader provenance). Absence of a key is represented by the
// key missing from the map, never by a hidden default.
type Metadata map[string]interface{}

// DecodeMetadata parses a raw JSON metadata blob. A missing or malformed
// value deterministically decodes to an empty map; a parse failure is never
// propagated. This fallback is a documented contract, not a convenience.
func DecodeMetadata(raw []byte) Metadata {
	if len(raw) == 0 {
		return Metadata{}
	}
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return Metadata{}
	}
	return m
}

// Page returns the source page number, if present and positive.
func (m Metadata) Page() (int, bool) {
	v, ok := m["page"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		if n > 0 {
			return n, true
		}
	case float64:
		if n > 0 {
			return int(n), true
		}
	}
	return 0, false
}

// CreatedAt returns the creation timestamp, if present and parseable.
// Accepts RFC3339 and date-only values.
func (m Metadata) CreatedAt() (time.Time, bool) {
	v, ok := m["created_at"]
	if !ok {
		return time.Time{}, false
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clone returns a shallow copy so chunks derived from the same page do not
// share a map.
func (m Metadata) Clone() Metadata {
	c := make(Metadata, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
