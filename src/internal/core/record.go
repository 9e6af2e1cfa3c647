// FILE: src/internal/core/record.go
package core

import "encoding/json"

// Record is a decoded JSON object. Values are scalars (string, bool,
// json.Number, float64, int, int64), nested Records as map[string]any, or
// []any sequences.
type Record = map[string]any

// CallKind names a destination call schema.
type CallKind string

const (
	KindIdentify CallKind = "identify"
	KindPage     CallKind = "page"
	KindTrack    CallKind = "track"
	KindGroup    CallKind = "group"
)

// Kinds lists every call kind in build order.
var Kinds = []CallKind{KindIdentify, KindPage, KindTrack, KindGroup}

// Valid reports whether k is a known call kind.
func (k CallKind) Valid() bool {
	switch k {
	case KindIdentify, KindPage, KindTrack, KindGroup:
		return true
	}
	return false
}

// IsEmpty reports whether v carries no information: nil, "", false, zero
// numbers and empty collections. The string "0" is not empty.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case float32:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// IsEmptyCollection reports whether v is a map or sequence with no members.
func IsEmptyCollection(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// Clone deep-copies maps and sequences. Scalars are returned as is.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Clone(val)
		}
		return out
	}
	return v
}
