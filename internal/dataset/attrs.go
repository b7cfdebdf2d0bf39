package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Attrs maps attribute names to scalar values. Absent keys are reported
// through the optional accessors rather than by panicking.
type Attrs map[string]any

// Value is an optional attribute value.
type Value struct {
	v  any
	ok bool
}

// Null is the absent Value.
var Null = Value{}

// Some wraps v as a present Value.
func Some(v any) Value {
	return Value{v: v, ok: true}
}

// Valid reports whether the value is present.
func (v Value) Valid() bool { return v.ok }

// Any returns the wrapped value or nil.
func (v Value) Any() any { return v.v }

// String formats the value, or returns "" when it is absent.
func (v Value) String() string {
	if !v.ok {
		return ""
	}
	return formatScalar(v.v)
}

// MarshalJSON encodes an absent value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// Get returns the raw attribute value.
func (a Attrs) Get(key string) (any, bool) {
	v, ok := a[key]
	return v, ok
}

// Lookup returns the attribute as an optional Value.
func (a Attrs) Lookup(key string) Value {
	if v, ok := a[key]; ok {
		return Some(v)
	}
	return Null
}

// String returns the attribute formatted as text.
func (a Attrs) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	return formatScalar(v), true
}

// Float returns a numeric attribute as float64.
func (a Attrs) Float(key string) (float64, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Keys returns the attribute names in sorted order.
func (a Attrs) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimRight(t, "\x00")
	case []byte:
		return strings.TrimRight(string(t), "\x00")
	case float32:
		return fmt.Sprintf("%g", t)
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}
