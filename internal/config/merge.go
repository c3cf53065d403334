package config

import (
	"reflect"

	"github.com/samber/mo"
)

// Merge deep-merges override onto defaults and returns a new mapping.
//
// When both sides hold a mapping for the same key the two are merged
// recursively; any other value in override (scalar, sequence, or a value of
// a different type) replaces the default wholesale. Sequences are never
// concatenated. Neither input is modified.
func Merge(defaults, override map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(override))
	for k, v := range defaults {
		out[k] = deepCopy(v)
	}
	for k, ov := range override {
		if dm, ok := out[k].(map[string]any); ok {
			if om, ok := ov.(map[string]any); ok {
				out[k] = Merge(dm, om)
				continue
			}
		}
		out[k] = deepCopy(ov)
	}
	return out
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, vv := range x {
			m[k] = deepCopy(vv)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, vv := range x {
			s[i] = deepCopy(vv)
		}
		return s
	default:
		return v
	}
}

// truthy reports whether v counts as a present value for field resolution:
// nil, false, zero numbers, "" and empty sequences or mappings do not.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case uint64:
		return x != 0
	case float64:
		return x != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// lookupTiers returns the first truthy value of field across tiers, in
// order of precedence.
func lookupTiers(field string, tiers ...map[string]any) mo.Option[any] {
	for _, tier := range tiers {
		if v, ok := tier[field]; ok && truthy(v) {
			return mo.Some(v)
		}
	}
	return mo.None[any]()
}
