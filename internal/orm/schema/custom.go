package schema

import (
	"fmt"
	"reflect"
)

// Custom is an opaque annotation payload attached to types and properties.
// The store never interprets it; it is deep-copied whenever metadata crosses
// an import, export, merge or clone boundary.
type Custom map[string]any

// Copy returns a deep copy of the payload
func (c Custom) Copy() Custom {
	if c == nil {
		return nil
	}
	result := make(Custom, len(c))
	for k, v := range c {
		result[k] = DeepCopyValue(v)
	}
	return result
}

// Merge deep-merges src into a copy of c. Nested maps are merged key by key;
// any other value in src replaces the one in c.
func (c Custom) Merge(src Custom) Custom {
	if c == nil && src == nil {
		return nil
	}
	result := c.Copy()
	if result == nil {
		result = make(Custom, len(src))
	}
	for k, v := range src {
		existing, ok := asStringMap(result[k])
		incoming, ok2 := asStringMap(v)
		if ok && ok2 {
			result[k] = map[string]any(Custom(existing).Merge(incoming))
			continue
		}
		result[k] = DeepCopyValue(v)
	}
	return result
}

// DeepCopyValue copies maps and slices recursively. Maps with non-string keys
// (as produced by some YAML decoders) are normalized to map[string]any.
func DeepCopyValue(v any) any {
	if v == nil {
		return nil
	}

	switch typed := v.(type) {
	case Custom:
		return map[string]any(typed.Copy())
	case map[string]any:
		return map[string]any(Custom(typed).Copy())
	case []any:
		slice := make([]any, len(typed))
		for i, item := range typed {
			slice[i] = DeepCopyValue(item)
		}
		return slice
	}

	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.Slice:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			return append([]byte(nil), val.Bytes()...)
		}
		slice := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			slice[i] = DeepCopyValue(val.Index(i).Interface())
		}
		return slice
	case reflect.Map:
		m := make(map[string]any, val.Len())
		for _, key := range val.MapKeys() {
			m[fmt.Sprint(key.Interface())] = DeepCopyValue(val.MapIndex(key).Interface())
		}
		return m
	default:
		return v
	}
}

func asStringMap(v any) (map[string]any, bool) {
	switch typed := v.(type) {
	case map[string]any:
		return typed, true
	case Custom:
		return typed, true
	}
	return nil, false
}
