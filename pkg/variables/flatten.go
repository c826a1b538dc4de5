// Package variables bridges raw event payloads and the flat dotted-namespace
// variable context threaded through an area run, and performs {{placeholder}}
// substitution into step configuration.
package variables

import (
	"fmt"
	"strconv"
)

// Flatten recursively flattens a nested payload into dotted-path keys:
// {"user":{"name":"Bob"}} becomes {"user.name":"Bob"}. List items are
// flattened by numeric index. The input is never mutated.
func Flatten(data map[string]any) map[string]any {
	flat := make(map[string]any, len(data))
	flattenInto(flat, "", data)

	return flat
}

func flattenInto(flat map[string]any, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 && prefix != "" {
			flat[prefix] = v

			return
		}

		for key, item := range v {
			flattenInto(flat, joinPath(prefix, key), item)
		}
	case []any:
		if len(v) == 0 && prefix != "" {
			flat[prefix] = v

			return
		}

		for i, item := range v {
			flattenInto(flat, joinPath(prefix, strconv.Itoa(i)), item)
		}
	default:
		if prefix != "" {
			flat[prefix] = v
		}
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}

	return prefix + "." + key
}

// lookupPath walks a dotted path through nested maps. Used by the service
// extractors to probe optional payload fields.
func lookupPath(data map[string]any, path ...string) (any, bool) {
	var current any = data

	for _, segment := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// firstString returns the first present, non-empty string among the named
// top-level keys.
func firstString(data map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := data[key]; ok {
			if s, ok := value.(string); ok && s != "" {
				return s, true
			}
		}
	}

	return "", false
}

// firstValue returns the first present, non-nil value among the named
// top-level keys.
func firstValue(data map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := data[key]; ok && value != nil {
			return value, true
		}
	}

	return nil, false
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}
