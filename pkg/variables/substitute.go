package variables

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	placeholderRe      = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)
	wholePlaceholderRe = regexp.MustCompile(`^\{\{\s*([\w.]+)\s*\}\}$`)
)

// SubstituteParams deep-copies params and replaces every {{dotted.path}}
// occurrence found in string values.
//
// A string that is exactly one placeholder keeps the variable's original type
// (int, bool, nested map, ...); a placeholder embedded in a larger string is
// stringified in place. Unmatched placeholders are left verbatim. Non-string
// leaves pass through unchanged.
func SubstituteParams(params map[string]any, vars map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for key, value := range params {
		out[key] = substituteValue(value, vars)
	}

	return out
}

func substituteValue(value any, vars map[string]any) any {
	switch v := value.(type) {
	case string:
		return substituteString(v, vars)
	case map[string]any:
		return SubstituteParams(v, vars)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = substituteValue(item, vars)
		}

		return out
	default:
		return value
	}
}

func substituteString(s string, vars map[string]any) any {
	if match := wholePlaceholderRe.FindStringSubmatch(s); match != nil {
		if value, ok := vars[match[1]]; ok {
			return value
		}

		return s
	}

	return Resolve(s, vars)
}

// Resolve substitutes {{ name }} placeholders into a plain string, always
// stringifying. Unknown placeholders are left verbatim. Whitespace inside the
// braces is tolerated.
func Resolve(template string, vars map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])

		value, ok := vars[name]
		if !ok {
			return match
		}

		return fmt.Sprintf("%v", value)
	})
}
