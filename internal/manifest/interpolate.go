package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrMissingVariable indicates a ${var} placeholder with no value.
var ErrMissingVariable = errors.New("missing variables")

// varPattern matches ${varname} placeholders.
var varPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Interpolate replaces ${var} placeholders in s with values from variables.
// Every unknown placeholder is reported in a single error.
func Interpolate(s string, variables map[string]any) (string, error) {
	var missing []string

	result := varPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := varPattern.FindStringSubmatch(match)[1]
		v, ok := variables[key]
		if !ok {
			missing = append(missing, key)
			return match
		}
		return toString(v)
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: ${%s}", ErrMissingVariable, strings.Join(missing, "}, ${"))
	}
	return result, nil
}

// toString converts any value to its string representation.
func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// InterpolateMap applies interpolation to every string in a parsed document,
// keys included.
func InterpolateMap(data map[string]any, variables map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(data))

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key, err := Interpolate(k, variables)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		v, err := interpolateValue(data[k], variables)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		result[key] = v
	}

	return result, nil
}

func interpolateValue(v any, variables map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		return Interpolate(val, variables)
	case map[string]any:
		return InterpolateMap(val, variables)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			interpolated, err := interpolateValue(item, variables)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			result[i] = interpolated
		}
		return result, nil
	default:
		return v, nil
	}
}
