// Package merge deep-merges chart value trees.
package merge

import (
	"fmt"
	"strings"
)

// UnionKeys are keys where lists use set-union merge (no duplicates).
var UnionKeys = map[string]bool{
	"paths":       true,
	"accessModes": true,
}

// ExtendKeys are keys where lists are extended (appended) instead of replaced.
var ExtendKeys = map[string]bool{
	"extraVolumes":      true,
	"extraVolumeMounts": true,
}

// DeepMerge recursively merges overlay into base and returns a new map.
// Merge semantics:
//   - UnionKeys (paths, accessModes): set union for lists
//   - ExtendKeys (extraVolumes, extraVolumeMounts): append lists
//   - Default: replace lists, recursive merge for dicts
//   - env/annotations are normalized from "KEY=value" lists to maps before merging
func DeepMerge(base, overlay map[string]any) map[string]any {
	return deepMergeInternal(base, overlay, "")
}

func deepMergeInternal(base, overlay map[string]any, path string) map[string]any {
	result := copyMap(base)

	for key, overlayValue := range overlay {
		currentPath := key
		if path != "" {
			currentPath = path + "." + key
		}

		baseValue, exists := result[key]
		if !exists {
			result[key] = DeepCopy(overlayValue)
			continue
		}

		if key == "env" || key == "annotations" {
			baseValue = normalizeToDict(baseValue)
			overlayValue = normalizeToDict(overlayValue)
		}

		// Both are maps - recursive merge
		baseMap, baseIsMap := baseValue.(map[string]any)
		overlayMap, overlayIsMap := overlayValue.(map[string]any)
		if baseIsMap && overlayIsMap {
			result[key] = deepMergeInternal(baseMap, overlayMap, currentPath)
			continue
		}

		// Extended lists may hold maps
		if ExtendKeys[key] && isList(baseValue) && isList(overlayValue) {
			result[key] = append(DeepCopy(baseValue).([]any), DeepCopy(overlayValue).([]any)...)
			continue
		}

		baseList, baseIsList := toStringSlice(baseValue)
		overlayList, overlayIsList := toStringSlice(overlayValue)
		if UnionKeys[key] && baseIsList && overlayIsList {
			result[key] = stringSliceUnion(baseList, overlayList)
			continue
		}

		// Default: replace
		result[key] = DeepCopy(overlayValue)
	}

	return result
}

// normalizeToDict converts list-style env/annotations to dict format.
// Input: ["FOO=bar", "BAZ=qux"] -> {"FOO": "bar", "BAZ": "qux"}
// Maps and other values are returned unchanged.
func normalizeToDict(value any) any {
	switch v := value.(type) {
	case []any, []string:
		items, _ := toStringSlice(v)
		result := make(map[string]any, len(items))
		for _, item := range items {
			if idx := strings.Index(item, "="); idx > 0 {
				result[item[:idx]] = item[idx+1:]
			}
		}
		return result
	default:
		return value
	}
}

// toStringSlice attempts to convert a value to []string.
// Returns the slice and true if successful, nil and false otherwise.
func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		result := make([]string, len(v))
		for i, item := range v {
			if _, isMap := item.(map[string]any); isMap {
				return nil, false
			}
			result[i] = fmt.Sprintf("%v", item)
		}
		return result, true
	default:
		return nil, false
	}
}

func isList(value any) bool {
	switch value.(type) {
	case []any, []string:
		return true
	}
	return false
}

// stringSliceUnion returns the union of two string slices (no duplicates).
func stringSliceUnion(a, b []string) []any {
	seen := make(map[string]bool, len(a)+len(b))
	result := make([]any, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	return result
}

// copyMap creates a shallow copy of a map.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

// DeepCopy creates a deep copy of any value.
func DeepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = DeepCopy(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = DeepCopy(val)
		}
		return result
	case []string:
		result := make([]any, len(v))
		for i, s := range v {
			result[i] = s
		}
		return result
	default:
		// Primitive types are immutable, return as-is
		return value
	}
}
