package confbase

import (
	"sort"
	"strings"
)

// flattenMap converts a nested map[string]any to a flat map[string]any with
// dot-notation paths.
func flattenMap(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)

	for key, value := range nested {
		newPath := key
		if prefix != "" {
			newPath = prefix + "." + key
		}

		if nestedMap, isMap := value.(map[string]any); isMap && len(nestedMap) > 0 {
			for subPath, subValue := range flattenMap(nestedMap, newPath) {
				flat[subPath] = subValue
			}
		} else {
			flat[newPath] = value
		}
	}

	return flat
}

// unflattenMap converts a flat dot-keyed map into the equivalent nested map.
// Keys are applied shallow-first so that a scalar later refined by deeper
// keys (e.g. "model" = "unet" plus "model.conv" = x) is promoted to that
// subtree's discriminator entry. On maps whose leaf keys contain no dots,
// unflattenMap is the exact inverse of flattenMap.
func unflattenMap(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := strings.Count(keys[i], "."), strings.Count(keys[j], ".")
		if di != dj {
			return di < dj
		}
		return keys[i] < keys[j]
	})

	nested := make(map[string]any)
	for _, key := range keys {
		setNestedValue(nested, key, flat[key])
	}
	return nested
}

// setNestedValue sets a value in a nested map using a dot-notation path,
// creating intermediate maps as needed. A scalar found where a map is needed
// becomes that map's discriminator entry.
func setNestedValue(nested map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := nested

	for i := 0; i < len(segments)-1; i++ {
		segment := segments[i]

		next, exists := current[segment]
		if !exists {
			newMap := make(map[string]any)
			current[segment] = newMap
			current = newMap
			continue
		}

		if nextMap, isMap := next.(map[string]any); isMap {
			current = nextMap
		} else {
			newMap := map[string]any{DiscriminatorKey: next}
			current[segment] = newMap
			current = newMap
		}
	}

	lastSegment := segments[len(segments)-1]
	if prior, exists := current[lastSegment]; exists {
		if priorMap, isMap := prior.(map[string]any); isMap {
			// A subtree already exists here; a scalar write selects its class.
			if _, isSubMap := value.(map[string]any); !isSubMap {
				priorMap[DiscriminatorKey] = value
				return
			}
		}
	}
	current[lastSegment] = value
}

// normalizeOverrides accepts a flat, nested, or mixed override map and
// returns the canonical nested form.
func normalizeOverrides(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return unflattenMap(flattenMap(m, ""))
}

// sortedKeys returns m's keys in deterministic order for stable error
// reporting and merging.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// joinPath joins a parent path and field name with a dot.
func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

// isValidKeySegment checks that a single path segment is a bare key:
// ASCII letters, digits, underscores, and dashes, with no dots.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !(isLetter || isDigit || r == '_' || r == '-') {
			return false
		}
	}
	return true
}
