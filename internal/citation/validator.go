// Package citation resolves dot-path citations against a decoded fact
// pack. It is the sole guardrail between generated claims and the user:
// no insight is surfaced without passing Validate.
package citation

import (
	"sort"
	"strconv"
	"strings"
)

// ValidationResult reports which citations failed to resolve. Valid is
// true only when at least one citation was supplied and all of them
// resolved.
type ValidationResult struct {
	Valid            bool     `json:"valid"`
	InvalidCitations []string `json:"invalid_citations"`
	MissingCitations bool     `json:"missing_citations"`
}

// Validate checks every dot-path against the decoded pack. An empty
// citation list is an ungrounded claim and is flagged as missing.
func Validate(citations []string, decoded map[string]any) ValidationResult {
	result := ValidationResult{InvalidCitations: []string{}}

	if len(citations) == 0 {
		result.MissingCitations = true
		return result
	}

	for _, c := range citations {
		if _, ok := Resolve(c, decoded); !ok {
			result.InvalidCitations = append(result.InvalidCitations, c)
		}
	}

	result.Valid = len(result.InvalidCitations) == 0
	return result
}

// Resolve walks a dot-separated path through the decoded value tree:
// object keys by name, array elements by numeric index. A citation is
// valid iff the terminal value exists and is not the absence sentinel.
// Plain structural recursion; no reflection.
func Resolve(path string, decoded map[string]any) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = decoded
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}

	if current == nil {
		return nil, false
	}
	return current, true
}

// LeafPaths enumerates every citable dot-path in the decoded pack. Because
// it is derived from the pack itself, the whitelist can never drift from
// the schema.
func LeafPaths(decoded map[string]any) []string {
	var paths []string
	collectLeaves("", decoded, &paths)
	sort.Strings(paths)
	return paths
}

func collectLeaves(prefix string, value any, paths *[]string) {
	switch node := value.(type) {
	case map[string]any:
		for key, child := range node {
			collectLeaves(join(prefix, key), child, paths)
		}
	case []any:
		for i, child := range node {
			collectLeaves(join(prefix, strconv.Itoa(i)), child, paths)
		}
	case nil:
		// Absence sentinel: not citable.
	default:
		if prefix != "" {
			*paths = append(*paths, prefix)
		}
	}
}

func join(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}
