// Package utils holds query-string helpers shared by the HTTP handlers.
package utils

import (
	"strconv"
	"strings"
)

// IntInRange parses s as a base-10 int and clamps it to [lo, hi]. Empty or
// malformed input yields def, which is returned unclamped.
func IntInRange(s string, def, lo, hi int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return min(max(n, lo), hi)
}

// SplitList splits a comma-separated list, dropping blanks and duplicates
// while keeping the first-seen order. It returns nil for an empty list.
func SplitList(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
