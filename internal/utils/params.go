// Package utils holds small parsing helpers for query-string values. They
// carry no domain knowledge.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a valid int. Surrounding whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// IntInRange parses s like AtoiDefault and clamps the result to [lo, hi].
//
//	utils.IntInRange("500", 20, 1, 100) // 100
//	utils.IntInRange("", 20, 1, 100)    // 20
func IntInRange(s string, def, lo, hi int) int {
	return min(max(AtoiDefault(s, def), lo), hi)
}

// BoolDefault parses s with strconv.ParseBool after trimming. Empty or
// unparsable input yields def.
func BoolDefault(s string, def bool) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
