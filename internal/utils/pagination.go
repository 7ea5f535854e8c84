// Package utils provides small, generic helpers for parsing request
// parameters. They are independent of domain or business logic.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault converts s to an int, returning def when s is empty or not a
// valid integer.
//
//	utils.AtoiDefault("42", 0) // 42
//	utils.AtoiDefault("x", 5)  // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParseLimit reads a positive page size, falling back to def and capping at max.
func ParseLimit(s string, def, max int) int {
	n := AtoiDefault(strings.TrimSpace(s), def)
	if n < 1 {
		n = def
	}
	return Clamp(n, 1, max)
}

// ParseBool reads "true"/"1" style flags; anything else is false.
func ParseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
