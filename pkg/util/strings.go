package util

import (
	"strconv"
	"strings"
)

// ParseIntDefault returns s as an int, falling back to def when s is empty
// or not a number.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// ParseFlag interprets the 0/1 indicator columns of admission exports.
// Empty, unknown and "0" values are all false.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "y", "yes", "true":
		return true
	default:
		return false
	}
}
