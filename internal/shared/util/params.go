package util

import (
	"strconv"
	"strings"
)

// IntParam parses a query value, falling back to def when it is missing or
// not a number, and clamps the result to [min, max].
func IntParam(raw string, def, min, max int) int {
	v := def
	if raw = strings.TrimSpace(raw); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			v = parsed
		}
	}
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v
}

// BoolParam reports whether a query flag is "true".
func BoolParam(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}
