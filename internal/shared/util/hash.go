package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// LimiterKey builds the rate limiter bucket key for a caller in a route
// group. The caller (user id or client ip) is digested so it never reaches
// Redis in the clear.
func LimiterKey(principal, group string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(principal))))
	return "rl:" + strings.ToUpper(group) + ":" + hex.EncodeToString(sum[:16])
}
