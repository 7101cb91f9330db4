package util

import (
	"strings"
)

// FileExtension returns the lower-cased extension of name without the dot.
// Names without an extension, or with one containing anything other than
// ASCII letters and digits, yield fallback.
func FileExtension(name, fallback string) string {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return fallback
	}
	ext := strings.ToLower(name[idx+1:])
	for _, ch := range ext {
		if !((ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9')) {
			return fallback
		}
	}
	return ext
}
