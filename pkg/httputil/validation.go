package httputil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxPathValueBytes bounds topic names and host identities taken from URLs.
const MaxPathValueBytes = 1024

// ValidatePathValue reports whether s can be forwarded to a directory as a
// topic name or host identity: non-blank, valid UTF-8, no control characters.
func ValidatePathValue(s string) bool {
	if strings.TrimSpace(s) == "" || len(s) > MaxPathValueBytes || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
