package utils

import (
	"strings"
	"unicode/utf8"
)

func AssertInvariant(condition bool, message string) {
	if !condition {
		panic("invariant violated - " + message)
	}
}

// TruncateWithEllipsis clamps message to maxLen runes, replacing the tail
// with a single ellipsis rune when the message is cut. maxLen <= 0 leaves the
// message untouched.
func TruncateWithEllipsis(message string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(message) <= maxLen {
		return message
	}

	runes := []rune(message)
	if maxLen == 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}

// NormalizeKeyword lowercases and trims a keyword for case-insensitive
// matching. Empty results mean the keyword never matches.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// ContainsKeyword reports whether text contains keyword as a case-insensitive
// substring.
func ContainsKeyword(text, keyword string) bool {
	normalized := NormalizeKeyword(keyword)
	if normalized == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), normalized)
}
