package util

import (
	"strings"
	"unicode/utf8"
)

// NormalizeWhitespace collapses every whitespace run to a single space and
// trims the ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RuneLen counts code points, the unit post lengths are measured in.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

// Coalesce returns a if it is non-empty, otherwise b.
func Coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
