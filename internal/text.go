package internal

import (
	"strings"
	"unicode"
)

// SanitizeString replaces invalid utf-8 sequences with the replacement
// character.
func SanitizeString(input string) string {
	return strings.ToValidUTF8(input, string(unicode.ReplacementChar))
}

// FirstLine returns the first line of s without its line terminator.
func FirstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimRight(line, "\r")
}
