// Package utils provides shared helpers for text handling and logging.
package utils

import (
	"strings"
	"unicode"
)

// Truncate returns s cut to at most maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// Tokenize lower-cases s and splits it into runs of letters and digits.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// CollapseWhitespace trims s and replaces every whitespace run with one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Dedupe returns values with duplicates and empty strings removed, keeping first occurrences.
func Dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
