package util

import "strings"

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// SanitizeText strips invalid UTF-8 sequences and NUL bytes, which
// Postgres rejects in text columns.
func SanitizeText(value string) string {
	if value == "" {
		return value
	}
	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// Truncate cuts s at max runes without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
