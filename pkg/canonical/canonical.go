// Package canonical provides the name normalization used everywhere node
// identity is compared. Two names refer to the same entity if and only if
// their normalized forms are equal.
package canonical

import (
	"strings"
	"unicode"
)

// Normalize lowercases the name, strips every character that is not a
// letter, digit, space or hyphen, and collapses internal whitespace to
// single spaces. It is pure and idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
