package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fold returns the case-folded form of s used as the identity key for nicks.
// A Caser keeps state, so one is built per call instead of being shared.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Lower lowercases s for display.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// EqualFold reports whether a and b are the same identity.
func EqualFold(a, b string) bool {
	if a == b {
		return true
	}
	return Fold(a) == Fold(b)
}

// HasPrefixFold checks if s has prefix case-insensitively
func HasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(Fold(s), Fold(prefix))
}

// StripNonAlnum drops every rune that is not a letter or a digit,
// so "_foo-bar_" becomes "foobar".
func StripNonAlnum(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsAlnum reports whether r is a letter or a digit.
func IsAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// TrimLastRune removes the final rune of s.
func TrimLastRune(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(r[:len(r)-1])
}
