// Package textnorm folds user text into the comparable form every matcher uses:
// lower case, no diacritics, single spaces.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text, strips combining marks ("manhã" -> "manha")
// and collapses runs of whitespace.
func Normalize(text string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		text,
	)
	if err != nil {
		folded = text
	}
	return CollapseSpaces(strings.ToLower(folded))
}

// CollapseSpaces trims text and replaces every whitespace run with one space.
func CollapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Words splits normalized text into word tokens, dropping punctuation.
func Words(text string) []string {
	return strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// IsNumeric reports whether text (after trimming) is made only of digits.
func IsNumeric(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ContainsAny reports whether normalized text contains any of the phrases.
// Phrases must already be normalized.
func ContainsAny(text string, phrases ...string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}
