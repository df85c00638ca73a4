package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Fyzika I" stays, "Dějepis" -> "Dejepis").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeSubject folds a subject name into its comparison form (trimmed,
// lowercase, no diacritics, collapsed inner whitespace). Repositories match
// and deduplicate subjects on this form while storing the original for
// display.
func NormalizeSubject(subject string) string {
	subject = RemoveDiacritics(subject)
	subject = strings.ToLower(strings.TrimSpace(subject))
	return strings.Join(strings.Fields(subject), " ")
}
