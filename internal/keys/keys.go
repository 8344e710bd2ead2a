// Package keys derives the natural reconciliation key for a policy record
// and provides the text normalization used to match free-form headers and
// policy numbers.
package keys

import (
	"strings"
	"unicode"

	"cartera-reconciler/internal/dates"

	"golang.org/x/text/unicode/norm"
)

// TextKey folds a string for matching: lowercase, trimmed, diacritics
// stripped, whitespace removed, and every non-alphanumeric rune dropped.
// "No. Póliza " and "no poliza" collapse to the same key.
func TextKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	decomposed := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue // combining marks left behind by NFD
		}
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildKey derives the natural key from a policy number and a raw emission
// date value. The key is empty unless both components normalize: records
// without a key never participate in matching.
func BuildKey(policyNumber string, emissionRaw interface{}) string {
	p := TextKey(policyNumber)
	f := dates.Normalize(emissionRaw)
	if p == "" || f == "" {
		return ""
	}
	return p + "_" + f
}

// Resolve looks up a logical field in a row with arbitrary column naming.
// Each candidate header is matched against the row's actual keys by TextKey
// equality; the first candidate with a non-nil value wins, otherwise the
// empty string is returned.
func Resolve(row map[string]interface{}, candidates []string) interface{} {
	if len(row) == 0 {
		return ""
	}

	byKey := make(map[string]string, len(row))
	for header := range row {
		nk := TextKey(header)
		if _, seen := byKey[nk]; !seen {
			byKey[nk] = header
		}
	}

	for _, candidate := range candidates {
		if header, ok := byKey[TextKey(candidate)]; ok {
			if value := row[header]; value != nil {
				return value
			}
		}
	}
	return ""
}
