// normalize.go - Description normalization for pattern matching

package pattern

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics decomposes and removes combining marks, so "kavárna"
// and "kavarna" match the same pattern.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// stopwords are tokens too generic to be category evidence.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true,
	"shop": true, "store": true, "item": true,
}

// Normalize lowercases a description, strips diacritics and punctuation
// and collapses whitespace. Matching and learning both operate on this
// canonical form only.
func Normalize(desc string) string {
	s := strings.ToLower(strings.TrimSpace(desc))
	if out, _, err := transform.String(stripDiacritics, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits a normalized description into candidate keywords:
// alphabetic tokens of three or more runes, stopwords excluded.
func Tokenize(normalized string) []string {
	var out []string
	for _, tok := range strings.Fields(normalized) {
		if len([]rune(tok)) < 3 || stopwords[tok] {
			continue
		}
		if strings.IndexFunc(tok, unicode.IsLetter) == -1 {
			continue // pure numbers carry no category signal
		}
		out = append(out, tok)
	}
	return out
}

// MerchantCandidate extracts the substring most likely to identify the
// merchant: the first non-numeric token of four or more runes. Receipt
// headers and ledger descriptions both tend to lead with the brand name.
func MerchantCandidate(normalized string) string {
	for _, tok := range strings.Fields(normalized) {
		if len([]rune(tok)) >= 4 && strings.IndexFunc(tok, unicode.IsLetter) != -1 {
			return tok
		}
	}
	return ""
}
