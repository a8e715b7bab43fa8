// numeric.go - Canonicalization of recognized numeric tokens
//
// OCR output is inconsistent about thousand separators: "1 234", "1,234"
// and "1234" all appear for the same printed amount, and sometimes a dot
// is used as the grouping character. Every token must pass through here
// before any arithmetic or comparison.

package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// reAmountToken matches candidate amount tokens inside a line, including
// grouped thousands and an optional leading or trailing minus.
var reAmountToken = regexp.MustCompile(`[-−]?\d{1,3}(?:[ ,.]\d{3})+(?:[.,]\d{1,3})?|[-−]?\d+(?:[.,]\d{1,3})?[-−]?`)

// normalizeNumeric converts a recognized numeric token to a canonical
// form parseable by strconv: thousand separators stripped, "." as the
// decimal point, "-" prefix for negatives.
func normalizeNumeric(tok string) string {
	s := strings.TrimSpace(tok)
	if s == "" {
		return ""
	}

	neg := false
	// Unicode minus and trailing-minus notation both occur in OCR output.
	s = strings.ReplaceAll(s, "−", "-")
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if strings.HasSuffix(s, "-") {
		neg = true
		s = s[:len(s)-1]
	}

	// Spaces are always grouping noise.
	s = strings.ReplaceAll(s, " ", "")

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		// "1,234.56" - commas are grouping.
		s = strings.ReplaceAll(s, ",", "")
	case hasComma:
		// Only commas. A final comma with exactly 2 digits after it is a
		// decimal point ("12,50"); everything else is grouping ("1,234").
		last := strings.LastIndex(s, ",")
		if len(s)-last-1 == 2 && strings.Count(s, ",") == 1 {
			s = s[:last] + "." + s[last+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasDot:
		// Only dots. A dot followed by exactly 3 digits is a grouping
		// character ("1.090" is 1090), unless the integer part is zero:
		// "0.272" is a weight, never a grouped thousand.
		last := strings.LastIndex(s, ".")
		if len(s)-last-1 == 3 && strings.Count(s, ".") == 1 && s[:last] != "0" && s[:last] != "" {
			s = strings.ReplaceAll(s, ".", "")
		} else if strings.Count(s, ".") > 1 {
			// "1.234.567" - all grouping.
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	if neg {
		s = "-" + s
	}
	return s
}

// parseAmount parses a recognized numeric token into a float64.
func parseAmount(tok string) (float64, bool) {
	s := normalizeNumeric(tok)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// extractAmounts returns all parseable amount tokens in a line, in order.
func extractAmounts(line string) []float64 {
	var out []float64
	for _, tok := range reAmountToken.FindAllString(line, -1) {
		if v, ok := parseAmount(tok); ok {
			out = append(out, v)
		}
	}
	return out
}

// hasFraction reports whether v carries a fractional part after
// normalization. Used to tell weight-style quantities from unit prices.
func hasFraction(v float64) bool {
	return v != float64(int64(v))
}

// round2 rounds to two decimal places, the resolution of ledger amounts.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
