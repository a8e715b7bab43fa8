// receipt_classifier.go - Layout-family classification for recognized receipts

package processor

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/bosocmputer/expense_scan_gemini/internal/common"
	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

// Store-chain markers per layout family. Matching is fuzzy (edit
// distance <= 1 per word) because OCR mangles letterheads routinely.
var supermarketMarkers = []string{
	"walmart", "target", "kroger", "safeway", "aldi", "lidl", "costco",
	"tesco", "carrefour", "rewe", "edeka", "mercadona", "auchan",
	"supermarket", "hypermarket", "grocery",
}

var convenienceMarkers = []string{
	"7-eleven", "seven", "eleven", "familymart", "lawson", "circle",
	"oxxo", "wawa", "minimart", "kiosk", "convenience",
}

var restaurantMarkers = []string{
	"restaurant", "cafe", "bistro", "pizzeria", "diner", "grill",
	"bakery", "sushi", "burger", "tavern", "brasserie", "trattoria",
	"server", "table", "guests", "covers", "dine", "takeout", "tip",
	"gratuity",
}

var reClassifierWord = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}-]*`)
var reClassifierItemCode = regexp.MustCompile(`^\d[0-9A-Z]{2,12}\s+\p{L}`)

// ClassifyReceipt guesses the layout family of a recognized receipt so
// the parser and the generative prompts can use family-specific hints.
func ClassifyReceipt(rec *receipt.RecognitionResult, reqCtx *common.RequestContext) receipt.Type {
	if rec == nil {
		return receipt.TypeUnknown
	}

	lines := rec.FlattenLines()
	if len(lines) == 0 {
		return receipt.TypeUnknown
	}

	supermarketScore := 0
	convenienceScore := 0
	restaurantScore := 0
	codedLines := 0

	// The letterhead carries the strongest signal, so the first lines
	// count double.
	for i, line := range lines {
		weight := 1
		if i < 4 {
			weight = 2
		}

		for _, word := range reClassifierWord.FindAllString(strings.ToLower(line.Text), -1) {
			if matchesAnyMarker(word, supermarketMarkers) {
				supermarketScore += weight
			}
			if matchesAnyMarker(word, convenienceMarkers) {
				convenienceScore += weight
			}
			if matchesAnyMarker(word, restaurantMarkers) {
				restaurantScore += weight
			}
		}

		if reClassifierItemCode.MatchString(strings.TrimSpace(line.Text)) {
			codedLines++
		}
	}

	// Dense article codes are a register-printout trait; restaurants
	// print dish names without codes.
	if codedLines >= 3 {
		supermarketScore += 2
	}

	rtype := receipt.TypeUnknown
	best := 0
	for _, c := range []struct {
		t     receipt.Type
		score int
	}{
		{receipt.TypeSupermarket, supermarketScore},
		{receipt.TypeRestaurant, restaurantScore},
		{receipt.TypeConvenience, convenienceScore},
	} {
		if c.score > best {
			best = c.score
			rtype = c.t
		}
	}

	if reqCtx != nil {
		reqCtx.LogInfo("🏷️  Receipt classified as %s (supermarket=%d restaurant=%d convenience=%d coded_lines=%d)",
			rtype, supermarketScore, restaurantScore, convenienceScore, codedLines)
	}
	return rtype
}

// matchesAnyMarker reports whether word is within edit distance 1 of any
// marker. Words shorter than 4 runes must match exactly, otherwise "cafe"
// would absorb "care" and friends both ways on tiny tokens.
func matchesAnyMarker(word string, markers []string) bool {
	for _, marker := range markers {
		if word == marker {
			return true
		}
		if len(word) >= 4 && len(marker) >= 4 {
			if levenshtein.ComputeDistance(word, marker) <= 1 {
				return true
			}
		}
	}
	return false
}
