package processor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

func TestClassifySupermarket(t *testing.T) {
	rec := recFromLines(
		"WALMART SUPERCENTER",
		"4011 BANANAS",
		"0.75 x 1.20",
		"70412 WHOLE MILK 3.49",
		"83921 BREAD LOAF 2.25",
		"11203 EGGS LARGE 5.99",
		"TOTAL 12.83",
	)
	require.Equal(t, receipt.TypeSupermarket, ClassifyReceipt(rec, nil))
}

func TestClassifySupermarketFuzzyMarker(t *testing.T) {
	// OCR dropped a letter from the letterhead.
	rec := recFromLines(
		"WALMRT #2091",
		"4011 BANANAS 2.15",
		"70412 MILK 3.49",
		"83921 BREAD 2.25",
	)
	require.Equal(t, receipt.TypeSupermarket, ClassifyReceipt(rec, nil))
}

func TestClassifyRestaurant(t *testing.T) {
	rec := recFromLines(
		"RIVERSIDE CAFE",
		"Table 4  Guests 2",
		"Carbonara       14.50",
		"House Red Wine  6.00",
		"Tiramisu        7.00",
		"Gratuity not included",
	)
	require.Equal(t, receipt.TypeRestaurant, ClassifyReceipt(rec, nil))
}

func TestClassifyConvenience(t *testing.T) {
	rec := recFromLines(
		"7-ELEVEN STORE 10442",
		"COLD BREW 3.00",
		"ENERGY BAR 2.50",
	)
	require.Equal(t, receipt.TypeConvenience, ClassifyReceipt(rec, nil))
}

func TestClassifyUnknown(t *testing.T) {
	require.Equal(t, receipt.TypeUnknown, ClassifyReceipt(nil, nil))
	require.Equal(t, receipt.TypeUnknown, ClassifyReceipt(&receipt.RecognitionResult{}, nil))
	require.Equal(t, receipt.TypeUnknown, ClassifyReceipt(recFromLines("nothing", "to", "see"), nil))
}

func TestClassifierShortTokensMatchExactOnly(t *testing.T) {
	// Tokens under four runes never fuzzy-match, so a truncated "caf"
	// carries no restaurant signal.
	require.Equal(t, receipt.TypeUnknown, ClassifyReceipt(recFromLines("caf 12"), nil))
}
