package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

func recFromLines(lines ...string) *receipt.RecognitionResult {
	return &receipt.RecognitionResult{RawText: strings.Join(lines, "\n")}
}

func TestParseSupermarketReceipt(t *testing.T) {
	rec := recFromLines(
		"SUPERMART STORE #42",
		"OPEN DAILY 8-22",
		"4011 BANANAS",
		"0.75 x 1.20",
		"70412 WHOLE MILK 3.49",
		"83921 BREAD LOAF",
		"2 x 2.25",
		"11203 EGGS LARGE",
		"5.99",
		"99887 CHEESE BLOCK",
		"7.49",
		"55301 ORANGE JUICE 4.29",
		"10244 COFFEE GROUND",
		"12.99",
		"-2.00",
		"66FRZ2 PIZZA FROZEN",
		"6.99",
		"20517 YOGURT 4PK",
		"3.79",
		"30901 APPLES GALA",
		"1.5 x 2.00",
		"DELI SANDWICH   6.50",
		"40213 PASTA PENNE",
		"1.89",
		"50111 TOMATO SAUCE 2.35",
		"SUBTOTAL 62.17",
		"VAT 5% 1.10",
		"VAT 8% 1.95",
		"TOTAL 65.22",
		"CASH 70.00",
		"CHANGE 4.78",
		"THANK YOU",
	)

	res := NewParser().Parse(rec)

	var ordinary, tax []receipt.ScannedItem
	for _, it := range res.Items {
		if it.IsTax {
			tax = append(tax, it)
		} else {
			ordinary = append(ordinary, it)
		}
	}

	require.Len(t, ordinary, 13)
	require.Len(t, tax, 2)

	sum := 0.0
	for _, it := range res.Items {
		sum += it.Amount
	}
	require.True(t, res.HasStatedTotal)
	require.InDelta(t, 65.22, res.StatedTotal, 1e-9)
	require.InDelta(t, res.StatedTotal, sum, 1.0)

	// Spot checks on the interesting lines.
	require.Equal(t, "BANANAS", ordinary[0].Description)
	require.InDelta(t, 0.90, ordinary[0].Amount, 1e-9) // 0.75 x 1.20
	require.Equal(t, "WHOLE MILK", ordinary[1].Description)
	require.InDelta(t, 3.49, ordinary[1].Amount, 1e-9)
	require.Equal(t, "COFFEE GROUND", ordinary[6].Description)
	require.InDelta(t, 10.99, ordinary[6].Amount, 1e-9) // 12.99 - 2.00
	require.Equal(t, "DELI SANDWICH", ordinary[10].Description)
	require.Empty(t, ordinary[10].Code)

	require.InDelta(t, 1.10, tax[0].Amount, 1e-9)
	require.InDelta(t, 1.95, tax[1].Amount, 1e-9)

	// The total itself must never surface as an item.
	for _, it := range res.Items {
		require.NotContains(t, strings.ToLower(it.Description), "total")
		require.NotContains(t, strings.ToLower(it.Description), "cash")
		require.NotContains(t, strings.ToLower(it.Description), "change")
	}
}

func TestParseWeightBasedItem(t *testing.T) {
	// The unit price and weight are recomputed locally even when they
	// arrive on separate lines and the unit price carries a grouping dot.
	res := NewParser().Parse(recFromLines(
		"4011 BANANAS",
		"0.272",
		"1.090",
	))

	require.Len(t, res.Items, 1)
	require.InDelta(t, 296.48, res.Items[0].Amount, 1e-9) // 0.272 x 1090
}

func TestLoneFractionalLineIsThePrice(t *testing.T) {
	// A single fractional value under 10 looks like a weight quantity,
	// but with no unit price following it must resolve as the line
	// price, never silently drop the item.
	res := NewParser().Parse(recFromLines(
		"11203 EGGS LARGE",
		"5.99",
	))

	require.Len(t, res.Items, 1)
	require.Equal(t, "EGGS LARGE", res.Items[0].Description)
	require.InDelta(t, 5.99, res.Items[0].Amount, 1e-9)
}

func TestParseQuantityTimesUnit(t *testing.T) {
	res := NewParser().Parse(recFromLines(
		"55012 SODA CAN",
		"2 x 35.90",
	))

	require.Len(t, res.Items, 1)
	require.InDelta(t, 71.80, res.Items[0].Amount, 1e-9)
}

func TestDiscountFoldsIntoPendingItem(t *testing.T) {
	res := NewParser().Parse(recFromLines(
		"10244 COFFEE GROUND",
		"12.99",
		"-2.00",
	))

	require.Len(t, res.Items, 1)
	require.InDelta(t, 10.99, res.Items[0].Amount, 1e-9)
}

func TestDiscountFoldsIntoLastEmittedItem(t *testing.T) {
	res := NewParser().Parse(recFromLines(
		"COFFEE LARGE  4.00",
		"-0.50",
	))

	require.Len(t, res.Items, 1)
	require.InDelta(t, 3.50, res.Items[0].Amount, 1e-9)
}

func TestLabelledDiscountLine(t *testing.T) {
	res := NewParser().Parse(recFromLines(
		"DELI SANDWICH  6.50",
		"STAFF DISCOUNT  -1.00",
	))

	require.Len(t, res.Items, 1)
	require.Equal(t, "DELI SANDWICH", res.Items[0].Description)
	require.InDelta(t, 5.50, res.Items[0].Amount, 1e-9)
}

func TestItemFullyDiscountedIsDropped(t *testing.T) {
	res := NewParser().Parse(recFromLines(
		"10244 FREEBIE",
		"5.00",
		"-5.00",
	))

	require.Empty(t, res.Items)
}

func TestStatedTotalLastWins(t *testing.T) {
	res := NewParser().Parse(recFromLines(
		"TOTAL 10.00",
		"GRAND TOTAL 12.00",
	))

	require.True(t, res.HasStatedTotal)
	require.InDelta(t, 12.00, res.StatedTotal, 1e-9)
	require.Empty(t, res.Items)
}

func TestParseEmptyInput(t *testing.T) {
	res := NewParser().Parse(&receipt.RecognitionResult{})
	require.Empty(t, res.Items)
	require.False(t, res.HasStatedTotal)

	res = NewParser().Parse(recFromLines("random scribbles", "###", "???"))
	require.Empty(t, res.Items)
}

func TestConfidenceAveragedAcrossLines(t *testing.T) {
	rec := &receipt.RecognitionResult{
		Blocks: []receipt.TextBlock{{
			Lines: []receipt.TextLine{
				{Text: "10244 COFFEE GROUND", Confidence: 0.9},
				{Text: "12.99", Confidence: 0.7},
			},
		}},
	}

	res := NewParser().Parse(rec)
	require.Len(t, res.Items, 1)
	require.InDelta(t, 0.8, res.Items[0].Confidence, 1e-9)
}
