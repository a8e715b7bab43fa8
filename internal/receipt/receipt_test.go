package receipt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlattenLinesPrefersLineDetail(t *testing.T) {
	rec := &RecognitionResult{
		RawText: "ignored when blocks exist",
		Blocks: []TextBlock{
			{Lines: []TextLine{{Text: "first", Confidence: 0.9}, {Text: "second", Confidence: 0.8}}},
			{Text: "third\nfourth", Confidence: 0.7},
		},
	}

	lines := rec.FlattenLines()
	require.Len(t, lines, 4)
	require.Equal(t, "second", lines[1].Text)
	// Block-text fallback inherits the block confidence.
	require.Equal(t, "third", lines[2].Text)
	require.InDelta(t, 0.7, lines[2].Confidence, 1e-9)
}

func TestFlattenLinesRawTextFallback(t *testing.T) {
	rec := &RecognitionResult{RawText: "only\n\nraw"}
	lines := rec.FlattenLines()
	require.Len(t, lines, 2)
	require.Equal(t, "raw", lines[1].Text)

	var nilRec *RecognitionResult
	require.Nil(t, nilRec.FlattenLines())
}

func TestDeriveTotals(t *testing.T) {
	items := []ScannedItem{
		{Description: "A", Amount: 10},
		{Description: "B", Amount: 5.5},
		{Description: "VAT 8%", Amount: 1.24, IsTax: true},
	}

	itemTotal, taxTotal, itemCount, taxCount := DeriveTotals(items)
	require.InDelta(t, 15.5, itemTotal, 1e-9)
	require.InDelta(t, 1.24, taxTotal, 1e-9)
	require.Equal(t, 2, itemCount)
	require.Equal(t, 1, taxCount)

	itemTotal, taxTotal, itemCount, taxCount = DeriveTotals(nil)
	require.Zero(t, itemTotal)
	require.Zero(t, taxTotal)
	require.Zero(t, itemCount)
	require.Zero(t, taxCount)
}
