// confidence_calculator.go - Weighted confidence score for parsed receipts

package processor

import (
	"math"

	"github.com/bosocmputer/expense_scan_gemini/internal/common"
	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

// ConfidenceFactors holds the per-factor scores (0-1)
type ConfidenceFactors struct {
	ItemConfidence  float64 `json:"item_confidence"`  // mean per-item confidence from the extraction path
	ItemCoverage    float64 `json:"item_coverage"`    // how plausible the item count is for the text volume
	TotalsAgreement float64 `json:"totals_agreement"` // item sum vs stated total from the receipt
	TaxPresence     float64 `json:"tax_presence"`     // whether tax entries were recognized
}

// ConfidenceWeights weights of each factor (must sum to 1.0)
type ConfidenceWeights struct {
	ItemConfidence  float64
	ItemCoverage    float64
	TotalsAgreement float64
	TaxPresence     float64
}

// DefaultWeights standard weights used for scoring
var DefaultWeights = ConfidenceWeights{
	ItemConfidence:  0.40, // 40% - the extractor's own certainty matters most
	ItemCoverage:    0.25, // 25% - empty or implausibly sparse results are suspect
	TotalsAgreement: 0.25, // 25% - arithmetic against the printed total
	TaxPresence:     0.10, // 10% - most register receipts carry a tax block
}

// CalculateConfidence scores a parsed item set in [0,1]
func CalculateConfidence(
	items []receipt.ScannedItem,
	statedTotal float64,
	hasStatedTotal bool,
	lineCount int,
	reqCtx *common.RequestContext,
) float64 {
	// An empty item set is the pipeline's one failure state; nothing
	// about it deserves a nonzero score.
	if len(items) == 0 {
		return 0
	}

	factors := ConfidenceFactors{
		ItemConfidence:  meanItemConfidence(items),
		ItemCoverage:    coverageScore(items, lineCount),
		TotalsAgreement: totalsScore(items, statedTotal, hasStatedTotal),
		TaxPresence:     taxScore(items),
	}

	score := factors.ItemConfidence*DefaultWeights.ItemConfidence +
		factors.ItemCoverage*DefaultWeights.ItemCoverage +
		factors.TotalsAgreement*DefaultWeights.TotalsAgreement +
		factors.TaxPresence*DefaultWeights.TaxPresence

	score = math.Round(score*100) / 100
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}

	if reqCtx != nil {
		reqCtx.LogInfo("📊 Confidence Calculation:")
		reqCtx.LogInfo("  ├─ Item Confidence: %.2f (weight: %.0f%%)", factors.ItemConfidence, DefaultWeights.ItemConfidence*100)
		reqCtx.LogInfo("  ├─ Item Coverage: %.2f (weight: %.0f%%)", factors.ItemCoverage, DefaultWeights.ItemCoverage*100)
		reqCtx.LogInfo("  ├─ Totals Agreement: %.2f (weight: %.0f%%)", factors.TotalsAgreement, DefaultWeights.TotalsAgreement*100)
		reqCtx.LogInfo("  ├─ Tax Presence: %.2f (weight: %.0f%%)", factors.TaxPresence, DefaultWeights.TaxPresence*100)
		reqCtx.LogInfo("  └─ Overall: %.2f", score)
	}

	return score
}

func meanItemConfidence(items []receipt.ScannedItem) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0.0
	for _, item := range items {
		c := item.Confidence
		if c <= 0 {
			// Items without a recorded confidence count as middling
			// rather than dragging the whole receipt to zero.
			c = 0.5
		}
		if c > 1 {
			c = 1
		}
		sum += c
	}
	return sum / float64(len(items))
}

// coverageScore compares the item count against the number of recognized
// lines. A 40-line receipt that yielded one item is probably a bad parse.
func coverageScore(items []receipt.ScannedItem, lineCount int) float64 {
	if len(items) == 0 {
		return 0
	}
	if lineCount <= 0 {
		return 0.7
	}
	ratio := float64(len(items)) / float64(lineCount)
	// Item lines typically make up 25-60% of a register receipt.
	switch {
	case ratio >= 0.25:
		return 1.0
	case ratio >= 0.10:
		return 0.7
	default:
		return 0.4
	}
}

func totalsScore(items []receipt.ScannedItem, statedTotal float64, hasStatedTotal bool) float64 {
	if !hasStatedTotal {
		return 0.5 // nothing to reconcile against, neutral
	}
	sum := 0.0
	for _, item := range items {
		sum += item.Amount
	}
	diff := math.Abs(sum - statedTotal)
	switch {
	case diff <= 0.01:
		return 1.0
	case diff <= 1.0:
		return 0.85
	case statedTotal > 0 && diff/statedTotal <= 0.10:
		return 0.5
	default:
		return 0.2
	}
}

func taxScore(items []receipt.ScannedItem) float64 {
	for _, item := range items {
		if item.IsTax {
			return 1.0
		}
	}
	return 0.4
}
