// receipt.go - Core data model shared by the parsing and matching components.

package receipt

import (
	"strings"
	"time"
)

// TextLine is a single recognized line. Text is the exact recognized string,
// not normalized in any way.
type TextLine struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0..1
}

// TextBlock groups the lines the OCR engine recognized as one visual block.
type TextBlock struct {
	Text       string     `json:"text"`
	Lines      []TextLine `json:"lines"`
	Confidence float64    `json:"confidence"` // 0..1
}

// RecognitionResult is the input contract from the OCR collaborator.
// It is created once per receipt, owned by the caller, and passed by
// pointer into the parsing components. Nothing downstream mutates it.
type RecognitionResult struct {
	RawText        string        `json:"raw_text"`
	Blocks         []TextBlock   `json:"blocks"`
	ProcessingTime time.Duration `json:"processing_time_ns"`
	BlockCount     int           `json:"block_count"`
}

// FlattenLines returns all lines across all blocks in reading order.
// Blocks with no line detail fall back to splitting their block text,
// inheriting the block confidence.
func (r *RecognitionResult) FlattenLines() []TextLine {
	if r == nil {
		return nil
	}
	var lines []TextLine
	for _, block := range r.Blocks {
		if len(block.Lines) > 0 {
			lines = append(lines, block.Lines...)
			continue
		}
		for _, txt := range strings.Split(block.Text, "\n") {
			if strings.TrimSpace(txt) == "" {
				continue
			}
			lines = append(lines, TextLine{Text: txt, Confidence: block.Confidence})
		}
	}
	// Some OCR engines only fill RawText for very small receipts.
	if len(lines) == 0 && r.RawText != "" {
		for _, txt := range strings.Split(r.RawText, "\n") {
			if strings.TrimSpace(txt) == "" {
				continue
			}
			lines = append(lines, TextLine{Text: txt, Confidence: 1.0})
		}
	}
	return lines
}

// ScannedItem is one normalized line entry extracted from a receipt.
// Amount is the final line amount after discounts are folded in; discounts
// never appear as separate entries in parser output.
type ScannedItem struct {
	Code        string  `json:"code,omitempty"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category,omitempty"` // empty until matched
	IsTax       bool    `json:"is_tax"`             // tax/fee summary line, not an ordinary item
	Confidence  float64 `json:"confidence"`         // 0..1
}

// Type is the receipt layout family classification.
type Type string

const (
	TypeSupermarket Type = "supermarket"
	TypeRestaurant  Type = "restaurant"
	TypeConvenience Type = "convenience"
	TypeUnknown     Type = "unknown"
)

// ParseMethod identifies which parsing path produced the result.
type ParseMethod string

const (
	MethodDeterministic    ParseMethod = "deterministic"
	MethodGenerativeText   ParseMethod = "generative-text"
	MethodGenerativeVision ParseMethod = "generative-vision"
)

// HybridParseResult is the orchestrator's output. Created once per
// invocation and immutable thereafter.
type HybridParseResult struct {
	Items          []ScannedItem `json:"items"`
	Method         ParseMethod   `json:"method"`
	ReceiptType    Type          `json:"receipt_type"`
	Confidence     float64       `json:"confidence"` // 0..1
	ProcessingTime time.Duration `json:"processing_time_ns"`
	ItemTotal      float64       `json:"item_total"`
	TaxTotal       float64       `json:"tax_total"`
	ItemCount      int           `json:"item_count"`
	TaxCount       int           `json:"tax_count"`
}

// DeriveTotals computes the item/tax sums and counts from a final item list.
func DeriveTotals(items []ScannedItem) (itemTotal, taxTotal float64, itemCount, taxCount int) {
	for _, it := range items {
		if it.IsTax {
			taxTotal += it.Amount
			taxCount++
		} else {
			itemTotal += it.Amount
			itemCount++
		}
	}
	return itemTotal, taxTotal, itemCount, taxCount
}
