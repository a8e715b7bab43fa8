// response.go - Decoding of the structured adapter response
//
// Both providers request the same document shape: an ordered item list
// plus a total. Anything that deviates is run through the tolerant
// recovery in lenient.go before being given up on.

package ai

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bosocmputer/expense_scan_gemini/internal/common"
	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

// FlexibleFloat64 tolerates models returning numbers as strings, with
// currency noise or grouping separators.
type FlexibleFloat64 float64

// UnmarshalJSON accepts both 12.5 and "12.5" (or "1,250").
func (f *FlexibleFloat64) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleFloat64(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = 0
		return nil // tolerate any shape; a zero amount drops the item later
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimLeft(s, "$€£¥฿")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexibleFloat64(v)
	return nil
}

type itemPayload struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Amount      FlexibleFloat64 `json:"amount"`
	IsTax       bool            `json:"is_tax"`
	Confidence  FlexibleFloat64 `json:"confidence"`
}

type itemsDocument struct {
	Items []itemPayload   `json:"items"`
	Total FlexibleFloat64 `json:"total"`
}

// decodeItemsDocument parses a model reply into the expected document,
// strictly first and leniently on failure.
func decodeItemsDocument(raw string, reqCtx *common.RequestContext) (*itemsDocument, bool) {
	var doc itemsDocument
	if err := json.Unmarshal([]byte(raw), &doc); err == nil && len(doc.Items) > 0 {
		return &doc, true
	}

	// Best-effort recovery: markdown fences, surrounding prose, unescaped
	// control characters inside strings.
	cleaned := extractJSONObject(raw)
	if cleaned == "" {
		if reqCtx != nil {
			reqCtx.LogWarning("adapter response contains no JSON object (%d chars)", len(raw))
		}
		return nil, false
	}
	cleaned = fixJSONEscaping(cleaned)
	doc = itemsDocument{}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil || len(doc.Items) == 0 {
		if reqCtx != nil {
			reqCtx.LogWarning("adapter response failed lenient decode: %v", err)
		}
		return nil, false
	}
	if reqCtx != nil {
		reqCtx.LogInfo("♻️  Lenient JSON recovery succeeded (%d items)", len(doc.Items))
	}
	return &doc, true
}

// toOutcome converts the decoded document into the adapter contract,
// dropping unusable entries and clamping confidences to [0,1].
func (d *itemsDocument) toOutcome(usage *common.TokenUsage) Outcome {
	out := Outcome{Usage: usage}
	for _, p := range d.Items {
		desc := strings.TrimSpace(p.Description)
		if desc == "" && p.Code == "" {
			continue
		}
		amount := float64(p.Amount)
		if amount == 0 {
			continue
		}
		conf := float64(p.Confidence)
		if conf > 1 {
			conf = conf / 100 // some models answer on a 0-100 scale
		}
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}
		out.Items = append(out.Items, receipt.ScannedItem{
			Code:        strings.TrimSpace(p.Code),
			Description: desc,
			Amount:      amount,
			IsTax:       p.IsTax,
			Confidence:  conf,
		})
	}
	if d.Total != 0 {
		out.StatedTotal = float64(d.Total)
		out.HasTotal = true
	}
	return out
}
