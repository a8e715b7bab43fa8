// hybrid.go - Hybrid parse orchestrator
//
// Coordinates the deterministic line parser and the generative extractor.
// The generative path is preferred when available; the deterministic
// parser is the unconditional fallback, so a receipt comes back empty
// only when both paths produced nothing.

package processor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bosocmputer/expense_scan_gemini/configs"
	"github.com/bosocmputer/expense_scan_gemini/internal/ai"
	"github.com/bosocmputer/expense_scan_gemini/internal/common"
	"github.com/bosocmputer/expense_scan_gemini/internal/parser"
	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

// Modality selects which generative adapter variant the orchestrator calls
type Modality string

const (
	ModalityText   Modality = "text"
	ModalityVision Modality = "vision"
)

// Options controls a single ParseReceipt invocation
type Options struct {
	PreferGenerative bool
	Validate         bool
	Modality         Modality
	ImageData        []byte
	ImageMIME        string
}

// DefaultOptions mirrors the configured defaults for the text path
func DefaultOptions() Options {
	return Options{
		PreferGenerative: configs.PREFER_GENERATIVE,
		Validate:         configs.ENABLE_VALIDATION,
		Modality:         ModalityText,
	}
}

// Orchestrator runs the hybrid parse pipeline. Safe for concurrent use:
// per-call state lives on the stack.
type Orchestrator struct {
	extractor ai.ItemExtractor
	parser    *parser.Parser

	tolerance float64
	penalty   float64
}

// NewOrchestrator wires the pipeline from configuration
func NewOrchestrator(extractor ai.ItemExtractor) *Orchestrator {
	return &Orchestrator{
		extractor: extractor,
		parser:    parser.NewParser(),
		tolerance: configs.VALIDATION_TOLERANCE,
		penalty:   configs.CONFIDENCE_PENALTY,
	}
}

// ParseReceipt turns a recognition result into categorizable line items.
func (o *Orchestrator) ParseReceipt(ctx context.Context, rec *receipt.RecognitionResult, opts Options, reqCtx *common.RequestContext) receipt.HybridParseResult {
	start := time.Now()

	reqCtx.StartStep("classify_receipt_type")
	rtype := ClassifyReceipt(rec, reqCtx)
	reqCtx.EndStep("success", nil, nil)

	lineCount := 0
	if rec != nil {
		lineCount = len(rec.FlattenLines())
	}

	var genOutcome ai.Outcome
	usedGenerative := false
	method := receipt.MethodDeterministic

	if opts.PreferGenerative && o.extractor != nil && o.extractor.Configured() {
		reqCtx.StartStep("generative_parse")
		switch opts.Modality {
		case ModalityVision:
			reqCtx.StartSubStep("preprocess_image")
			imageData, imageMIME := PreprocessImage(opts.ImageData, opts.ImageMIME)
			reqCtx.EndSubStep(imageMIME)

			reqCtx.StartSubStep("vision_extraction")
			genOutcome = o.extractor.ExtractFromImage(ctx, imageData, imageMIME, rtype, reqCtx)
			reqCtx.EndSubStep(fmt.Sprintf("%d item(s)", len(genOutcome.Items)))

			// One more pass with the aggressive enhancement pipeline
			// before giving up on the image entirely.
			if len(genOutcome.Items) == 0 && len(opts.ImageData) > 0 {
				reqCtx.LogWarning("vision pass empty, retrying with high-quality preprocessing")
				reqCtx.StartSubStep("vision_extraction_high_quality")
				imageData, imageMIME = PreprocessImageHighQuality(opts.ImageData, opts.ImageMIME)
				genOutcome = o.extractor.ExtractFromImage(ctx, imageData, imageMIME, rtype, reqCtx)
				reqCtx.EndSubStep(fmt.Sprintf("%d item(s)", len(genOutcome.Items)))
			}
			method = receipt.MethodGenerativeVision
		default:
			reqCtx.StartSubStep("text_extraction")
			genOutcome = o.extractor.ExtractFromText(ctx, rec, rtype, reqCtx)
			reqCtx.EndSubStep(fmt.Sprintf("%d item(s)", len(genOutcome.Items)))
			method = receipt.MethodGenerativeText
		}
		usedGenerative = len(genOutcome.Items) > 0
		if usedGenerative {
			reqCtx.EndStep("success", genOutcome.Usage, nil)
		} else {
			reqCtx.EndStep("empty", genOutcome.Usage, nil)
		}
		if !usedGenerative {
			reqCtx.LogWarning("generative path produced no items, falling back to deterministic parser")
		}
	}

	var items []receipt.ScannedItem
	statedTotal := 0.0
	hasStatedTotal := false
	penalized := false

	if usedGenerative {
		items = genOutcome.Items
		statedTotal = genOutcome.StatedTotal
		hasStatedTotal = genOutcome.HasTotal

		if opts.Validate && opts.Modality != ModalityVision {
			reqCtx.StartStep("cross_validation")
			det := o.parser.Parse(rec)
			penalized = o.validateAgainst(genOutcome.Items, det, reqCtx)
			if !hasStatedTotal && det.HasStatedTotal {
				statedTotal = det.StatedTotal
				hasStatedTotal = true
			}
			reqCtx.EndStep("success", nil, nil)
		}
	} else {
		method = receipt.MethodDeterministic
		reqCtx.StartStep("deterministic_parse")
		det := o.parser.Parse(rec)
		items = det.Items
		statedTotal = det.StatedTotal
		hasStatedTotal = det.HasStatedTotal
		reqCtx.EndStep("success", nil, nil)
	}

	confidence := CalculateConfidence(items, statedTotal, hasStatedTotal, lineCount, reqCtx)
	if penalized {
		confidence = math.Round(confidence*o.penalty*100) / 100
		reqCtx.LogWarning("totals disagree beyond ±%.2f, confidence reduced to %.2f (items kept)", o.tolerance, confidence)
	}

	itemTotal, taxTotal, itemCount, taxCount := receipt.DeriveTotals(items)

	result := receipt.HybridParseResult{
		Items:          items,
		Method:         method,
		ReceiptType:    rtype,
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
		ItemTotal:      itemTotal,
		TaxTotal:       taxTotal,
		ItemCount:      itemCount,
		TaxCount:       taxCount,
	}

	reqCtx.LogInfo("✅ Parse complete: %d item(s) + %d tax line(s) via %s (confidence: %.2f)",
		itemCount, taxCount, method, confidence)
	return result
}

// validateAgainst compares the generative ordinary-item sum with the
// deterministic one (or the printed footer total when the deterministic
// parser found nothing). Reports whether the mismatch exceeds tolerance.
// Generative items are never discarded here; disagreement only costs
// confidence.
func (o *Orchestrator) validateAgainst(genItems []receipt.ScannedItem, det parser.Result, reqCtx *common.RequestContext) bool {
	genSum, _, _, _ := receipt.DeriveTotals(genItems)

	var reference float64
	switch {
	case len(det.Items) > 0:
		detSum, _, _, _ := receipt.DeriveTotals(det.Items)
		reference = detSum
	case det.HasStatedTotal:
		reference = det.StatedTotal
	default:
		reqCtx.LogInfo("🔍 Cross-validation skipped: no deterministic reference")
		return false
	}

	diff := math.Abs(genSum - reference)
	reqCtx.LogInfo("🔍 Cross-validation: generative sum %.2f vs reference %.2f (diff %.2f, tolerance %.2f)",
		genSum, reference, diff, o.tolerance)
	return diff > o.tolerance
}
