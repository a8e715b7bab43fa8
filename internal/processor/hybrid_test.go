package processor

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/expense_scan_gemini/configs"
	"github.com/bosocmputer/expense_scan_gemini/internal/ai"
	"github.com/bosocmputer/expense_scan_gemini/internal/common"
	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

func TestMain(m *testing.M) {
	configs.LoadConfig()
	os.Exit(m.Run())
}

// stubExtractor returns a fixed outcome and counts invocations.
type stubExtractor struct {
	configured bool
	outcome    ai.Outcome
	calls      int
}

func (s *stubExtractor) ExtractFromText(ctx context.Context, rec *receipt.RecognitionResult, rtype receipt.Type, reqCtx *common.RequestContext) ai.Outcome {
	s.calls++
	return s.outcome
}

func (s *stubExtractor) ExtractFromImage(ctx context.Context, imageData []byte, mimeType string, rtype receipt.Type, reqCtx *common.RequestContext) ai.Outcome {
	s.calls++
	return s.outcome
}

func (s *stubExtractor) Configured() bool { return s.configured }

func (s *stubExtractor) ProviderName() string { return "stub" }

func recFromLines(lines ...string) *receipt.RecognitionResult {
	return &receipt.RecognitionResult{RawText: strings.Join(lines, "\n")}
}

func coffeeReceipt() *receipt.RecognitionResult {
	return recFromLines(
		"10244 COFFEE GROUND",
		"12.99",
		"TOTAL 12.99",
	)
}

func genOutcome(amount float64) ai.Outcome {
	return ai.Outcome{
		Items: []receipt.ScannedItem{
			{Description: "COFFEE GROUND", Amount: amount, Confidence: 0.9},
		},
		StatedTotal: amount,
		HasTotal:    true,
	}
}

func TestParseReceiptWithoutCredential(t *testing.T) {
	stub := &stubExtractor{configured: false}
	o := NewOrchestrator(stub)

	opts := Options{PreferGenerative: true, Validate: true, Modality: ModalityText}
	res := o.ParseReceipt(context.Background(), coffeeReceipt(), opts, common.NewRequestContext("u1"))

	require.Equal(t, receipt.MethodDeterministic, res.Method)
	require.Equal(t, 1, res.ItemCount)
	require.InDelta(t, 12.99, res.ItemTotal, 1e-9)
	require.Zero(t, stub.calls, "unconfigured extractor must never be invoked")
}

func TestParseReceiptGenerativePreferred(t *testing.T) {
	stub := &stubExtractor{configured: true, outcome: genOutcome(12.99)}
	o := NewOrchestrator(stub)

	opts := Options{PreferGenerative: true, Validate: true, Modality: ModalityText}
	res := o.ParseReceipt(context.Background(), coffeeReceipt(), opts, common.NewRequestContext("u1"))

	require.Equal(t, receipt.MethodGenerativeText, res.Method)
	require.Equal(t, 1, stub.calls)
	require.Equal(t, 1, res.ItemCount)
	require.InDelta(t, 12.99, res.ItemTotal, 1e-9)
}

func TestParseReceiptGenerativeEmptyFallsBack(t *testing.T) {
	stub := &stubExtractor{configured: true} // empty outcome
	o := NewOrchestrator(stub)

	opts := Options{PreferGenerative: true, Validate: true, Modality: ModalityText}
	res := o.ParseReceipt(context.Background(), coffeeReceipt(), opts, common.NewRequestContext("u1"))

	require.Equal(t, 1, stub.calls)
	require.Equal(t, receipt.MethodDeterministic, res.Method)
	require.Equal(t, 1, res.ItemCount, "non-empty deterministic result must survive a failed generative call")
}

func TestParseReceiptValidationMismatch(t *testing.T) {
	// Same generative items, once with validation off and once with a
	// deterministic reference that disagrees far beyond tolerance.
	mismatched := genOutcome(50.00)

	noValidate := NewOrchestrator(&stubExtractor{configured: true, outcome: mismatched})
	baseline := noValidate.ParseReceipt(context.Background(), coffeeReceipt(),
		Options{PreferGenerative: true, Validate: false, Modality: ModalityText},
		common.NewRequestContext("u1"))

	validate := NewOrchestrator(&stubExtractor{configured: true, outcome: mismatched})
	penalized := validate.ParseReceipt(context.Background(), coffeeReceipt(),
		Options{PreferGenerative: true, Validate: true, Modality: ModalityText},
		common.NewRequestContext("u1"))

	// Items are kept either way; only the confidence drops.
	require.Equal(t, baseline.ItemCount, penalized.ItemCount)
	require.Equal(t, receipt.MethodGenerativeText, penalized.Method)
	require.Less(t, penalized.Confidence, baseline.Confidence)
}

func TestParseReceiptWithinTolerance(t *testing.T) {
	// 13.50 vs deterministic 12.99: inside the default 1.0 tolerance.
	stub := &stubExtractor{configured: true, outcome: genOutcome(13.50)}
	o := NewOrchestrator(stub)

	res := o.ParseReceipt(context.Background(), coffeeReceipt(),
		Options{PreferGenerative: true, Validate: true, Modality: ModalityText},
		common.NewRequestContext("u1"))

	noPenalty := NewOrchestrator(&stubExtractor{configured: true, outcome: genOutcome(13.50)})
	baseline := noPenalty.ParseReceipt(context.Background(), coffeeReceipt(),
		Options{PreferGenerative: true, Validate: false, Modality: ModalityText},
		common.NewRequestContext("u1"))

	require.InDelta(t, baseline.Confidence, res.Confidence, 1e-9)
}

func TestParseReceiptBothPathsEmpty(t *testing.T) {
	stub := &stubExtractor{configured: true}
	o := NewOrchestrator(stub)

	res := o.ParseReceipt(context.Background(), recFromLines("completely", "unusable", "noise"),
		Options{PreferGenerative: true, Validate: true, Modality: ModalityText},
		common.NewRequestContext("u1"))

	require.Empty(t, res.Items)
	require.Equal(t, receipt.MethodDeterministic, res.Method)
	require.Zero(t, res.ItemTotal)
	require.Zero(t, res.Confidence, "an empty result must not carry residual confidence")
}

func TestParseReceiptVisionModality(t *testing.T) {
	stub := &stubExtractor{configured: true, outcome: genOutcome(12.99)}
	o := NewOrchestrator(stub)

	opts := Options{
		PreferGenerative: true,
		Validate:         true,
		Modality:         ModalityVision,
		ImageData:        []byte("not a real image"),
		ImageMIME:        "image/jpeg",
	}
	res := o.ParseReceipt(context.Background(), &receipt.RecognitionResult{}, opts, common.NewRequestContext("u1"))

	require.Equal(t, receipt.MethodGenerativeVision, res.Method)
	require.Equal(t, 1, res.ItemCount)
	require.Equal(t, 1, stub.calls, "a usable first pass needs no retry")
}

func TestParseReceiptVisionRetriesHighQuality(t *testing.T) {
	stub := &stubExtractor{configured: true} // always empty
	o := NewOrchestrator(stub)

	opts := Options{
		PreferGenerative: true,
		Modality:         ModalityVision,
		ImageData:        []byte("not a real image"),
		ImageMIME:        "image/jpeg",
	}
	res := o.ParseReceipt(context.Background(), &receipt.RecognitionResult{}, opts, common.NewRequestContext("u1"))

	require.Equal(t, 2, stub.calls, "an empty vision pass gets one high-quality retry")
	require.Empty(t, res.Items)
}

func TestParseReceiptRecordsSubSteps(t *testing.T) {
	stub := &stubExtractor{configured: true, outcome: genOutcome(12.99)}
	o := NewOrchestrator(stub)

	reqCtx := common.NewRequestContext("u1")
	o.ParseReceipt(context.Background(), coffeeReceipt(),
		Options{PreferGenerative: true, Modality: ModalityText}, reqCtx)

	var gen *common.StepLog
	for i := range reqCtx.Steps {
		if reqCtx.Steps[i].Name == "generative_parse" {
			gen = &reqCtx.Steps[i]
		}
	}
	require.NotNil(t, gen)
	require.Len(t, gen.SubSteps, 1)
	require.Equal(t, "text_extraction", gen.SubSteps[0].Name)
}

func TestCalculateConfidence(t *testing.T) {
	require.Zero(t, CalculateConfidence(nil, 0, false, 10, nil))
	// A stated total with no items is still a failed parse.
	require.Zero(t, CalculateConfidence(nil, 65.22, true, 10, nil))

	items := []receipt.ScannedItem{
		{Description: "A", Amount: 5, Confidence: 0.9},
		{Description: "B", Amount: 5, Confidence: 0.9},
		{Description: "VAT", Amount: 1, IsTax: true, Confidence: 0.9},
	}

	agreeing := CalculateConfidence(items, 11, true, 6, nil)
	disagreeing := CalculateConfidence(items, 99, true, 6, nil)
	require.Greater(t, agreeing, disagreeing)
	require.LessOrEqual(t, agreeing, 1.0)
}
