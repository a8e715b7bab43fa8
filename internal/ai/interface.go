// interface.go - Generative item-extractor interface
//
// Both adapter variants (text prompt and image prompt) share one
// contract and one failure discipline: whatever goes wrong, the caller
// receives an empty item list, never an error. Falling back to the
// deterministic parser is always possible, so failures at this layer are
// swallowed after being logged.

package ai

import (
	"context"

	"github.com/bosocmputer/expense_scan_gemini/internal/common"
	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

// Outcome is a generative extraction result. Empty Items is the uniform
// "nothing usable" signal. Usage is advisory observability data only.
type Outcome struct {
	Items       []receipt.ScannedItem
	StatedTotal float64
	HasTotal    bool
	Usage       *common.TokenUsage
}

// ItemExtractor is implemented by every generative provider.
type ItemExtractor interface {
	// ExtractFromText sends the recognized receipt text with a fixed
	// instruction prompt.
	ExtractFromText(ctx context.Context, rec *receipt.RecognitionResult, rtype receipt.Type, reqCtx *common.RequestContext) Outcome

	// ExtractFromImage sends the (preprocessed) receipt image directly.
	ExtractFromImage(ctx context.Context, imageData []byte, mimeType string, rtype receipt.Type, reqCtx *common.RequestContext) Outcome

	// Configured reports whether a credential is present. When false,
	// both extract methods return an empty Outcome without any network
	// call.
	Configured() bool

	// ProviderName returns the provider identifier, e.g. "gemini".
	ProviderName() string
}
