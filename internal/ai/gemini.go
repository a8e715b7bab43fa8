// gemini.go - Gemini item extractor (text and vision variants)

package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bosocmputer/expense_scan_gemini/internal/common"
	"github.com/bosocmputer/expense_scan_gemini/internal/ratelimit"
	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiCallFunc performs one model invocation. Swappable so tests can
// simulate network failures and malformed replies without a live API.
type geminiCallFunc func(ctx context.Context, modelName, prompt string, blob *genai.Blob) (*genai.GenerateContentResponse, error)

// GeminiExtractor implements ItemExtractor against the Gemini API.
// One client per call, one attempt per receipt, bounded by timeout.
type GeminiExtractor struct {
	apiKey      string
	textModel   string
	visionModel string
	timeout     time.Duration
	call        geminiCallFunc
}

// NewGeminiExtractor creates a Gemini extractor. An empty apiKey is
// allowed and simply leaves the extractor unconfigured.
func NewGeminiExtractor(apiKey, textModel, visionModel string, timeout time.Duration) *GeminiExtractor {
	if textModel == "" {
		textModel = "gemini-2.5-flash"
	}
	if visionModel == "" {
		visionModel = textModel
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	g := &GeminiExtractor{
		apiKey:      apiKey,
		textModel:   textModel,
		visionModel: visionModel,
		timeout:     timeout,
	}
	g.call = g.callGemini
	return g
}

// Configured reports whether an API key is present.
func (g *GeminiExtractor) Configured() bool {
	return g.apiKey != ""
}

// ProviderName returns "gemini"
func (g *GeminiExtractor) ProviderName() string {
	return "gemini"
}

// ExtractFromText sends the recognized receipt text to the text model.
func (g *GeminiExtractor) ExtractFromText(ctx context.Context, rec *receipt.RecognitionResult, rtype receipt.Type, reqCtx *common.RequestContext) Outcome {
	if !g.Configured() {
		logUnconfigured(reqCtx, "gemini")
		return Outcome{}
	}
	text := recognizedText(rec)
	if strings.TrimSpace(text) == "" {
		return Outcome{}
	}
	prompt := GetTextParsePrompt(rtype) + text
	return g.generate(ctx, g.textModel, prompt, nil, reqCtx)
}

// ExtractFromImage sends the receipt image to the vision model.
func (g *GeminiExtractor) ExtractFromImage(ctx context.Context, imageData []byte, mimeType string, rtype receipt.Type, reqCtx *common.RequestContext) Outcome {
	if !g.Configured() {
		logUnconfigured(reqCtx, "gemini")
		return Outcome{}
	}
	if len(imageData) == 0 {
		return Outcome{}
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	blob := &genai.Blob{MIMEType: mimeType, Data: imageData}
	return g.generate(ctx, g.visionModel, GetVisionParsePrompt(rtype), blob, reqCtx)
}

// generate runs one bounded call and decodes the structured reply.
// Every failure path collapses to an empty Outcome.
func (g *GeminiExtractor) generate(ctx context.Context, modelName, prompt string, blob *genai.Blob, reqCtx *common.RequestContext) Outcome {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.call(cctx, modelName, prompt, blob)
	if err != nil {
		apiErr := categorizeAPIError(err)
		if reqCtx != nil {
			reqCtx.LogWarning("gemini call failed after %.2fs: %v", time.Since(start).Seconds(), apiErr)
		}
		return Outcome{}
	}

	text := responseText(resp)
	usage := responseUsage(resp)
	if text == "" {
		if reqCtx != nil {
			reqCtx.LogWarning("gemini returned no text parts")
		}
		return Outcome{Usage: usage}
	}

	doc, ok := decodeItemsDocument(text, reqCtx)
	if !ok {
		return Outcome{Usage: usage}
	}
	out := doc.toOutcome(usage)
	if reqCtx != nil {
		reqCtx.LogInfo("🤖 Gemini %s extracted %d items in %.2fs", modelName, len(out.Items), time.Since(start).Seconds())
	}
	return out
}

// callGemini is the production call path: per-call client, JSON response
// schema, rate-limited.
func (g *GeminiExtractor) callGemini(ctx context.Context, modelName, prompt string, blob *genai.Blob) (*genai.GenerateContentResponse, error) {
	ratelimit.WaitForRateLimit()

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: ptr(int32(8192)),
	}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = createItemListSchema()

	parts := []genai.Part{genai.Text(prompt)}
	if blob != nil {
		parts = append(parts, *blob)
	}
	return model.GenerateContent(ctx, parts...)
}

// createItemListSchema constrains the reply to the adapter contract.
func createItemListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"items": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"code":        {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"amount":      {Type: genai.TypeNumber},
						"is_tax":      {Type: genai.TypeBoolean},
						"confidence":  {Type: genai.TypeNumber},
					},
					Required: []string{"description", "amount", "is_tax", "confidence"},
				},
			},
			"total": {Type: genai.TypeNumber},
		},
		Required: []string{"items", "total"},
	}
}

func ptr(i int32) *int32 {
	return &i
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

// responseUsage converts the API usage metadata to cost-annotated usage.
func responseUsage(resp *genai.GenerateContentResponse) *common.TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	usage := common.CalculateTokenCost(
		int(resp.UsageMetadata.PromptTokenCount),
		int(resp.UsageMetadata.CandidatesTokenCount),
	)
	return &usage
}

// recognizedText prefers the raw full text, falling back to rejoining
// the flattened lines.
func recognizedText(rec *receipt.RecognitionResult) string {
	if rec == nil {
		return ""
	}
	if strings.TrimSpace(rec.RawText) != "" {
		return rec.RawText
	}
	var b strings.Builder
	for _, line := range rec.FlattenLines() {
		b.WriteString(line.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

func logUnconfigured(reqCtx *common.RequestContext, provider string) {
	if reqCtx != nil {
		reqCtx.LogInfo("⏭️  %s adapter skipped: no API key configured", provider)
	}
}
