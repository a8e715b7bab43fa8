package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
		}},
		UsageMetadata: &genai.UsageMetadata{
			PromptTokenCount:     100,
			CandidatesTokenCount: 50,
		},
	}
}

const validReply = `{"items":[{"code":"4011","description":"BANANAS","amount":2.15,"is_tax":false,"confidence":0.92},{"description":"VAT 8%","amount":1.95,"is_tax":true,"confidence":0.8}],"total":4.10}`

func stubExtractor(call geminiCallFunc) *GeminiExtractor {
	g := NewGeminiExtractor("test-key", "", "", time.Second)
	g.call = call
	return g
}

func TestExtractFromTextUnconfigured(t *testing.T) {
	g := NewGeminiExtractor("", "", "", time.Second)
	g.call = func(ctx context.Context, modelName, prompt string, blob *genai.Blob) (*genai.GenerateContentResponse, error) {
		t.Fatal("unconfigured extractor must not reach the network")
		return nil, nil
	}

	out := g.ExtractFromText(context.Background(), recWithText("4011 BANANAS\n2.15"), receipt.TypeUnknown, nil)
	require.Empty(t, out.Items)
	require.False(t, out.HasTotal)
}

func TestExtractFromTextNetworkError(t *testing.T) {
	g := stubExtractor(func(ctx context.Context, modelName, prompt string, blob *genai.Blob) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	out := g.ExtractFromText(context.Background(), recWithText("4011 BANANAS"), receipt.TypeUnknown, nil)
	require.Empty(t, out.Items)
}

func TestExtractFromTextTimeout(t *testing.T) {
	g := stubExtractor(func(ctx context.Context, modelName, prompt string, blob *genai.Blob) (*genai.GenerateContentResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	g.timeout = 10 * time.Millisecond

	out := g.ExtractFromText(context.Background(), recWithText("4011 BANANAS"), receipt.TypeUnknown, nil)
	require.Empty(t, out.Items)
}

func TestExtractFromTextMalformedResponse(t *testing.T) {
	g := stubExtractor(func(ctx context.Context, modelName, prompt string, blob *genai.Blob) (*genai.GenerateContentResponse, error) {
		return textResponse("I could not find any items on this receipt, sorry!"), nil
	})

	out := g.ExtractFromText(context.Background(), recWithText("4011 BANANAS"), receipt.TypeUnknown, nil)
	require.Empty(t, out.Items)
}

func TestExtractFromTextValidResponse(t *testing.T) {
	var seenPrompt string
	g := stubExtractor(func(ctx context.Context, modelName, prompt string, blob *genai.Blob) (*genai.GenerateContentResponse, error) {
		seenPrompt = prompt
		require.Nil(t, blob)
		return textResponse(validReply), nil
	})

	out := g.ExtractFromText(context.Background(), recWithText("4011 BANANAS\n2.15"), receipt.TypeSupermarket, nil)
	require.Len(t, out.Items, 2)
	require.Equal(t, "BANANAS", out.Items[0].Description)
	require.Equal(t, "4011", out.Items[0].Code)
	require.False(t, out.Items[0].IsTax)
	require.True(t, out.Items[1].IsTax)
	require.True(t, out.HasTotal)
	require.InDelta(t, 4.10, out.StatedTotal, 1e-9)
	require.NotNil(t, out.Usage)
	require.Equal(t, 150, out.Usage.TotalTokens)
	require.Contains(t, seenPrompt, "4011 BANANAS")
}

func TestExtractFromTextLenientRecovery(t *testing.T) {
	g := stubExtractor(func(ctx context.Context, modelName, prompt string, blob *genai.Blob) (*genai.GenerateContentResponse, error) {
		return textResponse("Here is the result:\n```json\n" + validReply + "\n```\nLet me know!"), nil
	})

	out := g.ExtractFromText(context.Background(), recWithText("4011 BANANAS"), receipt.TypeUnknown, nil)
	require.Len(t, out.Items, 2)
}

func TestExtractFromImage(t *testing.T) {
	g := stubExtractor(func(ctx context.Context, modelName, prompt string, blob *genai.Blob) (*genai.GenerateContentResponse, error) {
		require.NotNil(t, blob)
		require.Equal(t, "image/png", blob.MIMEType)
		return textResponse(validReply), nil
	})

	out := g.ExtractFromImage(context.Background(), []byte{0x89, 0x50}, "image/png", receipt.TypeUnknown, nil)
	require.Len(t, out.Items, 2)

	// No image data means no call at all.
	out = g.ExtractFromImage(context.Background(), nil, "image/png", receipt.TypeUnknown, nil)
	require.Empty(t, out.Items)
}

func TestExtractFromTextEmptyReceipt(t *testing.T) {
	g := stubExtractor(func(ctx context.Context, modelName, prompt string, blob *genai.Blob) (*genai.GenerateContentResponse, error) {
		t.Fatal("empty receipt must not reach the network")
		return nil, nil
	})

	out := g.ExtractFromText(context.Background(), &receipt.RecognitionResult{}, receipt.TypeUnknown, nil)
	require.Empty(t, out.Items)
}

func recWithText(raw string) *receipt.RecognitionResult {
	return &receipt.RecognitionResult{RawText: raw}
}
