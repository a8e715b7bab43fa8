// openai.go - OpenAI-compatible chat-completions client for receipt item extraction

package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bosocmputer/expense_scan_gemini/internal/common"
	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

// OpenAIExtractor implements ItemExtractor against any OpenAI-compatible
// chat-completions endpoint (OpenAI, local vLLM, OpenRouter, etc.)
type OpenAIExtractor struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewOpenAIExtractor creates a new OpenAI-compatible provider
func NewOpenAIExtractor(apiKey, baseURL, model string, timeout time.Duration) *OpenAIExtractor {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OpenAIExtractor{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: timeout,
		client:  &http.Client{},
	}
}

// Configured reports whether an API key is present
func (o *OpenAIExtractor) Configured() bool {
	return o.apiKey != ""
}

// ProviderName returns "openai"
func (o *OpenAIExtractor) ProviderName() string {
	return "openai"
}

// OpenAI chat-completions request/response structures
type openAIContentPart struct {
	Type     string          `json:"type"` // "text" or "image_url"
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"` // base64 data URL
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []openAIContentPart
}

type openAIResponseFormat struct {
	Type string `json:"type"` // "json_object"
}

type openAIChatRequest struct {
	Model          string               `json:"model"`
	Messages       []openAIMessage      `json:"messages"`
	ResponseFormat openAIResponseFormat `json:"response_format"`
	MaxTokens      int                  `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ExtractFromText extracts line items from recognized receipt text
func (o *OpenAIExtractor) ExtractFromText(ctx context.Context, rec *receipt.RecognitionResult, rtype receipt.Type, reqCtx *common.RequestContext) Outcome {
	if !o.Configured() {
		logUnconfigured(reqCtx, "openai")
		return Outcome{}
	}

	prompt := GetTextParsePrompt(rtype) + recognizedText(rec)
	messages := []openAIMessage{
		{Role: "user", Content: prompt},
	}
	return o.generate(ctx, messages, reqCtx)
}

// ExtractFromImage extracts line items straight from the receipt photo
func (o *OpenAIExtractor) ExtractFromImage(ctx context.Context, imageData []byte, mimeType string, rtype receipt.Type, reqCtx *common.RequestContext) Outcome {
	if !o.Configured() {
		logUnconfigured(reqCtx, "openai")
		return Outcome{}
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))
	messages := []openAIMessage{
		{Role: "user", Content: []openAIContentPart{
			{Type: "text", Text: GetVisionParsePrompt(rtype)},
			{Type: "image_url", ImageURL: &openAIImageURL{URL: dataURL}},
		}},
	}
	return o.generate(ctx, messages, reqCtx)
}

// generate performs one chat-completions call. Any failure is logged and
// reported as an empty Outcome so callers can fall back.
func (o *OpenAIExtractor) generate(ctx context.Context, messages []openAIMessage, reqCtx *common.RequestContext) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.callChatCompletions(callCtx, messages)
	if err != nil {
		apiErr := categorizeAPIError(err)
		if reqCtx != nil {
			reqCtx.LogWarning("OpenAI call failed (%s): %v", apiErr.Category, apiErr.Message)
		}
		return Outcome{}
	}

	if len(resp.Choices) == 0 {
		if reqCtx != nil {
			reqCtx.LogWarning("OpenAI returned no choices")
		}
		return Outcome{}
	}

	doc, ok := decodeItemsDocument(resp.Choices[0].Message.Content, reqCtx)
	if !ok {
		return Outcome{}
	}

	usage := common.CalculateTokenCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	outcome := doc.toOutcome(&usage)
	if reqCtx != nil {
		reqCtx.LogInfo("🤖 OpenAI (%s) extracted %d item(s)", o.model, len(outcome.Items))
	}
	return outcome
}

// callChatCompletions makes the HTTP request to the chat-completions endpoint
func (o *OpenAIExtractor) callChatCompletions(ctx context.Context, messages []openAIMessage) (*openAIChatResponse, error) {
	request := openAIChatRequest{
		Model:          o.model,
		Messages:       messages,
		ResponseFormat: openAIResponseFormat{Type: "json_object"},
		MaxTokens:      8192,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		"POST",
		o.baseURL+"/chat/completions",
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", o.apiKey))

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp openAIErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return nil, &APICallError{
				Category:   categoryForStatus(resp.StatusCode),
				StatusCode: resp.StatusCode,
				Message:    errorResp.Error.Message,
			}
		}
		return nil, &APICallError{
			Category:   categoryForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var response openAIChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}

	return &response, nil
}
