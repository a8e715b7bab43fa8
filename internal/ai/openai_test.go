package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
)

func openAIServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIUnconfigured(t *testing.T) {
	o := NewOpenAIExtractor("", "", "", time.Second)
	require.False(t, o.Configured())

	out := o.ExtractFromText(context.Background(), recWithText("4011 BANANAS"), receipt.TypeUnknown, nil)
	require.Empty(t, out.Items)
}

func TestOpenAIServerErrorWithNilRequestContext(t *testing.T) {
	srv := openAIServer(t, http.StatusInternalServerError,
		`{"error":{"message":"upstream exploded","type":"server_error"}}`)
	o := NewOpenAIExtractor("test-key", srv.URL, "", time.Second)

	// A nil request context must degrade to an empty outcome, not panic.
	out := o.ExtractFromText(context.Background(), recWithText("4011 BANANAS"), receipt.TypeUnknown, nil)
	require.Empty(t, out.Items)
}

func TestOpenAINoChoicesWithNilRequestContext(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, `{"choices":[]}`)
	o := NewOpenAIExtractor("test-key", srv.URL, "", time.Second)

	out := o.ExtractFromText(context.Background(), recWithText("4011 BANANAS"), receipt.TypeUnknown, nil)
	require.Empty(t, out.Items)
}

func TestOpenAIValidResponseWithNilRequestContext(t *testing.T) {
	body := fmt.Sprintf(
		`{"choices":[{"message":{"content":%s}}],"usage":{"prompt_tokens":100,"completion_tokens":50}}`,
		strconv.Quote(validReply))
	srv := openAIServer(t, http.StatusOK, body)
	o := NewOpenAIExtractor("test-key", srv.URL, "", time.Second)

	out := o.ExtractFromText(context.Background(), recWithText("4011 BANANAS"), receipt.TypeUnknown, nil)
	require.Len(t, out.Items, 2)
	require.True(t, out.HasTotal)
	require.NotNil(t, out.Usage)
	require.Equal(t, 150, out.Usage.TotalTokens)
}
