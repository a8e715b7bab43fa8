// errors.go - Categorization of generative API failures
//
// There is no retry loop: every adapter makes a single attempt per
// receipt and the deterministic parser is the fallback. Categorization
// exists purely so the logs say WHY a call produced nothing.

package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// APICallError is a categorized generative API failure.
type APICallError struct {
	OriginalError error
	Category      string
	StatusCode    int
	Message       string
}

func (e *APICallError) Error() string {
	return fmt.Sprintf("[%s] %s (status: %d)", e.Category, e.Message, e.StatusCode)
}

func (e *APICallError) Unwrap() error {
	return e.OriginalError
}

// categorizeAPIError analyzes an adapter call error for logging.
func categorizeAPIError(err error) *APICallError {
	if err == nil {
		return nil
	}

	var already *APICallError
	if errors.As(err, &already) {
		return already
	}

	out := &APICallError{
		OriginalError: err,
		Category:      "unknown",
		Message:       err.Error(),
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		out.StatusCode = apiErr.Code
		switch apiErr.Code {
		case 400:
			out.Category = "bad_request"
			out.Message = "invalid request format or parameters"
		case 401, 403:
			out.Category = "unauthorized"
			out.Message = "invalid API key or missing permission"
		case 404:
			out.Category = "not_found"
			out.Message = "model not found or invalid endpoint"
		case 413:
			out.Category = "payload_too_large"
			out.Message = "request size exceeds limit (reduce image size)"
		case 429:
			out.Category = "rate_limit"
			out.Message = "rate limit exceeded"
		case 500, 502, 503, 504:
			out.Category = "server_error"
			out.Message = fmt.Sprintf("model server error (%d)", apiErr.Code)
		default:
			out.Category = "api_error"
			out.Message = apiErr.Message
		}
		return out
	}

	if errors.Is(err, context.DeadlineExceeded) {
		out.Category = "timeout"
		out.Message = "call exceeded the configured parse timeout"
		return out
	}
	if errors.Is(err, context.Canceled) {
		out.Category = "canceled"
		out.Message = "request was canceled"
		return out
	}

	out.Category = "network"
	return out
}

// categoryForStatus maps an HTTP status code to the same category names
// used for the Gemini path.
func categoryForStatus(code int) string {
	switch code {
	case 400:
		return "bad_request"
	case 401, 403:
		return "unauthorized"
	case 404:
		return "not_found"
	case 413:
		return "payload_too_large"
	case 429:
		return "rate_limit"
	case 500, 502, 503, 504:
		return "server_error"
	default:
		return "api_error"
	}
}
