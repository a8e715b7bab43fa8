// lenient.go - Best-effort recovery of malformed model responses

package ai

import (
	"fmt"
	"regexp"
	"strings"
)

// extractJSONObject cuts a reply down to its outermost JSON object:
// markdown code fences and surrounding prose are discarded. Returns ""
// when no object boundaries exist at all.
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

var reJSONString = regexp.MustCompile(`"([^"]*(?:\\.[^"]*)*)"`)

// fixJSONEscaping escapes literal control characters the model left
// inside JSON string values. Gemini in particular sends raw newlines in
// multi-line descriptions, which Go's JSON parser rejects.
func fixJSONEscaping(jsonStr string) string {
	return reJSONString.ReplaceAllStringFunc(jsonStr, func(match string) string {
		if len(match) < 2 {
			return match
		}
		content := match[1 : len(match)-1]

		// Invalid "\ " sequences first, so the backslash fixes below do
		// not double-escape them.
		content = strings.ReplaceAll(content, "\\ ", "\\\\ ")
		content = strings.ReplaceAll(content, "\n", "\\n")
		content = strings.ReplaceAll(content, "\r", "\\r")
		content = strings.ReplaceAll(content, "\t", "\\t")

		var b strings.Builder
		for _, ch := range content {
			if ch < 0x20 {
				b.WriteString(fmt.Sprintf("\\u%04x", ch))
			} else {
				b.WriteRune(ch)
			}
		}
		return `"` + b.String() + `"`
	})
}
