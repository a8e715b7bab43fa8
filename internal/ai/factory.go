// factory.go - Extractor factory for creating provider instances

package ai

import (
	"fmt"
	"log"
	"time"

	"github.com/bosocmputer/expense_scan_gemini/configs"
)

// CreateExtractor creates a generative extractor based on configuration.
// The extractor is returned even when its API key is missing; an
// unconfigured extractor reports empty results instead of failing, so
// the deterministic parser still carries the receipt.
func CreateExtractor() (ItemExtractor, error) {
	provider := configs.GENERATIVE_PROVIDER
	timeout := time.Duration(configs.PARSE_TIMEOUT_SECONDS) * time.Second

	switch provider {
	case "gemini":
		log.Printf("🔵 Creating Gemini extractor (text: %s, vision: %s)", configs.TEXT_MODEL_NAME, configs.VISION_MODEL_NAME)
		return NewGeminiExtractor(configs.GEMINI_API_KEY, configs.TEXT_MODEL_NAME, configs.VISION_MODEL_NAME, timeout), nil

	case "openai":
		log.Printf("🔷 Creating OpenAI-compatible extractor (model: %s)", configs.OPENAI_MODEL_NAME)
		return NewOpenAIExtractor(configs.OPENAI_API_KEY, configs.OPENAI_BASE_URL, configs.OPENAI_MODEL_NAME, timeout), nil

	default:
		return nil, fmt.Errorf("unsupported generative provider: %s (supported: gemini, openai)", provider)
	}
}
