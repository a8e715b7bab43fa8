// config.go - Configuration loaded from environment variables

package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	// Gemini AI Configuration
	// GEMINI_API_KEY may be empty: the generative path is then unavailable
	// and every receipt goes through the deterministic parser.
	GEMINI_API_KEY    string
	TEXT_MODEL_NAME   string
	VISION_MODEL_NAME string

	// OpenAI-compatible provider (optional alternative to Gemini)
	GENERATIVE_PROVIDER string // "gemini" or "openai"
	OPENAI_API_KEY      string
	OPENAI_BASE_URL     string
	OPENAI_MODEL_NAME   string

	// Gemini Pricing Configuration (per 1M tokens in USD)
	GEMINI_INPUT_PRICE_PER_MILLION  float64
	GEMINI_OUTPUT_PRICE_PER_MILLION float64

	// Server Configuration
	PORT            string
	ALLOWED_ORIGINS string

	// MongoDB Configuration (category pattern store)
	MONGO_URI     string
	MONGO_DB_NAME string

	// Image preprocessing settings
	ENABLE_IMAGE_PREPROCESSING bool
	MAX_IMAGE_DIMENSION        int

	// Parsing policy settings
	PARSE_TIMEOUT_SECONDS int     // bound on a single generative call
	PREFER_GENERATIVE     bool    // try the generative path before the deterministic one
	ENABLE_VALIDATION     bool    // cross-check generative totals against the deterministic parser
	VALIDATION_TOLERANCE  float64 // currency units of allowed disagreement
	CONFIDENCE_PENALTY    float64 // multiplier applied on validation mismatch

	// Category matching settings
	MATCH_THRESHOLD           float64 // minimum score for BestMatch to return a category
	PATTERN_CACHE_TTL_SECONDS int
)

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Generative provider credentials. All optional: without a key the
	// orchestrator reports method=deterministic for every receipt.
	GEMINI_API_KEY = getEnv("GEMINI_API_KEY", "")
	if GEMINI_API_KEY == "" {
		log.Println("⚠️  GEMINI_API_KEY not set - generative parsing disabled, deterministic parser only")
	}
	TEXT_MODEL_NAME = getEnv("TEXT_MODEL_NAME", "gemini-2.5-flash")
	VISION_MODEL_NAME = getEnv("VISION_MODEL_NAME", "gemini-2.5-flash")

	GENERATIVE_PROVIDER = getEnv("GENERATIVE_PROVIDER", "gemini")
	OPENAI_API_KEY = getEnv("OPENAI_API_KEY", "")
	OPENAI_BASE_URL = getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1")
	OPENAI_MODEL_NAME = getEnv("OPENAI_MODEL_NAME", "gpt-4o-mini")

	// Gemini Pricing (default to Flash pricing)
	GEMINI_INPUT_PRICE_PER_MILLION = getEnvFloat("GEMINI_INPUT_PRICE_PER_MILLION", 0.30)
	GEMINI_OUTPUT_PRICE_PER_MILLION = getEnvFloat("GEMINI_OUTPUT_PRICE_PER_MILLION", 2.50)

	PORT = getEnv("PORT", "8080")
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")

	// MongoDB Configuration
	MONGO_URI = getEnv("MONGO_URI", "mongodb://localhost:27017")
	MONGO_DB_NAME = getEnv("MONGO_DB_NAME", "expensescan")

	// Image Processing
	ENABLE_IMAGE_PREPROCESSING = getEnvBool("ENABLE_IMAGE_PREPROCESSING", true)
	MAX_IMAGE_DIMENSION = getEnvInt("MAX_IMAGE_DIMENSION", 2000)

	// Parsing policy
	PARSE_TIMEOUT_SECONDS = getEnvInt("PARSE_TIMEOUT_SECONDS", 5)
	PREFER_GENERATIVE = getEnvBool("PREFER_GENERATIVE", true)
	ENABLE_VALIDATION = getEnvBool("ENABLE_VALIDATION", true)
	VALIDATION_TOLERANCE = getEnvFloat("VALIDATION_TOLERANCE", 1.0)
	CONFIDENCE_PENALTY = getEnvFloat("CONFIDENCE_PENALTY", 0.5)

	// Category matching
	MATCH_THRESHOLD = getEnvFloat("MATCH_THRESHOLD", 0.3)
	PATTERN_CACHE_TTL_SECONDS = getEnvInt("PATTERN_CACHE_TTL_SECONDS", 300)

	log.Println("✓ Configuration loaded successfully")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
