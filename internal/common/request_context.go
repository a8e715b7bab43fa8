// request_context.go - Request tracking and logging system

package common

import (
	"fmt"
	"log"
	"time"

	"github.com/bosocmputer/expense_scan_gemini/configs"
	"github.com/google/uuid"
)

// RequestContext tracks the entire request lifecycle with timing and costs
type RequestContext struct {
	RequestID           string
	UserID              string
	StartTime           time.Time
	Steps               []StepLog
	TotalTokens         TokenUsage
	CurrentStep         string
	CurrentStepStart    time.Time
	CurrentSubSteps     []SubStepLog
	CurrentSubStep      string
	CurrentSubStepStart time.Time
}

// StepLog represents a single processing step
type StepLog struct {
	Name      string       `json:"name"`
	StartTime time.Time    `json:"start_time"`
	Duration  int64        `json:"duration_ms"`
	Status    string       `json:"status"` // "success", "failed", "skipped"
	Tokens    *TokenUsage  `json:"tokens,omitempty"`
	Error     string       `json:"error,omitempty"`
	SubSteps  []SubStepLog `json:"sub_steps,omitempty"`
}

// SubStepLog represents a detailed sub-operation within a step
type SubStepLog struct {
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Duration  int64     `json:"duration_ms"`
	Details   string    `json:"details,omitempty"`
}

// TokenUsage tracks generative API token consumption.
// Cost figures are advisory only, never part of the data contract.
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// NewRequestContext creates a new request tracking context
func NewRequestContext(userID string) *RequestContext {
	reqID := uuid.New().String()
	now := time.Now()

	log.Printf("[%s] 🚀 New request | UserID: %s | Time: %s", reqID, userID, now.Format("15:04:05"))

	return &RequestContext{
		RequestID:   reqID,
		UserID:      userID,
		StartTime:   now,
		Steps:       []StepLog{},
		TotalTokens: TokenUsage{},
	}
}

// StartStep begins tracking a new processing step
func (rc *RequestContext) StartStep(stepName string) {
	rc.CurrentStep = stepName
	rc.CurrentStepStart = time.Now()

	stepDescriptions := map[string]string{
		"classify_receipt_type": "🏷️  Classify receipt layout",
		"generative_parse":      "🤖 Generative item extraction",
		"deterministic_parse":   "🧾 Deterministic line parsing",
		"cross_validation":      "⚖️  Cross-validate totals",
		"category_matching":     "📂 Category matching",
	}

	desc := stepDescriptions[stepName]
	if desc == "" {
		desc = stepName
	}

	log.Printf("[%s] \n┌── %s", rc.RequestID, desc)
}

// EndStep completes the current step and records timing
func (rc *RequestContext) EndStep(status string, tokens *TokenUsage, err error) {
	duration := time.Since(rc.CurrentStepStart).Milliseconds()

	stepLog := StepLog{
		Name:      rc.CurrentStep,
		StartTime: rc.CurrentStepStart,
		Duration:  duration,
		Status:    status,
		Tokens:    tokens,
		SubSteps:  rc.CurrentSubSteps,
	}

	if err != nil {
		stepLog.Error = err.Error()
		log.Printf("[%s] └── ❌ FAILED - %s (%.2fs) - Error: %v",
			rc.RequestID, rc.CurrentStep, float64(duration)/1000, err)
	} else {
		logMsg := fmt.Sprintf("[%s] └── ✅ Done: %.2fs", rc.RequestID, float64(duration)/1000)

		if tokens != nil {
			rc.TotalTokens.InputTokens += tokens.InputTokens
			rc.TotalTokens.OutputTokens += tokens.OutputTokens
			rc.TotalTokens.TotalTokens += tokens.TotalTokens
			rc.TotalTokens.CostUSD += tokens.CostUSD

			logMsg += fmt.Sprintf(" | 🪙 Tokens: %d in + %d out = %d | 💰 Cost: $%.4f",
				tokens.InputTokens, tokens.OutputTokens, tokens.TotalTokens, tokens.CostUSD)
		}

		if len(rc.CurrentSubSteps) > 0 {
			logMsg += fmt.Sprintf(" | sub-steps: %d", len(rc.CurrentSubSteps))
		}

		log.Print(logMsg)
	}

	rc.Steps = append(rc.Steps, stepLog)
	rc.CurrentStep = ""
	rc.CurrentSubSteps = []SubStepLog{}
}

// StartSubStep begins tracking a sub-operation within the current step
func (rc *RequestContext) StartSubStep(name string) {
	rc.CurrentSubStep = name
	rc.CurrentSubStepStart = time.Now()
}

// EndSubStep completes the current sub-step
func (rc *RequestContext) EndSubStep(details string) {
	if rc.CurrentSubStep == "" {
		return
	}
	rc.CurrentSubSteps = append(rc.CurrentSubSteps, SubStepLog{
		Name:      rc.CurrentSubStep,
		StartTime: rc.CurrentSubStepStart,
		Duration:  time.Since(rc.CurrentSubStepStart).Milliseconds(),
		Details:   details,
	})
	rc.CurrentSubStep = ""
}

// LogInfo logs an informational message tagged with the request ID
func (rc *RequestContext) LogInfo(format string, args ...interface{}) {
	log.Printf("[%s] "+format, append([]interface{}{rc.RequestID}, args...)...)
}

// LogWarning logs a warning message tagged with the request ID
func (rc *RequestContext) LogWarning(format string, args ...interface{}) {
	log.Printf("[%s] ⚠️  "+format, append([]interface{}{rc.RequestID}, args...)...)
}

// CalculateTokenCost computes the USD cost from token counts using the
// configured per-million pricing.
func CalculateTokenCost(inputTokens, outputTokens int) TokenUsage {
	inputCost := float64(inputTokens) * configs.GEMINI_INPUT_PRICE_PER_MILLION / 1_000_000
	outputCost := float64(outputTokens) * configs.GEMINI_OUTPUT_PRICE_PER_MILLION / 1_000_000

	return TokenUsage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		CostUSD:      inputCost + outputCost,
	}
}

// TotalDuration returns elapsed time since the request started
func (rc *RequestContext) TotalDuration() time.Duration {
	return time.Since(rc.StartTime)
}
