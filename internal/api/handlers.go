// handlers.go - HTTP handlers for receipt parsing and category learning

package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bosocmputer/expense_scan_gemini/configs"
	"github.com/bosocmputer/expense_scan_gemini/internal/ai"
	"github.com/bosocmputer/expense_scan_gemini/internal/common"
	"github.com/bosocmputer/expense_scan_gemini/internal/pattern"
	"github.com/bosocmputer/expense_scan_gemini/internal/processor"
	"github.com/bosocmputer/expense_scan_gemini/internal/receipt"
	"github.com/bosocmputer/expense_scan_gemini/internal/storage"
)

const maxImageSize = 10 << 20 // 10 MB upload cap

var orchestrator *processor.Orchestrator

// Init wires the generative extractor and the orchestrator. Must be
// called once before the routes are served.
func Init() error {
	extractor, err := ai.CreateExtractor()
	if err != nil {
		return err
	}
	orchestrator = processor.NewOrchestrator(extractor)
	return nil
}

// HealthHandler reports service liveness and whether the pattern store
// is backed by a live database.
func HealthHandler(c *gin.Context) {
	dbStatus := "disabled"
	if storage.GetMongoDB() != nil {
		dbStatus = "connected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "expense-scan",
		"version":  "1.0.0",
		"database": dbStatus,
	})
}

// --- Request/response DTOs ---

// TextLineDTO mirrors one recognized line from the OCR layer
type TextLineDTO struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// TextBlockDTO mirrors one recognized block from the OCR layer
type TextBlockDTO struct {
	Text       string        `json:"text"`
	Lines      []TextLineDTO `json:"lines"`
	Confidence float64       `json:"confidence"`
}

// ParseReceiptRequest is the JSON body of the text-path parse endpoint
type ParseReceiptRequest struct {
	UserID           string         `json:"user_id"`
	RawText          string         `json:"raw_text"`
	Blocks           []TextBlockDTO `json:"blocks"`
	ProcessingTime   float64        `json:"processing_time"`
	PreferGenerative *bool          `json:"prefer_generative,omitempty"`
	Validate         *bool          `json:"validate,omitempty"`
}

// ParseReceiptResponse wraps the parse result with request accounting
type ParseReceiptResponse struct {
	Status    string                    `json:"status"`
	RequestID string                    `json:"request_id"`
	Result    receipt.HybridParseResult `json:"result"`
	Tokens    int                       `json:"total_tokens"`
	CostUSD   float64                   `json:"cost_usd"`
}

// MatchCategoryRequest asks for the best category of one description
type MatchCategoryRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// MatchCategoryResponse carries the match outcome
type MatchCategoryResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Matched    bool    `json:"matched"`
}

// LearnCategoryRequest records a user-accepted categorization
type LearnCategoryRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
}

// LearnCategoryResponse reports the updated model stats
type LearnCategoryResponse struct {
	Category      string  `json:"category"`
	Observations  int     `json:"observations"`
	Confidence    float64 `json:"confidence"`
	TotalExpenses int     `json:"total_expenses"`
}

func (r *ParseReceiptRequest) toRecognitionResult() *receipt.RecognitionResult {
	rec := &receipt.RecognitionResult{
		RawText:        r.RawText,
		ProcessingTime: time.Duration(r.ProcessingTime * float64(time.Second)),
		BlockCount:     len(r.Blocks),
	}
	for _, b := range r.Blocks {
		block := receipt.TextBlock{
			Text:       b.Text,
			Confidence: b.Confidence,
		}
		for _, l := range b.Lines {
			block.Lines = append(block.Lines, receipt.TextLine{
				Text:       l.Text,
				Confidence: l.Confidence,
			})
		}
		rec.Blocks = append(rec.Blocks, block)
	}
	return rec
}

// ParseReceiptHandler turns recognized receipt text (JSON body) or a raw
// receipt image (multipart upload) into categorized line items.
func ParseReceiptHandler(c *gin.Context) {
	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		parseReceiptImage(c)
		return
	}
	parseReceiptText(c)
}

func parseReceiptText(c *gin.Context) {
	var req ParseReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body: " + err.Error()})
		return
	}

	rec := req.toRecognitionResult()
	if rec.RawText == "" && len(rec.Blocks) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "raw_text or blocks is required"})
		return
	}

	reqCtx := common.NewRequestContext(req.UserID)

	opts := processor.DefaultOptions()
	if req.PreferGenerative != nil {
		opts.PreferGenerative = *req.PreferGenerative
	}
	if req.Validate != nil {
		opts.Validate = *req.Validate
	}

	result := orchestrator.ParseReceipt(c.Request.Context(), rec, opts, reqCtx)
	applyCategories(&result, req.UserID, reqCtx)
	reqCtx.LogInfo("🏁 Request complete in %.2fs", reqCtx.TotalDuration().Seconds())

	c.JSON(http.StatusOK, ParseReceiptResponse{
		Status:    "success",
		RequestID: reqCtx.RequestID,
		Result:    result,
		Tokens:    reqCtx.TotalTokens.TotalTokens,
		CostUSD:   reqCtx.TotalTokens.CostUSD,
	})
}

func parseReceiptImage(c *gin.Context) {
	userID := c.PostForm("user_id")

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "image file is required"})
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"status": "error", "message": "image exceeds 10 MB limit"})
		return
	}

	imageData, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to read image"})
		return
	}

	reqCtx := common.NewRequestContext(userID)

	opts := processor.DefaultOptions()
	opts.PreferGenerative = true // vision has no deterministic text to fall back on yet
	opts.Modality = processor.ModalityVision
	opts.ImageData = imageData
	opts.ImageMIME = header.Header.Get("Content-Type")

	result := orchestrator.ParseReceipt(c.Request.Context(), &receipt.RecognitionResult{}, opts, reqCtx)
	applyCategories(&result, userID, reqCtx)
	reqCtx.LogInfo("🏁 Request complete in %.2fs", reqCtx.TotalDuration().Seconds())

	c.JSON(http.StatusOK, ParseReceiptResponse{
		Status:    "success",
		RequestID: reqCtx.RequestID,
		Result:    result,
		Tokens:    reqCtx.TotalTokens.TotalTokens,
		CostUSD:   reqCtx.TotalTokens.CostUSD,
	})
}

// applyCategories fills Category on ordinary items from the user's
// learned pattern model. Tax lines and anonymous requests are skipped.
func applyCategories(result *receipt.HybridParseResult, userID string, reqCtx *common.RequestContext) {
	if userID == "" || len(result.Items) == 0 {
		return
	}

	reqCtx.StartStep("category_matching")
	model, err := storage.GetPatternModel(userID)
	if err != nil {
		reqCtx.LogWarning("pattern model unavailable, items left uncategorized: %v", err)
		reqCtx.EndStep("failed", nil, err)
		return
	}

	matched := 0
	for i := range result.Items {
		if result.Items[i].IsTax {
			continue
		}
		category, ok := pattern.BestMatch(model, result.Items[i].Description, configs.MATCH_THRESHOLD)
		if ok {
			result.Items[i].Category = category
			matched++
		}
	}
	reqCtx.LogInfo("🏷️  Categorized %d of %d item(s)", matched, result.ItemCount)
	reqCtx.EndStep("success", nil, nil)
}

// MatchCategoryHandler scores one description against the user's model
func MatchCategoryHandler(c *gin.Context) {
	var req MatchCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body: " + err.Error()})
		return
	}

	model, err := storage.GetPatternModel(req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to load pattern model"})
		return
	}

	category, matched := pattern.BestMatch(model, req.Description, configs.MATCH_THRESHOLD)
	resp := MatchCategoryResponse{Matched: matched}
	if matched {
		resp.Category = category
		resp.Confidence = pattern.Confidence(model, req.Description, category)
	}
	c.JSON(http.StatusOK, resp)
}

// LearnCategoryHandler records an accepted categorization
func LearnCategoryHandler(c *gin.Context) {
	var req LearnCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body: " + err.Error()})
		return
	}

	model, err := storage.LearnCategory(req.UserID, req.Description, req.Category)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "failed to record category"})
		return
	}

	resp := LearnCategoryResponse{
		Category:      req.Category,
		TotalExpenses: model.TotalExpenses,
	}
	if p, ok := model.Categories[req.Category]; ok {
		resp.Observations = p.Count
		resp.Confidence = p.Confidence
	}
	c.JSON(http.StatusOK, resp)
}
