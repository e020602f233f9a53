package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ticketlens/backend/internal/jobs"
)

type Handler struct {
	Jobs            *jobs.Manager
	Validator       *validator.Validate
	Logger          zerolog.Logger
	MaxUploadSizeMB int64
}

type AnalyzeRequest struct {
	Provider string `form:"llm_provider" validate:"omitempty,oneof=mock openai anthropic gemini"`
	APIKey   string `form:"api_key"`
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Submit a ticket CSV for analysis
// @Description Upload a support-ticket comments export and start an asynchronous analysis job
// @Tags analyze
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "tickets.csv"
// @Param llm_provider formData string false "Summarizer backend (mock, openai, anthropic, gemini)"
// @Param api_key formData string false "Backend credential; falls back to server default"
// @Success 202 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Failure 413 {object} map[string]any
// @Router /api/analyze [post]
func (h *Handler) Analyze(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file is required", nil)
		return
	}
	if strings.ToLower(filepath.Ext(fh.Filename)) != ".csv" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "only CSV files are supported", nil)
		return
	}
	if h.MaxUploadSizeMB > 0 && fh.Size > h.MaxUploadSizeMB<<20 {
		writeError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file size exceeds limit", gin.H{"max_mb": h.MaxUploadSizeMB})
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid form payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "unknown llm_provider", err.Error())
		return
	}

	tmp, err := os.CreateTemp("", "tickets-*.csv")
	if err != nil {
		writeError(c, http.StatusInternalServerError, "UPLOAD_ERROR", "failed to stage upload", err.Error())
		return
	}
	tmpPath := tmp.Name()
	tmp.Close()
	if err := c.SaveUploadedFile(fh, tmpPath); err != nil {
		os.Remove(tmpPath)
		writeError(c, http.StatusInternalServerError, "UPLOAD_ERROR", "failed to stage upload", err.Error())
		return
	}

	id, err := h.Jobs.Submit(jobs.SubmitRequest{
		FilePath: tmpPath,
		Provider: req.Provider,
		APIKey:   req.APIKey,
	})
	if err != nil {
		os.Remove(tmpPath)
		if errors.Is(err, jobs.ErrQueueFull) {
			writeError(c, http.StatusServiceUnavailable, "QUEUE_FULL", "too many analyses queued, try again later", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "SUBMIT_ERROR", "failed to submit analysis", err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"analysis_id": id, "message": "Analysis started"})
}

// @Summary Poll analysis progress
// @Tags analyze
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/progress/{id} [get]
func (h *Handler) Progress(c *gin.Context) {
	job, err := h.Jobs.Poll(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Analysis ID not found", nil)
		return
	}
	c.JSON(http.StatusOK, job)
}

// @Summary Delete analysis data
// @Tags analyze
// @Produce json
// @Param id path string true "Analysis ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/analysis/{id} [delete]
func (h *Handler) Cleanup(c *gin.Context) {
	if err := h.Jobs.Cleanup(c.Param("id")); err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Analysis ID not found", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Analysis data cleaned up"})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
