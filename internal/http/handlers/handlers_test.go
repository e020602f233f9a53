package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ticketlens/backend/internal/jobs"
	"github.com/ticketlens/backend/internal/models"
)

func newTestRouter(t *testing.T, analyze jobs.AnalyzeFunc) (*gin.Engine, *jobs.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := jobs.NewManager(jobs.NewMemoryStore(), analyze, 1, 4, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)

	h := &Handler{
		Jobs:            m,
		Validator:       validator.New(),
		Logger:          zerolog.Nop(),
		MaxUploadSizeMB: 10,
	}

	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.POST("/api/analyze", h.Analyze)
	r.GET("/api/progress/:id", h.Progress)
	r.DELETE("/api/analysis/:id", h.Cleanup)
	return r, m
}

func multipartUpload(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t, func(context.Context, jobs.SubmitRequest, func(int, int)) (*models.AnalysisReport, error) {
		return nil, nil
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAnalyzeRejectsNonCSV(t *testing.T) {
	r, _ := newTestRouter(t, func(context.Context, jobs.SubmitRequest, func(int, int)) (*models.AnalysisReport, error) {
		return nil, nil
	})
	body, contentType := multipartUpload(t, "tickets.xlsx", "data", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "only CSV files are supported") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAnalyzeRejectsMissingFile(t *testing.T) {
	r, _ := newTestRouter(t, func(context.Context, jobs.SubmitRequest, func(int, int)) (*models.AnalysisReport, error) {
		return nil, nil
	})
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("llm_provider", "mock")
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAnalyzeRejectsUnknownProvider(t *testing.T) {
	r, _ := newTestRouter(t, func(context.Context, jobs.SubmitRequest, func(int, int)) (*models.AnalysisReport, error) {
		return nil, nil
	})
	body, contentType := multipartUpload(t, "tickets.csv", "data", map[string]string{"llm_provider": "wizard"})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "VALIDATION_ERROR") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAnalyzeLifecycle(t *testing.T) {
	analyze := func(_ context.Context, req jobs.SubmitRequest, progress func(int, int)) (*models.AnalysisReport, error) {
		if req.Provider != "mock" {
			t.Errorf("provider not forwarded: %q", req.Provider)
		}
		progress(1, 1)
		return &models.AnalysisReport{Metadata: models.ReportMetadata{Source: "tickets.csv"}}, nil
	}
	r, m := newTestRouter(t, analyze)

	body, contentType := multipartUpload(t, "tickets.csv", "header\nrow", map[string]string{"llm_provider": "mock"})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var accepted struct {
		AnalysisID string `json:"analysis_id"`
		Message    string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.AnalysisID == "" || accepted.Message != "Analysis started" {
		t.Fatalf("unexpected response: %+v", accepted)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := m.Poll(accepted.AnalysisID)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		if job.Status == models.JobStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed: %+v", job)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress/"+accepted.AnalysisID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}
	var polled models.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &polled); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if polled.Status != models.JobStatusCompleted || polled.Result == nil {
		t.Fatalf("unexpected job: %+v", polled)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/analysis/"+accepted.AnalysisID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("cleanup status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress/"+accepted.AnalysisID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after cleanup, got %d", rec.Code)
	}
}

func TestProgressUnknownID(t *testing.T) {
	r, _ := newTestRouter(t, func(context.Context, jobs.SubmitRequest, func(int, int)) (*models.AnalysisReport, error) {
		return nil, nil
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Analysis ID not found") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestCleanupUnknownID(t *testing.T) {
	r, _ := newTestRouter(t, func(context.Context, jobs.SubmitRequest, func(int, int)) (*models.AnalysisReport, error) {
		return nil, nil
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/analysis/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
