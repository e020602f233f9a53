package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ticketlens/backend/internal/config"
	httpapi "github.com/ticketlens/backend/internal/http"
	"github.com/ticketlens/backend/internal/jobs"
	"github.com/ticketlens/backend/internal/llm"
	"github.com/ticketlens/backend/internal/models"
	"github.com/ticketlens/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "ticketlens-backend").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analyze := analyzeFunc(cfg, logger)
	manager := jobs.NewManager(jobs.NewMemoryStore(), analyze, cfg.WorkerCount, cfg.JobQueueSize, logger)
	manager.Start(ctx)
	logger.Info().Int("workers", cfg.WorkerCount).Str("default_provider", cfg.LLMProvider).Msg("job manager started")

	router := httpapi.Router(cfg, manager, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

// analyzeFunc binds one job to a summarizer backend and runs the
// pipeline. Per-job provider/credential overrides fall back to the
// process-wide defaults.
func analyzeFunc(cfg config.Config, logger zerolog.Logger) jobs.AnalyzeFunc {
	return func(ctx context.Context, req jobs.SubmitRequest, progress func(current, total int)) (*models.AnalysisReport, error) {
		name := req.Provider
		if name == "" {
			name = cfg.LLMProvider
		}
		apiKey := req.APIKey
		if apiKey == "" {
			apiKey = cfg.LLMAPIKey
		}

		provider, err := llm.New(ctx, name, llm.Options{
			APIKey:  apiKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			return nil, err
		}
		defer provider.Close()

		analyzer := &service.Analyzer{
			Provider: provider,
			Logger:   logger.With().Str("provider", provider.Name()).Logger(),
			Progress: progress,
		}
		return analyzer.AnalyzeFile(ctx, req.FilePath)
	}
}
