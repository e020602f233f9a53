package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ticketlens/backend/internal/llm"
	"github.com/ticketlens/backend/internal/models"
)

// Analyzer runs the full pipeline over one CSV export: clean and group
// rows, summarize each thread through the provider, score every summary,
// and compile the report. Per-ticket summarizer failures are absorbed;
// only schema or I/O problems fail the whole run.
type Analyzer struct {
	Provider llm.Provider
	Logger   zerolog.Logger

	// Progress, when set, receives (processed, total) after each thread.
	Progress func(current, total int)
}

// AnalyzeFile opens a staged CSV and analyzes it. The source label in
// the report metadata is the file's base name.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*models.AnalysisReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return a.Analyze(ctx, filepath.Base(path), f)
}

func (a *Analyzer) Analyze(ctx context.Context, source string, r io.Reader) (*models.AnalysisReport, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := ValidateColumns(headers); err != nil {
		return nil, err
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		records = append(records, rec)
	}

	rows := CleanRows(headers, records)
	groups := GroupRows(rows)
	total := len(groups)
	a.reportProgress(0, total)

	summarizer := &Summarizer{Provider: a.Provider, Logger: a.Logger}

	summaries := make([]models.TicketSummary, 0, total)
	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		thread := BuildThread(group)
		thread.AuthorEmail = ExtractAuthorEmail(group)

		a.Logger.Info().
			Int("ticket", i+1).
			Int("total", total).
			Int64("ticket_id", thread.TicketID).
			Msg("processing ticket")

		summaries = append(summaries, summarizer.SummarizeThread(ctx, thread))
		a.reportProgress(i+1, total)
	}

	diagnostics := AnalyzeAll(summaries)
	outreach := CompileOutreach(summaries, diagnostics.CompatibleTickets)

	return BuildResult(source, a.Provider.Name(), len(rows), total, summaries, diagnostics, outreach), nil
}

func (a *Analyzer) reportProgress(current, total int) {
	if a.Progress != nil {
		a.Progress(current, total)
	}
}
