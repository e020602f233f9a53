package service

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func buildCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write([]string{ColTicketID, ColCommentID, ColCommentBody, ColEntID, ColSubject, ColOriginalCategory, ColRootCause}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return sb.String()
}

func TestAnalyzeEndToEnd(t *testing.T) {
	data := buildCSV(t, [][]string{
		{"100", "1", "Email: ana@example.com\nMy element selector is not working on the page", "7", "Broken selector", "Selection", "Drift"},
		{"100", "2", "Thank you for reaching out. I've reselected the element for you.", "7", "Broken selector", "Selection", "Drift"},
		{"200", "3", "Hi, my dashboard settings look wrong and the config is strange", "8", "Settings", "Config", "User"},
	})

	provider := &scriptedProvider{
		response: `{"issue": "element not found after redesign", "resolution": "reselected via css selector", "category": "Element Selection", "resolution_type": "Reselection"}`,
	}

	var progress [][2]int
	a := &Analyzer{
		Provider: provider,
		Logger:   zerolog.Nop(),
		Progress: func(current, total int) { progress = append(progress, [2]int{current, total}) },
	}

	report, err := a.Analyze(context.Background(), "tickets.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.Metadata.Source != "tickets.csv" || report.Metadata.Provider != "scripted" {
		t.Fatalf("unexpected metadata: %+v", report.Metadata)
	}
	if report.Metadata.TotalRawRows != 3 || report.Metadata.UniqueTickets != 2 {
		t.Fatalf("unexpected counts: %+v", report.Metadata)
	}
	if len(report.TicketSummaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(report.TicketSummaries))
	}
	if report.TicketSummaries[0].TicketID != 100 || report.TicketSummaries[1].TicketID != 200 {
		t.Fatalf("summaries out of first-appearance order: %+v", report.TicketSummaries)
	}

	// The email lives only in the raw metadata block; cleaned bodies lose it.
	if report.TicketSummaries[0].AuthorEmail != "ana@example.com" {
		t.Fatalf("unexpected author email: %q", report.TicketSummaries[0].AuthorEmail)
	}
	for _, entry := range report.OutreachList {
		if entry.AuthorEmail != "ana@example.com" {
			t.Fatalf("unexpected outreach email: %q", entry.AuthorEmail)
		}
	}

	// Both summaries score positive on element keywords plus a simple fix.
	if report.Diagnostics.Summary.TotalTickets != 2 || report.Diagnostics.Summary.CompatibleCount != 2 {
		t.Fatalf("unexpected diagnostics summary: %+v", report.Diagnostics.Summary)
	}

	want := [][2]int{{0, 2}, {1, 2}, {2, 2}}
	if len(progress) != len(want) {
		t.Fatalf("unexpected progress updates: %v", progress)
	}
	for i, step := range want {
		if progress[i] != step {
			t.Fatalf("progress[%d] = %v, want %v", i, progress[i], step)
		}
	}
}

func TestAnalyzeAllShortComments(t *testing.T) {
	data := buildCSV(t, [][]string{
		{"5", "1", "ok", "1", "Tiny", "Cat", "Root"},
		{"5", "2", "thanks", "1", "Tiny", "Cat", "Root"},
	})

	provider := &scriptedProvider{
		response: `{"issue": "i", "resolution": "r", "category": "c", "resolution_type": "rt"}`,
	}
	a := &Analyzer{Provider: provider, Logger: zerolog.Nop()}

	report, err := a.Analyze(context.Background(), "short.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(report.TicketSummaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(report.TicketSummaries))
	}
	got := report.TicketSummaries[0]
	if got.CommentCount != 0 {
		t.Errorf("all comments are below the length floor, want 0 kept, got %d", got.CommentCount)
	}
	if got.TotalExchanges != 2 {
		t.Errorf("total exchanges should count raw rows, got %d", got.TotalExchanges)
	}
	// The provider is still consulted even with an empty thread.
	if got.IssueSummary != "i" {
		t.Errorf("unexpected issue summary: %q", got.IssueSummary)
	}
}

func TestAnalyzeSchemaError(t *testing.T) {
	data := "Zendesk Tickets ID,Zendesk Comments Body\n1,hello\n"
	a := &Analyzer{Provider: &scriptedProvider{}, Logger: zerolog.Nop()}

	_, err := a.Analyze(context.Background(), "bad.csv", strings.NewReader(data))
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) == 0 {
		t.Fatalf("missing columns should be named: %+v", schemaErr)
	}
}

func TestAnalyzeEmptyBody(t *testing.T) {
	data := buildCSV(t, nil)
	a := &Analyzer{Provider: &scriptedProvider{}, Logger: zerolog.Nop()}

	report, err := a.Analyze(context.Background(), "empty.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Metadata.UniqueTickets != 0 || len(report.TicketSummaries) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if report.Diagnostics.Summary.CompatiblePercentage != "0.0%" {
		t.Fatalf("unexpected percentage: %q", report.Diagnostics.Summary.CompatiblePercentage)
	}
}

func TestAnalyzeProviderErrorAbsorbed(t *testing.T) {
	data := buildCSV(t, [][]string{
		{"1", "1", "my element selector broke again today", "1", "S", "C", "R"},
	})
	a := &Analyzer{Provider: &scriptedProvider{err: errors.New("model offline")}, Logger: zerolog.Nop()}

	report, err := a.Analyze(context.Background(), "err.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("provider failures must not abort the run: %v", err)
	}
	got := report.TicketSummaries[0]
	if got.DerivedCategory != "Error" || got.IssueSummary != "Error: model offline" {
		t.Fatalf("unexpected degraded summary: %+v", got)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	data := buildCSV(t, [][]string{
		{"1", "1", "a sufficiently long comment body here", "1", "S", "C", "R"},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &Analyzer{Provider: &scriptedProvider{}, Logger: zerolog.Nop()}
	if _, err := a.Analyze(ctx, "c.csv", strings.NewReader(data)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
