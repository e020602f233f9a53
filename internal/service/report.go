package service

import (
	"time"

	"github.com/ticketlens/backend/internal/models"
)

// CompileOutreach lists customers behind diagnostics-compatible tickets
// with a known email, in original grouping order.
func CompileOutreach(summaries []models.TicketSummary, compatible []models.CompatibilityVerdict) []models.OutreachEntry {
	compatibleIDs := make(map[int64]bool, len(compatible))
	for _, verdict := range compatible {
		compatibleIDs[verdict.TicketID] = true
	}

	var outreach []models.OutreachEntry
	for _, summary := range summaries {
		if !compatibleIDs[summary.TicketID] || summary.AuthorEmail == EmailNotAvailable {
			continue
		}
		outreach = append(outreach, models.OutreachEntry{
			TicketID:            summary.TicketID,
			AuthorEmail:         summary.AuthorEmail,
			IssueSummary:        summary.IssueSummary,
			ResolutionSummary:   summary.ResolutionSummary,
			DerivedCategory:     summary.DerivedCategory,
			ResolutionType:      summary.ResolutionType,
			CouldUseDiagnostics: true,
		})
	}
	return outreach
}

// BuildResult assembles the final job result.
func BuildResult(source, provider string, rawRows, uniqueTickets int, summaries []models.TicketSummary, diagnostics models.DiagnosticsReport, outreach []models.OutreachEntry) *models.AnalysisReport {
	return &models.AnalysisReport{
		Metadata: models.ReportMetadata{
			AnalyzedAt:    time.Now().UTC(),
			Source:        source,
			Provider:      provider,
			TotalRawRows:  rawRows,
			UniqueTickets: uniqueTickets,
		},
		TicketSummaries: summaries,
		Diagnostics:     diagnostics,
		OutreachList:    outreach,
	}
}
