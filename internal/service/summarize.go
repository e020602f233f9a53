package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ticketlens/backend/internal/llm"
	"github.com/ticketlens/backend/internal/models"
)

const summaryInstructions = `You are analyzing a support ticket conversation between a customer and a support agent.

Please analyze the conversation and provide a response with the following structure AS A STRING:
    {
        "issue": "Precise description of the customer's problem",
        "resolution": "Exact steps taken by support to resolve the issue",
        "category": "Primary category of the issue (e.g., Element Selection, Content Visibility, Configuration, CSS Selector, Performance, etc.)",
        "resolution_type": "Type of resolution (e.g., Reselection, CSS Addition, Configuration Change, Bug Fix, User Education, etc.)"
    }

Do not wrap the structure in a markdown code block; return it as a plain string.

Focus on:
1. What exactly wasn't working from the customer's perspective
2. What specific technical actions the support agent took
3. Whether the issue was truly resolved
4. The root technical cause (not just symptoms)`

// Summarizer turns one ticket thread into a TicketSummary through the
// active provider. All failures are absorbed into the summary itself so
// one bad ticket never aborts the run.
type Summarizer struct {
	Provider llm.Provider
	Logger   zerolog.Logger
}

type structuredSummary struct {
	Issue          string `json:"issue"`
	Resolution     string `json:"resolution"`
	Category       string `json:"category"`
	ResolutionType string `json:"resolution_type"`
}

func (s *Summarizer) SummarizeThread(ctx context.Context, thread models.TicketThread) models.TicketSummary {
	summary := models.TicketSummary{
		TicketID:          thread.TicketID,
		EntID:             thread.EntID,
		Subject:           thread.Subject,
		OriginalCategory:  thread.OriginalCategory,
		OriginalRootCause: thread.OriginalRootCause,
		CommentCount:      len(thread.Comments),
		TotalExchanges:    thread.TotalExchanges,
		AuthorEmail:       thread.AuthorEmail,
	}
	for _, c := range thread.Comments {
		if c.Role == "customer" {
			summary.CustomerMessages++
		} else {
			summary.AgentMessages++
		}
	}

	raw, err := s.Provider.Summarize(ctx, thread.CommentBodies(), summaryInstructions)
	if err != nil {
		s.Logger.Error().Err(err).Int64("ticket_id", thread.TicketID).Msg("summarizer call failed")
		summary.IssueSummary = fmt.Sprintf("Error: %s", err.Error())
		summary.ResolutionSummary = ""
		summary.DerivedCategory = "Error"
		summary.ResolutionType = "Error"
		return summary
	}

	var parsed structuredSummary
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &parsed); err != nil {
		s.Logger.Warn().Int64("ticket_id", thread.TicketID).Msg("summarizer response was not valid JSON")
		summary.IssueSummary = "Failed to parse response"
		summary.ResolutionSummary = raw
		summary.DerivedCategory = "Unknown"
		summary.ResolutionType = "Unknown"
		return summary
	}

	summary.IssueSummary = parsed.Issue
	summary.ResolutionSummary = parsed.Resolution
	summary.DerivedCategory = parsed.Category
	summary.ResolutionType = parsed.ResolutionType
	return summary
}
