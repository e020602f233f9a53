package models

import "time"

// RawCommentRow is one record of the ticket-comments CSV export after
// cleaning. Ticket and comment ids are numeric; rows that fail coercion
// never make it into one of these.
type RawCommentRow struct {
	TicketID          int64  `json:"ticket_id"`
	CommentID         int64  `json:"comment_id"`
	Body              string `json:"body"`
	EntID             string `json:"ent_id"`
	Subject           string `json:"subject"`
	OriginalCategory  string `json:"original_category"`
	OriginalRootCause string `json:"original_root_cause"`
}

// CleanedComment is a retained comment after normalization. Position is
// 1-based within the retained sequence, not the raw row sequence.
type CleanedComment struct {
	Body      string `json:"body"`
	Role      string `json:"role"`
	Position  int    `json:"position"`
	CommentID int64  `json:"comment_id"`
}

// TicketThread is one ticket's ordered comment sequence. Ticket-level
// fields are denormalized from the first row of the group.
type TicketThread struct {
	TicketID          int64            `json:"ticket_id"`
	EntID             string           `json:"ent_id"`
	Subject           string           `json:"subject"`
	OriginalCategory  string           `json:"original_category"`
	OriginalRootCause string           `json:"original_root_cause"`
	Comments          []CleanedComment `json:"comments"`
	TotalExchanges    int              `json:"total_exchanges"`
	AuthorEmail       string           `json:"author_email"`
}

// CommentBodies returns the cleaned bodies in thread order.
func (t TicketThread) CommentBodies() []string {
	bodies := make([]string, 0, len(t.Comments))
	for _, c := range t.Comments {
		bodies = append(bodies, c.Body)
	}
	return bodies
}

// TicketSummary is the structured per-ticket result of the summarizer
// call combined with thread-level metadata.
type TicketSummary struct {
	TicketID          int64  `json:"ticket_id"`
	EntID             string `json:"ent_id"`
	Subject           string `json:"subject"`
	IssueSummary      string `json:"issue_summary"`
	ResolutionSummary string `json:"resolution_summary"`
	DerivedCategory   string `json:"derived_category"`
	ResolutionType    string `json:"resolution_type"`
	OriginalCategory  string `json:"original_category"`
	OriginalRootCause string `json:"original_root_cause"`
	CommentCount      int    `json:"comment_count"`
	TotalExchanges    int    `json:"total_exchanges"`
	CustomerMessages  int    `json:"customer_messages"`
	AgentMessages     int    `json:"agent_messages"`
	AuthorEmail       string `json:"author_email"`
}

// CompatibilityChecks is the fixed set of per-ticket rule outcomes.
type CompatibilityChecks struct {
	ElementDetection      bool `json:"element_detection"`
	VisibilityRules       bool `json:"visibility_rules"`
	SimpleCSSFix          bool `json:"simple_css_fix"`
	ConfigurationIssue    bool `json:"configuration_issue"`
	RequiresCodeChange    bool `json:"requires_code_change"`
	RequiresHumanAnalysis bool `json:"requires_human_analysis"`
}

// CompatibilityVerdict is the scorer output for one summarized ticket.
// Score can be negative.
type CompatibilityVerdict struct {
	TicketID       int64               `json:"ticket_id"`
	IsCompatible   bool                `json:"is_diagnostics_compatible"`
	Score          int                 `json:"compatibility_score"`
	Checks         CompatibilityChecks `json:"checks"`
	Recommendation string              `json:"recommendation"`
	AuthorEmail    string              `json:"author_email"`
}

// ComplexIssue is a non-compatible ticket with a long conversation.
type ComplexIssue struct {
	TicketID     int64  `json:"ticket_id"`
	Issue        string `json:"issue"`
	CommentCount int    `json:"comment_count"`
}

// Recommendation is one entry of the ranked recommendation list.
type Recommendation struct {
	Type           string `json:"type"`
	Recommendation string `json:"recommendation"`
	Reason         string `json:"reason"`
}

// DiagnosticsSummary holds the headline counters of a report.
type DiagnosticsSummary struct {
	TotalTickets         int    `json:"total_tickets"`
	CompatibleCount      int    `json:"diagnostics_compatible_count"`
	CompatiblePercentage string `json:"diagnostics_compatible_percentage"`
	ComplexIssuesCount   int    `json:"complex_issues_count"`
}

// DiagnosticsReport aggregates per-ticket verdicts into distributions,
// routed lists, and recommendations.
type DiagnosticsReport struct {
	Summary                    DiagnosticsSummary     `json:"summary"`
	CategoryDistribution       map[string]int         `json:"category_distribution"`
	ResolutionTypeDistribution map[string]int         `json:"resolution_type_distribution"`
	CompatibleTickets          []CompatibilityVerdict `json:"diagnostics_compatible_tickets"`
	ComplexIssues              []ComplexIssue         `json:"complex_issues"`
	Recommendations            []Recommendation       `json:"recommendations"`
}

// OutreachEntry is one customer worth contacting about automated
// diagnostics.
type OutreachEntry struct {
	TicketID            int64  `json:"ticket_id"`
	AuthorEmail         string `json:"author_email"`
	IssueSummary        string `json:"issue_summary"`
	ResolutionSummary   string `json:"resolution_summary"`
	DerivedCategory     string `json:"derived_category"`
	ResolutionType      string `json:"resolution_type"`
	CouldUseDiagnostics bool   `json:"could_use_diagnostics"`
}

// ReportMetadata describes one analysis run.
type ReportMetadata struct {
	AnalyzedAt    time.Time `json:"analyzed_at"`
	Source        string    `json:"source"`
	Provider      string    `json:"llm_provider"`
	TotalRawRows  int       `json:"total_raw_rows"`
	UniqueTickets int       `json:"unique_tickets"`
}

// AnalysisReport is the full job result.
type AnalysisReport struct {
	Metadata        ReportMetadata    `json:"metadata"`
	TicketSummaries []TicketSummary   `json:"ticket_summaries"`
	Diagnostics     DiagnosticsReport `json:"diagnostics_analysis"`
	OutreachList    []OutreachEntry   `json:"author_outreach_list"`
}

// Job statuses. A job moves from processing to exactly one terminal
// status and never back.
const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusError      = "error"
)

// Job is one asynchronous analysis run, addressed by an opaque id.
type Job struct {
	ID                 string          `json:"id"`
	Status             string          `json:"status"`
	CurrentTicket      int             `json:"current_ticket"`
	TotalTickets       int             `json:"total_tickets"`
	ProgressPercentage float64         `json:"progress_percentage"`
	Error              string          `json:"error,omitempty"`
	ErrorKind          string          `json:"error_kind,omitempty"`
	Result             *AnalysisReport `json:"results,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	FinishedAt         *time.Time      `json:"finished_at,omitempty"`
}
