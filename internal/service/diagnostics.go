package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ticketlens/backend/internal/models"
)

var elementKeywords = []string{
	"element", "selector", "css", "xpath", "not found",
	"cannot find", "unable to locate", "reselect",
}

var visibilityKeywords = []string{
	"not showing", "not visible", "hidden", "display",
	"visibility rule", "not appearing",
}

var configurationKeywords = []string{
	"configuration", "settings", "rule", "condition",
	"advanced code", "custom code",
}

var simpleResolutionPhrases = []string{
	"reselect", "css selector", "visibility rule",
	"element property", "configuration change",
}

var codeChangePhrases = []string{"custom code", "javascript", "advanced"}

// Two distinct comment-count thresholds: one feeds the score, the other
// routes non-compatible tickets to the complex list. Merging them would
// change routing for tickets with exactly six comments.
const (
	humanAnalysisCommentThreshold = 6
	complexIssueCommentThreshold  = 5
)

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// CheckCompatibility evaluates the six rule checks against one summary.
// Score = positive checks minus negative checks; a ticket is compatible
// when the score is strictly positive.
func CheckCompatibility(summary models.TicketSummary) models.CompatibilityVerdict {
	issue := strings.ToLower(summary.IssueSummary)
	resolution := strings.ToLower(summary.ResolutionSummary)

	checks := models.CompatibilityChecks{
		ElementDetection:      containsAny(issue, elementKeywords),
		VisibilityRules:       containsAny(issue, visibilityKeywords),
		ConfigurationIssue:    containsAny(issue, configurationKeywords),
		SimpleCSSFix:          containsAny(resolution, simpleResolutionPhrases),
		RequiresCodeChange:    containsAny(resolution, codeChangePhrases),
		RequiresHumanAnalysis: summary.CommentCount > humanAnalysisCommentThreshold,
	}

	score := 0
	for _, positive := range []bool{
		checks.ElementDetection,
		checks.VisibilityRules,
		checks.SimpleCSSFix,
		checks.ConfigurationIssue,
	} {
		if positive {
			score++
		}
	}
	for _, negative := range []bool{checks.RequiresCodeChange, checks.RequiresHumanAnalysis} {
		if negative {
			score--
		}
	}

	compatible := score > 0
	recommendation := "Requires human support"
	if compatible {
		recommendation = "Can be automated with diagnostics"
	}

	return models.CompatibilityVerdict{
		TicketID:       summary.TicketID,
		IsCompatible:   compatible,
		Score:          score,
		Checks:         checks,
		Recommendation: recommendation,
		AuthorEmail:    summary.AuthorEmail,
	}
}

// orderedCounter tallies labels while remembering first-seen order so
// ranking ties resolve by encounter order, not map iteration order.
type orderedCounter struct {
	keys   []string
	counts map[string]int
}

func newOrderedCounter() *orderedCounter {
	return &orderedCounter{counts: map[string]int{}}
}

func (c *orderedCounter) Add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.counts[key]++
}

type labelCount struct {
	label string
	count int
}

func (c *orderedCounter) Top(n int) []labelCount {
	out := make([]labelCount, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, labelCount{label: k, count: c.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (c *orderedCounter) Map() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// AnalyzeAll rolls per-ticket verdicts into distribution statistics,
// routes each ticket to the compatible or complex list, and derives
// recommendations. Empty input yields a zero report, not an error.
func AnalyzeAll(summaries []models.TicketSummary) models.DiagnosticsReport {
	categories := newOrderedCounter()
	resolutionTypes := newOrderedCounter()
	var compatible []models.CompatibilityVerdict
	var complex []models.ComplexIssue

	for _, summary := range summaries {
		categories.Add(summary.DerivedCategory)
		resolutionTypes.Add(summary.ResolutionType)

		verdict := CheckCompatibility(summary)
		if verdict.IsCompatible {
			compatible = append(compatible, verdict)
		} else if summary.CommentCount > complexIssueCommentThreshold {
			complex = append(complex, models.ComplexIssue{
				TicketID:     summary.TicketID,
				Issue:        summary.IssueSummary,
				CommentCount: summary.CommentCount,
			})
		}
	}

	total := len(summaries)
	percentage := 0.0
	if total > 0 {
		percentage = float64(len(compatible)) / float64(total) * 100
	}

	return models.DiagnosticsReport{
		Summary: models.DiagnosticsSummary{
			TotalTickets:         total,
			CompatibleCount:      len(compatible),
			CompatiblePercentage: fmt.Sprintf("%.1f%%", percentage),
			ComplexIssuesCount:   len(complex),
		},
		CategoryDistribution:       categories.Map(),
		ResolutionTypeDistribution: resolutionTypes.Map(),
		CompatibleTickets:          compatible,
		ComplexIssues:              complex,
		Recommendations:            generateRecommendations(categories, compatible, percentage),
	}
}

func generateRecommendations(categories *orderedCounter, compatible []models.CompatibilityVerdict, percentage float64) []models.Recommendation {
	var recommendations []models.Recommendation

	top := categories.Top(3)
	names := make([]string, 0, len(top))
	for _, entry := range top {
		names = append(names, entry.label)
	}
	recommendations = append(recommendations, models.Recommendation{
		Type:           "Focus Area",
		Recommendation: fmt.Sprintf("Prioritize diagnostics for: %s", strings.Join(names, ", ")),
		Reason:         "These are the most common issue categories",
	})

	if percentage > 50 {
		recommendations = append(recommendations, models.Recommendation{
			Type:           "High Impact",
			Recommendation: "Diagnostics could potentially resolve majority of tickets automatically",
			Reason:         fmt.Sprintf("%.1f%% of tickets match diagnostics patterns", percentage),
		})
	}

	patterns := newOrderedCounter()
	for _, verdict := range compatible {
		if verdict.Checks.ElementDetection {
			patterns.Add("element_detection")
		}
		if verdict.Checks.VisibilityRules {
			patterns.Add("visibility_rules")
		}
		if verdict.Checks.SimpleCSSFix {
			patterns.Add("simple_css_fix")
		}
		if verdict.Checks.ConfigurationIssue {
			patterns.Add("configuration_issue")
		}
	}
	for _, entry := range patterns.Top(3) {
		recommendations = append(recommendations, models.Recommendation{
			Type:           "Feature Enhancement",
			Recommendation: fmt.Sprintf("Enhance diagnostics for '%s' issues", strings.ReplaceAll(entry.label, "_", " ")),
			Reason:         fmt.Sprintf("Appears in %d compatible tickets", entry.count),
		})
	}

	return recommendations
}
