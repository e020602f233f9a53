package service

import (
	"regexp"
	"strings"
)

var (
	// "Message sent:" metadata blocks run until the next blank line or the
	// end of the body.
	messageSentRe  = regexp.MustCompile(`(?s)Message sent:.*?(\n\n|\z)`)
	metadataLineRe = regexp.MustCompile(`(Email|Phone|IP|User Agent|Country|City|URL|Chat ID):\s*[^\n]+\n?`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	newlineRunRe   = regexp.MustCompile(`\n{3,}`)
	mdImageRe      = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	mdLinkRe       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

// CleanCommentBody strips metadata blocks and contact-detail lines from a
// raw comment, collapses whitespace, and reduces markdown images and
// links to plain text.
func CleanCommentBody(body string) string {
	if body == "" {
		return ""
	}

	body = messageSentRe.ReplaceAllString(body, "${1}")
	body = metadataLineRe.ReplaceAllString(body, "")

	body = whitespaceRe.ReplaceAllString(body, " ")
	body = newlineRunRe.ReplaceAllString(body, "\n\n")

	body = mdImageRe.ReplaceAllString(body, "[Image]")
	body = mdLinkRe.ReplaceAllString(body, "${1}")

	return strings.TrimSpace(body)
}

var agentIndicators = []string{
	"thank you for reaching out",
	"support team",
	"regards,",
	"i've reselected",
	"i've checked",
	"please check on your end",
	"i'll close this thread",
	"happy to assist",
}

var customerIndicators = []string{
	"hi, i added",
	"i cannot",
	"please help",
	"any help would be",
	"i'm trying to",
	"thanks for your help",
}

// ClassifyComment tags a cleaned comment as customer- or agent-authored
// by counting indicator phrases. Ties fall back to the comment's position
// in the thread: the opening comment is usually the customer's.
// This is a heuristic; misclassification is tolerated downstream.
func ClassifyComment(body string, position int) string {
	lower := strings.ToLower(body)

	agentScore := 0
	for _, phrase := range agentIndicators {
		if strings.Contains(lower, phrase) {
			agentScore++
		}
	}
	customerScore := 0
	for _, phrase := range customerIndicators {
		if strings.Contains(lower, phrase) {
			customerScore++
		}
	}

	switch {
	case agentScore > customerScore:
		return "agent"
	case customerScore > agentScore:
		return "customer"
	case position == 0:
		return "customer"
	default:
		return "agent"
	}
}
