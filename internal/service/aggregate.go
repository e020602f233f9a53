package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ticketlens/backend/internal/models"
)

// Column names of the ticket-comments CSV export.
const (
	ColTicketID         = "Zendesk Tickets ID"
	ColCommentID        = "Zendesk Comments ID"
	ColCommentBody      = "Zendesk Comments Body"
	ColEntID            = "Zendesk Tickets Ent ID"
	ColSubject          = "Zendesk Tickets Subject"
	ColOriginalCategory = "Support Ticket Output Gpt Subcategory"
	ColRootCause        = "Zendesk Tickets Root Cause"
)

// Sentinels for fields missing from the export.
const (
	NoSubject         = "No Subject"
	NotSpecified      = "Not Specified"
	UnknownCategory   = "Unknown"
	EmailNotAvailable = "Not available"
)

// Comments whose cleaned body is this short carry no signal and are
// dropped from the thread.
const minCommentLength = 10

var requiredColumns = []string{
	ColTicketID,
	ColCommentID,
	ColCommentBody,
	ColEntID,
	ColSubject,
}

// SchemaError reports required columns absent from the input. It is
// fatal to the whole job.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ValidateColumns fails with a SchemaError when any required column is
// absent from the header row.
func ValidateColumns(headers []string) error {
	present := map[string]bool{}
	for _, h := range headers {
		present[normalizeHeader(h)] = true
	}
	var missing []string
	for _, col := range requiredColumns {
		if !present[normalizeHeader(col)] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// CleanRows fills missing values with their sentinels, drops duplicate
// comment ids (first occurrence kept), and drops rows whose ticket or
// comment id fails numeric coercion.
func CleanRows(headers []string, records [][]string) []models.RawCommentRow {
	index := headerIndex(headers)
	seen := map[int64]bool{}
	var rows []models.RawCommentRow

	for _, rec := range records {
		ticketID, ok := parseID(getField(rec, index, ColTicketID))
		if !ok {
			continue
		}
		commentID, ok := parseID(getField(rec, index, ColCommentID))
		if !ok {
			continue
		}
		if seen[commentID] {
			continue
		}
		seen[commentID] = true

		subject := getField(rec, index, ColSubject)
		if subject == "" {
			subject = NoSubject
		}
		rootCause := getField(rec, index, ColRootCause)
		if rootCause == "" {
			rootCause = NotSpecified
		}
		category := getField(rec, index, ColOriginalCategory)
		if category == "" {
			category = UnknownCategory
		}

		rows = append(rows, models.RawCommentRow{
			TicketID:          ticketID,
			CommentID:         commentID,
			Body:              getRawField(rec, index, ColCommentBody),
			EntID:             getField(rec, index, ColEntID),
			Subject:           subject,
			OriginalCategory:  category,
			OriginalRootCause: rootCause,
		})
	}
	return rows
}

// GroupRows partitions rows by ticket id. Groups are emitted in the
// order each ticket id first appears; rows within a group keep their
// original order.
func GroupRows(rows []models.RawCommentRow) [][]models.RawCommentRow {
	byTicket := map[int64]int{}
	var groups [][]models.RawCommentRow
	for _, row := range rows {
		idx, ok := byTicket[row.TicketID]
		if !ok {
			idx = len(groups)
			byTicket[row.TicketID] = idx
			groups = append(groups, nil)
		}
		groups[idx] = append(groups[idx], row)
	}
	return groups
}

// BuildThread orders one ticket's rows by comment id, cleans each body,
// drops comments at or under the length floor, and classifies the rest.
// The classification position counts retained comments only, so a
// dropped comment does not shift the roles of those after it.
func BuildThread(rows []models.RawCommentRow) models.TicketThread {
	ordered := make([]models.RawCommentRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CommentID < ordered[j].CommentID
	})

	first := ordered[0]
	thread := models.TicketThread{
		TicketID:          first.TicketID,
		EntID:             first.EntID,
		Subject:           first.Subject,
		OriginalCategory:  first.OriginalCategory,
		OriginalRootCause: first.OriginalRootCause,
		TotalExchanges:    len(ordered),
	}

	for _, row := range ordered {
		cleaned := CleanCommentBody(row.Body)
		if cleaned == "" || utf8.RuneCountInString(cleaned) <= minCommentLength {
			continue
		}
		position := len(thread.Comments)
		thread.Comments = append(thread.Comments, models.CleanedComment{
			Body:      cleaned,
			Role:      ClassifyComment(cleaned, position),
			Position:  position + 1,
			CommentID: row.CommentID,
		})
	}
	return thread
}

var authorEmailRe = regexp.MustCompile(`Email:\s*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)

// ExtractAuthorEmail scans the raw comment bodies, not the cleaned ones;
// cleaning strips the very metadata line the email lives on. Returns the
// first match in original row order.
func ExtractAuthorEmail(rows []models.RawCommentRow) string {
	for _, row := range rows {
		if m := authorEmailRe.FindStringSubmatch(row.Body); m != nil {
			return m[1]
		}
	}
	return EmailNotAvailable
}

func parseID(value string) (int64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, true
	}
	// Exports sometimes render ids as floats ("12345.0").
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\uFEFF", "")
	return strings.ToLower(strings.TrimSpace(h))
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[normalizeHeader(name)]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

// getRawField keeps surrounding whitespace, which matters for bodies
// where blank lines delimit metadata blocks.
func getRawField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[normalizeHeader(name)]
	if !ok || pos >= len(rec) {
		return ""
	}
	return rec[pos]
}
