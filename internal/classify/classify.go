// Package classify reduces a raw timeline to at most three durable status
// records per case: the first chronological status, an interview
// cancellation, and the most recent status.
package classify

import (
	"sort"
	"strings"
	"time"

	"casetrack/internal/dates"
	"casetrack/internal/timeline"
)

// StatusType tags the canonical slot a record occupies for its case.
// Values double as the persisted status_type column.
type StatusType string

const (
	CaseReceived       StatusType = "case_received"
	InterviewCancelled StatusType = "interview_cancelled"
	LastStatus         StatusType = "last_status"

	// Unknown marks rows written by legacy versions of the tool before
	// classification existed. The reconciler drops them during cleaning.
	Unknown StatusType = "unknown"
)

// Canonical reports whether t is one of the three slot types the store
// keeps. Anything else, Unknown included, is dropped during cleaning.
func (t StatusType) Canonical() bool {
	switch t {
	case CaseReceived, InterviewCancelled, LastStatus:
		return true
	}
	return false
}

// Record is one classified, durable status observation.
type Record struct {
	ReceiptNumber string
	Status        string
	StatusDate    string
	Type          StatusType
	ScrapedAt     time.Time
}

// isCancellation reports whether a status text is an interview
// cancellation, accepting both spellings.
func isCancellation(status string) bool {
	lower := strings.ToLower(status)
	if !strings.Contains(lower, "interview") {
		return false
	}
	return strings.Contains(lower, "cancelled") || strings.Contains(lower, "canceled")
}

// Classify filters entries to valid ISO dates, sorts them chronologically,
// and picks up to three records. Entries with equal dates keep their
// original relative order, so the result is deterministic for any input
// permutation of a given date-sorted sequence.
func Classify(entries []timeline.Entry, receipt string, scrapedAt time.Time) []Record {
	valid := make([]timeline.Entry, 0, len(entries))
	for _, e := range entries {
		if dates.IsISO(e.Date) {
			valid = append(valid, e)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Date < valid[j].Date })

	var cancelled, received *timeline.Entry
	for i := range valid {
		if cancelled == nil && isCancellation(valid[i].Status) {
			cancelled = &valid[i]
		}
		if received == nil && !isCancellation(valid[i].Status) {
			received = &valid[i]
		}
		if cancelled != nil && received != nil {
			break
		}
	}
	// When every entry is a cancellation there is no case_received pick;
	// the first chronological status being a cancellation is left
	// unresolved on purpose.
	last := &valid[len(valid)-1]

	var records []Record
	taken := make(map[timeline.Entry]struct{})
	emit := func(e *timeline.Entry, t StatusType) {
		if e == nil {
			return
		}
		if _, dup := taken[*e]; dup {
			return
		}
		taken[*e] = struct{}{}
		records = append(records, Record{
			ReceiptNumber: receipt,
			Status:        e.Status,
			StatusDate:    e.Date,
			Type:          t,
			ScrapedAt:     scrapedAt,
		})
	}

	emit(received, CaseReceived)
	emit(cancelled, InterviewCancelled)
	emit(last, LastStatus)

	return records
}
