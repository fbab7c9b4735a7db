package history

import (
	"casetrack/internal/classify"
)

// ChangeKind describes what an upsert did.
type ChangeKind int

const (
	// Unchanged means an identical record already existed.
	Unchanged ChangeKind = iota
	// Inserted means no record existed for the (receipt, type) slot.
	Inserted
	// Replaced means the slot existed with a different (date, status).
	Replaced
)

// Change reports one applied merge decision for run reporting.
type Change struct {
	ReceiptNumber string
	Type          classify.StatusType
	Kind          ChangeKind
}

// CleanStats summarizes a cleaning pass.
type CleanStats struct {
	Dropped int
	Kept    int
}

// Clean drops rows whose type is not one of the three canonical slots
// (legacy unknown rows, plus anything another tool may have written) and
// collapses each (receipt, status_type) slot to a single row, preferring
// the latest status_date and breaking ties by latest scraped_at, then by
// file order. Running Clean on an already-clean store is a no-op. The
// receiver is not modified.
func (s *Store) Clean() (*Store, CleanStats) {
	type slot struct {
		receipt string
		typ     classify.StatusType
	}
	best := make(map[slot]int)
	for i, row := range s.rows {
		if !row.Type.Canonical() {
			continue
		}
		key := slot{row.ReceiptNumber, row.Type}
		prev, ok := best[key]
		if !ok || !newerRow(s.rows[prev], row) {
			best[key] = i
		}
	}

	keep := make(map[int]struct{}, len(best))
	for _, i := range best {
		keep[i] = struct{}{}
	}
	rows := make([]Row, 0, len(best))
	for i, row := range s.rows {
		if _, ok := keep[i]; ok {
			rows = append(rows, row)
		}
	}
	return &Store{rows: rows}, CleanStats{Dropped: len(s.rows) - len(rows), Kept: len(rows)}
}

// newerRow reports whether a should win over b for the same slot.
func newerRow(a, b Row) bool {
	if a.StatusDate != b.StatusDate {
		return a.StatusDate > b.StatusDate
	}
	return a.ScrapedAt > b.ScrapedAt
}

// Upsert integrates one classified record, returning the updated store and
// what happened. Identical content is a no-op so re-running a merge never
// grows the table.
func (s *Store) Upsert(rec classify.Record) (*Store, ChangeKind) {
	newRow := Row{
		ReceiptNumber: rec.ReceiptNumber,
		Status:        rec.Status,
		StatusDate:    rec.StatusDate,
		Type:          rec.Type,
		ScrapedAt:     FormatScrapedAt(rec.ScrapedAt),
	}

	for i, row := range s.rows {
		if row.ReceiptNumber != rec.ReceiptNumber || row.Type != rec.Type {
			continue
		}
		if row.StatusDate == rec.StatusDate && row.Status == rec.Status {
			return s, Unchanged
		}
		rows := append([]Row(nil), s.rows...)
		rows[i] = newRow
		return &Store{rows: rows}, Replaced
	}

	rows := append(append([]Row(nil), s.rows...), newRow)
	return &Store{rows: rows}, Inserted
}

// Merge applies all records for one case and returns the store along with
// the non-noop changes.
func (s *Store) Merge(recs []classify.Record) (*Store, []Change) {
	store := s
	var changes []Change
	for _, rec := range recs {
		var kind ChangeKind
		store, kind = store.Upsert(rec)
		if kind != Unchanged {
			changes = append(changes, Change{ReceiptNumber: rec.ReceiptNumber, Type: rec.Type, Kind: kind})
		}
	}
	return store, changes
}
