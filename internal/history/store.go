// Package history persists classified status records across runs in the
// tabular file consumed by downstream spreadsheets. The merge key is
// always (receipt_number, status_type); status text is never a key.
package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"casetrack/internal/classify"
)

// TimeLayout is the scraped_at column format. Kept identical to what
// earlier versions of the tool wrote so old files diff cleanly.
const TimeLayout = "2006-01-02 15:04:05"

var header = []string{"receipt_number", "status", "status_date", "status_type", "scraped_at"}

// Row is one persisted status record.
type Row struct {
	ReceiptNumber string
	Status        string
	StatusDate    string
	Type          classify.StatusType
	ScrapedAt     string
}

// Store is an immutable snapshot of the history table. Mutating
// operations (Clean, Upsert, Merge) return a new Store rather than
// editing rows in place.
type Store struct {
	rows []Row
}

// NewStore builds a store from rows, for tests and internal use.
func NewStore(rows []Row) *Store {
	return &Store{rows: append([]Row(nil), rows...)}
}

// Load reads the history file. A missing file yields an empty store. Files
// written before the status_type column existed load with the type
// defaulted to unknown; Clean drops those rows.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{}, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(records) == 0 {
		return &Store{}, nil
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	for _, required := range []string{"receipt_number", "status", "status_date", "scraped_at"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("history file missing column %q", required)
		}
	}
	typeIdx, hasType := col["status_type"]

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := Row{
			ReceiptNumber: rec[col["receipt_number"]],
			Status:        rec[col["status"]],
			StatusDate:    rec[col["status_date"]],
			ScrapedAt:     rec[col["scraped_at"]],
			Type:          classify.Unknown,
		}
		if hasType && typeIdx < len(rec) && rec[typeIdx] != "" {
			row.Type = classify.StatusType(rec[typeIdx])
		}
		rows = append(rows, row)
	}
	return &Store{rows: rows}, nil
}

// Save writes the table sorted by (receipt_number, status_date). The
// rows go to a temp file in the same directory that is renamed over the
// target, so a failure mid-write leaves the previous history intact.
func (s *Store) Save(path string) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".history-*.csv")
	if err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	tmp := f.Name()

	if err := s.write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write history: %w", err)
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write history: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

func (s *Store) write(f *os.File) error {
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range s.Sorted() {
		record := []string{row.ReceiptNumber, row.Status, row.StatusDate, string(row.Type), row.ScrapedAt}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Len returns the number of rows.
func (s *Store) Len() int { return len(s.rows) }

// Rows returns a copy of the backing rows in insertion order.
func (s *Store) Rows() []Row {
	return append([]Row(nil), s.rows...)
}

// Sorted returns rows ordered by (receipt_number, status_date), stable on
// ties.
func (s *Store) Sorted() []Row {
	out := append([]Row(nil), s.rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ReceiptNumber != out[j].ReceiptNumber {
			return out[i].ReceiptNumber < out[j].ReceiptNumber
		}
		return out[i].StatusDate < out[j].StatusDate
	})
	return out
}

// CaseRows returns the rows for one receipt ordered by status_date.
func (s *Store) CaseRows(receipt string) []Row {
	var out []Row
	for _, row := range s.rows {
		if row.ReceiptNumber == receipt {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StatusDate < out[j].StatusDate })
	return out
}

// Receipts returns the distinct receipt numbers present, sorted.
func (s *Store) Receipts() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range s.rows {
		if _, ok := seen[row.ReceiptNumber]; ok {
			continue
		}
		seen[row.ReceiptNumber] = struct{}{}
		out = append(out, row.ReceiptNumber)
	}
	sort.Strings(out)
	return out
}

// FormatScrapedAt renders a timestamp for the scraped_at column.
func FormatScrapedAt(t time.Time) string {
	return t.Format(TimeLayout)
}
