package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"casetrack/internal/classify"
)

var mergeScrapedAt = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func rec(receipt, status, date string, typ classify.StatusType) classify.Record {
	return classify.Record{
		ReceiptNumber: receipt,
		Status:        status,
		StatusDate:    date,
		Type:          typ,
		ScrapedAt:     mergeScrapedAt,
	}
}

func TestCleanCollapsesDuplicateSlots(t *testing.T) {
	// Two last_status rows for the same case: the one with the later
	// status_date survives regardless of file order.
	store := NewStore([]Row{
		{ReceiptNumber: "IOE1", Status: "Case Was Updated", StatusDate: "2025-06-01", Type: classify.LastStatus, ScrapedAt: "2025-06-02 08:00:00"},
		{ReceiptNumber: "IOE1", Status: "Case Was Approved", StatusDate: "2025-07-01", Type: classify.LastStatus, ScrapedAt: "2025-06-01 08:00:00"},
		{ReceiptNumber: "IOE1", Status: "Case Was Received", StatusDate: "2025-02-01", Type: classify.CaseReceived, ScrapedAt: "2025-06-01 08:00:00"},
	})
	cleaned, stats := store.Clean()
	require.Equal(t, CleanStats{Dropped: 1, Kept: 2}, stats)
	rows := cleaned.Sorted()
	require.Len(t, rows, 2)
	require.Equal(t, "Case Was Received", rows[0].Status)
	require.Equal(t, "Case Was Approved", rows[1].Status)
}

func TestCleanTieBreaksOnScrapedAtThenFileOrder(t *testing.T) {
	store := NewStore([]Row{
		{ReceiptNumber: "IOE1", Status: "Old Text", StatusDate: "2025-06-01", Type: classify.LastStatus, ScrapedAt: "2025-06-01 08:00:00"},
		{ReceiptNumber: "IOE1", Status: "New Text", StatusDate: "2025-06-01", Type: classify.LastStatus, ScrapedAt: "2025-06-05 08:00:00"},
	})
	cleaned, _ := store.Clean()
	require.Len(t, cleaned.Rows(), 1)
	require.Equal(t, "New Text", cleaned.Rows()[0].Status)

	// Fully identical timestamps: the later row in the file wins.
	store = NewStore([]Row{
		{ReceiptNumber: "IOE1", Status: "First", StatusDate: "2025-06-01", Type: classify.LastStatus, ScrapedAt: "2025-06-01 08:00:00"},
		{ReceiptNumber: "IOE1", Status: "Second", StatusDate: "2025-06-01", Type: classify.LastStatus, ScrapedAt: "2025-06-01 08:00:00"},
	})
	cleaned, _ = store.Clean()
	require.Len(t, cleaned.Rows(), 1)
	require.Equal(t, "Second", cleaned.Rows()[0].Status)
}

func TestCleanDropsUnknownRows(t *testing.T) {
	store := NewStore([]Row{
		{ReceiptNumber: "IOE1", Status: "Case Was Received", StatusDate: "2025-02-01", Type: classify.Unknown},
		{ReceiptNumber: "IOE1", Status: "Case Was Received", StatusDate: "2025-02-01", Type: classify.CaseReceived},
	})
	cleaned, stats := store.Clean()
	require.Equal(t, 1, cleaned.Len())
	require.Equal(t, 1, stats.Dropped)
}

func TestCleanDropsNonCanonicalTypes(t *testing.T) {
	// A file touched by another tool can carry arbitrary status_type
	// values; only the three canonical slots survive cleaning, so a case
	// can never exceed three rows.
	store := NewStore([]Row{
		{ReceiptNumber: "IOE1", Status: "Case Was Received", StatusDate: "2025-02-01", Type: classify.CaseReceived},
		{ReceiptNumber: "IOE1", Status: "Interview Cancelled", StatusDate: "2025-05-09", Type: classify.InterviewCancelled},
		{ReceiptNumber: "IOE1", Status: "Case Was Updated", StatusDate: "2025-06-01", Type: classify.LastStatus},
		{ReceiptNumber: "IOE1", Status: "Held For Review", StatusDate: "2025-06-15", Type: classify.StatusType("pending_review")},
	})
	cleaned, stats := store.Clean()
	require.Equal(t, CleanStats{Dropped: 1, Kept: 3}, stats)
	rows := cleaned.CaseRows("IOE1")
	require.Len(t, rows, 3)
	for _, row := range rows {
		require.True(t, row.Type.Canonical(), "type %q survived cleaning", row.Type)
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	store := NewStore([]Row{
		{ReceiptNumber: "IOE1", Status: "Case Was Received", StatusDate: "2025-02-01", Type: classify.CaseReceived},
		{ReceiptNumber: "IOE1", Status: "Case Was Updated", StatusDate: "2025-06-01", Type: classify.LastStatus},
	})
	once, stats := store.Clean()
	require.Equal(t, 0, stats.Dropped)
	twice, stats := once.Clean()
	require.Equal(t, 0, stats.Dropped)
	require.Equal(t, once.Rows(), twice.Rows())
}

func TestUpsertInsertReplaceUnchanged(t *testing.T) {
	store := NewStore(nil)

	store, kind := store.Upsert(rec("IOE1", "Case Was Received", "2025-02-01", classify.CaseReceived))
	require.Equal(t, Inserted, kind)
	require.Equal(t, 1, store.Len())

	// Same slot, same content: no-op, store unchanged.
	same, kind := store.Upsert(rec("IOE1", "Case Was Received", "2025-02-01", classify.CaseReceived))
	require.Equal(t, Unchanged, kind)
	require.Equal(t, store.Rows(), same.Rows())

	// Same slot, new date: replaced in place, still one row.
	store, kind = store.Upsert(rec("IOE1", "Case Was Received", "2025-02-05", classify.CaseReceived))
	require.Equal(t, Replaced, kind)
	require.Equal(t, 1, store.Len())
	require.Equal(t, "2025-02-05", store.Rows()[0].StatusDate)

	// Different slot for the same case: inserted alongside.
	store, kind = store.Upsert(rec("IOE1", "Case Was Updated", "2025-06-01", classify.LastStatus))
	require.Equal(t, Inserted, kind)
	require.Equal(t, 2, store.Len())
}

func TestUpsertDoesNotMutateReceiver(t *testing.T) {
	base := NewStore([]Row{
		{ReceiptNumber: "IOE1", Status: "Case Was Received", StatusDate: "2025-02-01", Type: classify.CaseReceived},
	})
	_, kind := base.Upsert(rec("IOE1", "Case Was Received", "2025-03-01", classify.CaseReceived))
	require.Equal(t, Replaced, kind)
	require.Equal(t, "2025-02-01", base.Rows()[0].StatusDate)
}

func TestMergeIsIdempotent(t *testing.T) {
	recs := []classify.Record{
		rec("IOE1", "Case Was Received", "2025-02-01", classify.CaseReceived),
		rec("IOE1", "Interview Cancelled", "2025-05-09", classify.InterviewCancelled),
		rec("IOE1", "Case Was Updated", "2025-06-01", classify.LastStatus),
	}
	store, changes := NewStore(nil).Merge(recs)
	require.Len(t, changes, 3)
	for _, c := range changes {
		require.Equal(t, Inserted, c.Kind)
	}
	require.Equal(t, 3, store.Len())

	again, changes := store.Merge(recs)
	require.Empty(t, changes)
	require.Equal(t, store.Rows(), again.Rows())
}

func TestMergeKeepsCasesIndependent(t *testing.T) {
	store, _ := NewStore(nil).Merge([]classify.Record{
		rec("IOE1", "Case Was Received", "2025-02-01", classify.CaseReceived),
	})
	store, changes := store.Merge([]classify.Record{
		rec("IOE2", "Case Was Received", "2025-02-01", classify.CaseReceived),
	})
	require.Len(t, changes, 1)
	require.Equal(t, Inserted, changes[0].Kind)
	require.Equal(t, []string{"IOE1", "IOE2"}, store.Receipts())
}

func TestMergeEnforcesAtMostThreeRowsPerCase(t *testing.T) {
	// Repeated merges with evolving records never grow a case past one
	// row per status type.
	store := NewStore(nil)
	store, _ = store.Merge([]classify.Record{
		rec("IOE1", "Case Was Received", "2025-02-01", classify.CaseReceived),
		rec("IOE1", "Case Was Updated", "2025-04-01", classify.LastStatus),
	})
	store, _ = store.Merge([]classify.Record{
		rec("IOE1", "Case Was Received", "2025-02-01", classify.CaseReceived),
		rec("IOE1", "Interview Cancelled", "2025-05-09", classify.InterviewCancelled),
		rec("IOE1", "Case Was Approved", "2025-06-15", classify.LastStatus),
	})
	rows := store.CaseRows("IOE1")
	require.Len(t, rows, 3)
	seen := make(map[classify.StatusType]bool)
	for _, row := range rows {
		require.False(t, seen[row.Type], "duplicate type %s", row.Type)
		seen[row.Type] = true
	}
	require.Equal(t, "Case Was Approved", rows[2].Status)
}
