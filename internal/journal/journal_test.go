package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpenEmptyPathDisablesJournal(t *testing.T) {
	j, err := Open("")
	require.NoError(t, err)
	require.Nil(t, j)
}

func TestNilJournalIsNoOp(t *testing.T) {
	var j *Journal
	ctx := context.Background()

	runID, err := j.BeginRun(ctx, 3, time.Now())
	require.NoError(t, err)
	require.Empty(t, runID)
	require.NoError(t, j.RecordCase(ctx, runID, "IOE1", OutcomeUpdated, 2, "", time.Now()))
	require.NoError(t, j.FinishRun(ctx, runID, 0, time.Now()))
	require.NoError(t, j.Close())
}

func TestRunLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	started := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	runID, err := j.BeginRun(ctx, 2, started)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.NoError(t, j.RecordCase(ctx, runID, "IOE1", OutcomeUpdated, 3, "3 records", started))
	require.NoError(t, j.RecordCase(ctx, runID, "IOE2", OutcomeFetchFailed, 0, "timed out", started))
	require.NoError(t, j.FinishRun(ctx, runID, 1, started.Add(time.Minute)))

	outcomes, err := j.CaseOutcomes(ctx, runID)
	require.NoError(t, err)
	require.Equal(t, []CaseOutcome{
		{Receipt: "IOE1", Outcome: OutcomeUpdated},
		{Receipt: "IOE2", Outcome: OutcomeFetchFailed},
	}, outcomes)
}

func TestCaseOutcomesPreserveInsertionOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	ts := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	runID, err := j.BeginRun(ctx, 3, ts)
	require.NoError(t, err)

	// Identical timestamps: order must still follow insertion, and a
	// re-recorded receipt appears twice rather than collapsing.
	require.NoError(t, j.RecordCase(ctx, runID, "IOE2", OutcomeEmpty, 0, "", ts))
	require.NoError(t, j.RecordCase(ctx, runID, "IOE1", OutcomeFetchFailed, 0, "timed out", ts))
	require.NoError(t, j.RecordCase(ctx, runID, "IOE1", OutcomeUpdated, 2, "retry", ts))

	outcomes, err := j.CaseOutcomes(ctx, runID)
	require.NoError(t, err)
	require.Equal(t, []CaseOutcome{
		{Receipt: "IOE2", Outcome: OutcomeEmpty},
		{Receipt: "IOE1", Outcome: OutcomeFetchFailed},
		{Receipt: "IOE1", Outcome: OutcomeUpdated},
	}, outcomes)
}

func TestOpenMigratesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)

	ctx := context.Background()
	runID, err := j.BeginRun(ctx, 1, time.Now())
	require.NoError(t, err)
	require.NoError(t, j.Close())

	// Re-opening must not error on existing tables and must see old rows.
	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.RecordCase(ctx, runID, "IOE1", OutcomeEmpty, 0, "", time.Now()))
	outcomes, err := j.CaseOutcomes(ctx, runID)
	require.NoError(t, err)
	require.Equal(t, []CaseOutcome{{Receipt: "IOE1", Outcome: OutcomeEmpty}}, outcomes)
}
