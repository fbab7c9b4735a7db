// Package journal keeps an operational record of runs and per-case
// outcomes in SQLite. It is diagnostics only; the history CSV remains the
// data contract.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Per-case outcomes recorded for each processed receipt.
const (
	OutcomeFetchFailed = "fetch_failed"
	OutcomeEmpty       = "empty"
	OutcomeUpdated     = "updated"
	OutcomeUnchanged   = "unchanged"
)

// Journal wraps SQLite access for run bookkeeping. A nil *Journal is a
// valid no-op recorder, used when the journal is disabled.
type Journal struct {
	db *sql.DB
}

// Open creates or migrates the journal database. An empty path disables
// the journal and returns nil.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, nil
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            run_id TEXT PRIMARY KEY,
            started_at TIMESTAMP,
            finished_at TIMESTAMP,
            cases_total INTEGER,
            cases_failed INTEGER
        );`,
		`CREATE TABLE IF NOT EXISTS run_cases (
            run_id TEXT,
            receipt_number TEXT,
            outcome TEXT,
            entries INTEGER,
            detail TEXT,
            created_at TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_run_cases_run ON run_cases(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// BeginRun records a new run and returns its id.
func (j *Journal) BeginRun(ctx context.Context, casesTotal int, ts time.Time) (string, error) {
	if j == nil {
		return "", nil
	}
	runID := uuid.NewString()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, started_at, cases_total, cases_failed) VALUES(?,?,?,0)`,
		runID, ts, casesTotal)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return runID, nil
}

// RecordCase appends one per-case outcome row.
func (j *Journal) RecordCase(ctx context.Context, runID, receipt, outcome string, entries int, detail string, ts time.Time) error {
	if j == nil || runID == "" {
		return nil
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO run_cases(run_id, receipt_number, outcome, entries, detail, created_at) VALUES(?,?,?,?,?,?)`,
		runID, receipt, outcome, entries, detail, ts)
	if err != nil {
		return fmt.Errorf("record case: %w", err)
	}
	return nil
}

// FinishRun closes out a run row.
func (j *Journal) FinishRun(ctx context.Context, runID string, casesFailed int, ts time.Time) error {
	if j == nil || runID == "" {
		return nil
	}
	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at=?, cases_failed=? WHERE run_id=?`,
		ts, casesFailed, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// CaseOutcome is one recorded (receipt, outcome) pair.
type CaseOutcome struct {
	Receipt string
	Outcome string
}

// CaseOutcomes returns the outcomes recorded for a run, in insertion
// order. A receipt recorded twice appears twice.
func (j *Journal) CaseOutcomes(ctx context.Context, runID string) ([]CaseOutcome, error) {
	if j == nil {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT receipt_number, outcome FROM run_cases WHERE run_id=? ORDER BY created_at ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CaseOutcome
	for rows.Next() {
		var oc CaseOutcome
		if err := rows.Scan(&oc.Receipt, &oc.Outcome); err != nil {
			return nil, err
		}
		out = append(out, oc)
	}
	return out, rows.Err()
}
