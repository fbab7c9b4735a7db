// Package run drives one tracking pass: load the case list and history,
// fetch each case page, extract and classify its timeline, reconcile into
// the store, and persist the result.
package run

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"casetrack/internal/classify"
	"casetrack/internal/config"
	"casetrack/internal/history"
	"casetrack/internal/journal"
	"casetrack/internal/metrics"
	"casetrack/internal/timeline"
)

// Fetcher obtains rendered page text for one receipt number.
type Fetcher interface {
	CaseText(ctx context.Context, receipt string) (string, error)
}

// Summary reports what a run did.
type Summary struct {
	CasesTotal     int
	FetchFailures  int
	RecordsChanged int
	RowsDropped    int
}

// Coordinator owns the sequential case loop. Cases are processed one at a
// time; the store is only touched between fetches, so no locking is
// involved.
type Coordinator struct {
	cfg       config.Config
	fetcher   Fetcher
	extractor *timeline.Extractor
	journal   *journal.Journal
	log       zerolog.Logger

	// sleep is swapped out by tests to assert delay behavior.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewCoordinator wires a coordinator. journal may be nil.
func NewCoordinator(cfg config.Config, fetcher Fetcher, jrnl *journal.Journal, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: timeline.NewExtractor(cfg.Vocab),
		journal:   jrnl,
		log:       log,
		sleep:     time.Sleep,
		now:       config.Now,
	}
}

// Run executes one full tracking pass. Per-case failures are logged and
// skipped; the store is saved at the end even when nothing changed so a
// cleaning pass always persists.
func (c *Coordinator) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	cases, err := ReadCaseList(c.cfg.CasesFile)
	if err != nil {
		return sum, err
	}
	sum.CasesTotal = len(cases)
	c.log.Info().Int("cases", len(cases)).Str("file", c.cfg.CasesFile).Msg("tracking case list")

	store, err := history.Load(c.cfg.HistoryFile)
	if err != nil {
		return sum, err
	}
	c.log.Info().Int("rows", store.Len()).Str("file", c.cfg.HistoryFile).Msg("loaded history")

	store, stats := store.Clean()
	sum.RowsDropped = stats.Dropped
	if stats.Dropped > 0 {
		c.log.Info().Int("dropped", stats.Dropped).Int("kept", stats.Kept).Msg("cleaned legacy history rows")
	}

	runStart := c.now()
	runID, err := c.journal.BeginRun(ctx, len(cases), runStart)
	if err != nil {
		c.log.Warn().Err(err).Msg("journal unavailable, continuing without it")
		runID = ""
	}

	changedCases := make(map[string][]history.Change)
	for i, receipt := range cases {
		c.log.Info().Str("receipt", receipt).Msgf("checking %d/%d", i+1, len(cases))

		store = c.processCase(ctx, store, receipt, runID, runStart, &sum, changedCases)

		if i < len(cases)-1 {
			c.sleep(c.cfg.CaseDelay)
		}
	}

	if err := c.journal.FinishRun(ctx, runID, sum.FetchFailures, c.now()); err != nil {
		c.log.Warn().Err(err).Msg("journal finish failed")
	}

	if err := store.Save(c.cfg.HistoryFile); err != nil {
		return sum, fmt.Errorf("persist history: %w", err)
	}

	c.report(store, cases, changedCases, runStart, &sum)
	return sum, nil
}

// processCase runs the pipeline for one receipt and returns the updated
// store. Every failure path leaves the store untouched.
func (c *Coordinator) processCase(ctx context.Context, store *history.Store, receipt, runID string, scrapedAt time.Time, sum *Summary, changed map[string][]history.Change) *history.Store {
	text, err := c.fetcher.CaseText(ctx, receipt)
	if err != nil {
		c.log.Warn().Err(err).Str("receipt", receipt).Msg("fetch failed, skipping case")
		metrics.IncFailed()
		sum.FetchFailures++
		c.recordCase(ctx, runID, receipt, journal.OutcomeFetchFailed, 0, err.Error())
		return store
	}
	metrics.IncFetched()

	entries := c.extractor.Extract(text)
	if len(entries) == 0 {
		c.log.Info().Str("receipt", receipt).Msg("no timeline entries found")
		c.recordCase(ctx, runID, receipt, journal.OutcomeEmpty, 0, "")
		return store
	}
	for _, e := range entries {
		c.log.Debug().Str("receipt", receipt).Str("date", e.Date).Str("status", e.Status).Msg("timeline entry")
	}

	records := classify.Classify(entries, receipt, scrapedAt)
	merged, changes := store.Merge(records)
	if len(changes) == 0 {
		c.log.Info().Str("receipt", receipt).Int("entries", len(entries)).Msg("no changes detected")
		c.recordCase(ctx, runID, receipt, journal.OutcomeUnchanged, len(entries), "")
		return merged
	}

	types := make([]string, 0, len(changes))
	for _, ch := range changes {
		types = append(types, string(ch.Type))
	}
	c.log.Info().Str("receipt", receipt).Strs("types", types).Msg("updated key status entries")
	metrics.AddChanged(int64(len(changes)))
	sum.RecordsChanged += len(changes)
	changed[receipt] = changes
	c.recordCase(ctx, runID, receipt, journal.OutcomeUpdated, len(entries), fmt.Sprintf("%d records", len(changes)))
	return merged
}

func (c *Coordinator) recordCase(ctx context.Context, runID, receipt, outcome string, entries int, detail string) {
	if err := c.journal.RecordCase(ctx, runID, receipt, outcome, entries, detail, c.now()); err != nil {
		c.log.Warn().Err(err).Str("receipt", receipt).Msg("journal record failed")
	}
}

// report emits the end-of-run summary: totals, cases with changes, and a
// per-case listing of the retained key statuses.
func (c *Coordinator) report(store *history.Store, cases []string, changed map[string][]history.Change, runStart time.Time, sum *Summary) {
	receipts := store.Receipts()
	avg := 0.0
	if len(receipts) > 0 {
		avg = float64(store.Len()) / float64(len(receipts))
	}
	c.log.Info().
		Time("run_started", runStart).
		Int("cases_tracked", len(receipts)).
		Int("total_entries", store.Len()).
		Float64("avg_entries_per_case", avg).
		Int("fetch_failures", sum.FetchFailures).
		Msg("run summary")
	c.log.Debug().Fields(map[string]interface{}{"counters": metrics.Snapshot()}).Msg("process counters")

	if len(changed) == 0 {
		c.log.Info().Msg("no new key status entries detected")
	}

	for _, receipt := range cases {
		rows := store.CaseRows(receipt)
		if len(rows) == 0 {
			c.log.Info().Str("receipt", receipt).Msg("no key status entries")
			continue
		}
		for _, row := range rows {
			c.log.Info().
				Str("receipt", receipt).
				Str("type", string(row.Type)).
				Str("date", row.StatusDate).
				Str("status", row.Status).
				Msg("key status")
		}
	}
}
