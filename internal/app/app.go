// Package app wires the tracker components together.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"casetrack/internal/config"
	"casetrack/internal/fetch"
	"casetrack/internal/journal"
	"casetrack/internal/run"
	"casetrack/internal/watch"
)

// App owns the long-lived pieces: configuration and the run journal. The
// browser session is scoped to a single run so watch mode never holds a
// browser open between runs.
type App struct {
	cfg  config.Config
	jrnl *journal.Journal
	log  zerolog.Logger
}

func New(cfg config.Config, log zerolog.Logger) (*App, error) {
	jrnl, err := journal.Open(cfg.JournalDB)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, jrnl: jrnl, log: log}, nil
}

// Close releases the journal.
func (a *App) Close() error {
	return a.jrnl.Close()
}

// Run performs the initial tracking pass and, when watch mode is enabled,
// keeps re-running on case list changes until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	_, err := a.runOnce(ctx)
	if !a.cfg.WatchEnabled {
		return err
	}
	if err != nil {
		a.log.Error().Err(err).Msg("run failed, staying in watch mode")
	}

	rerun := make(chan struct{}, 1)
	watcher := watch.New(a.cfg, func() {
		select {
		case rerun <- struct{}{}:
		default:
		}
	}, a.log)
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	a.log.Info().Str("file", a.cfg.CasesFile).Msg("watching case list for changes")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rerun:
			if _, err := a.runOnce(ctx); err != nil {
				a.log.Error().Err(err).Msg("run failed")
			}
		}
	}
}

// runOnce acquires a browser session, runs the coordinator, and releases
// the session on every exit path.
func (a *App) runOnce(ctx context.Context) (run.Summary, error) {
	session := fetch.NewSession(a.cfg.BaseURL, a.cfg.FetchTimeout, a.cfg.SettleDelay, a.cfg.Headless, a.log)
	if err := session.Start(ctx); err != nil {
		return run.Summary{}, fmt.Errorf("start fetch session: %w", err)
	}
	defer func() {
		a.log.Info().Msg("closing browser")
		if err := session.Close(); err != nil {
			a.log.Warn().Err(err).Msg("browser close failed")
		}
	}()

	coord := run.NewCoordinator(a.cfg, session, a.jrnl, a.log)
	return coord.Run(ctx)
}
