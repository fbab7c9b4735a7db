// Package watch re-triggers tracking runs when the case list file changes.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"casetrack/internal/config"
)

// debounce absorbs the write bursts editors produce when saving a file.
const debounce = 500 * time.Millisecond

// Watcher monitors the case list file and invokes trigger after each
// settled change.
type Watcher struct {
	cfg     config.Config
	trigger func()
	log     zerolog.Logger
}

func New(cfg config.Config, trigger func(), log zerolog.Logger) *Watcher {
	return &Watcher{cfg: cfg, trigger: trigger, log: log}
}

// Start begins watching. Returns immediately; events are handled on a
// background goroutine until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.WatchEnabled {
		w.log.Debug().Msg("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	target := filepath.Base(w.cfg.CasesFile)
	go func() {
		defer watcher.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Base(evt.Name) != target {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					w.log.Info().Str("file", w.cfg.CasesFile).Msg("case list changed, re-running")
					w.trigger()
				})
			case err := <-watcher.Errors:
				w.log.Warn().Err(err).Msg("watcher error")
			}
		}
	}()

	// Watch the directory: editors replace files on save, which drops a
	// direct file watch.
	dir := filepath.Dir(w.cfg.CasesFile)
	return watcher.Add(dir)
}
