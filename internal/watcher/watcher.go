// Package watcher notices when another process rewrites a stored key and
// triggers a reload.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the bursts of events produced by an atomic
// tmp-file-then-rename write.
const DefaultDebounce = 200 * time.Millisecond

// ReloadFunc is called after the watched key settled. It reports whether the
// reload changed anything.
type ReloadFunc func(ctx context.Context) bool

// ChangeCallback is called after a reload that changed state.
type ChangeCallback func()

// Watch observes the file for key under root until ctx is cancelled.
func Watch(ctx context.Context, root, key string, debounce time.Duration, logger *slog.Logger, reload ReloadFunc, cb ChangeCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory, not the file: atomic writes replace the inode.
	if err := w.Add(root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root), slog.String("key", key))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			if reload(ctx) {
				logger.Info("watcher: reloaded", slog.String("key", key))
				if cb != nil {
					cb()
				}
			} else {
				logger.Debug("watcher: no change", slog.String("key", key))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != key {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: event", slog.String("op", ev.Op.String()), slog.String("path", ev.Name))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
