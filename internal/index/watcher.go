package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/resnum/internal/seqstore"
)

const reloadDebounce = 200 * time.Millisecond

// ReloadCallback receives the freshly parsed store after the FASTA changes.
type ReloadCallback func(store *seqstore.Store)

// Watch observes the FASTA file at fastaPath until ctx is cancelled. Bursts
// of writes are debounced into a single reload; a successful reload refreshes
// db (when non-nil) and is handed to cb. A file that fails to parse keeps the
// previous store in service.
//
// The parent directory is watched rather than the file itself so that
// editors and sync tools that replace the file via rename are still seen.
func Watch(ctx context.Context, db SequenceIndex, fastaPath string, exclude *regexp.Regexp, logger *slog.Logger, cb ReloadCallback) error {
	target, err := filepath.Abs(fastaPath)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", target))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDebounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			reload(ctx, db, target, exclude, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				logger.Debug("watcher: change", slog.String("op", ev.Op.String()))
				scheduleReload()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Warn("watcher: fasta moved away, keeping current store", slog.String("path", target))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reload(ctx context.Context, db SequenceIndex, path string, exclude *regexp.Regexp, logger *slog.Logger, cb ReloadCallback) {
	store, fp, err := loadConsistent(ctx, path, exclude)
	if err != nil {
		logger.Warn("watcher: reload failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if db != nil {
		if err := db.Replace(path, fp, store.Records()); err != nil {
			logger.Warn("watcher: index refresh failed", slog.String("error", err.Error()))
		}
	}
	logger.Info("watcher: reloaded", slog.String("path", path), slog.Int("proteins", store.Len()))
	if cb != nil {
		cb(store)
	}
}
