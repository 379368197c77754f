package journal

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/orrery/internal/storage"
)

const readDebounce = 100 * time.Millisecond

// Watch starts an fsnotify watcher on the journal directory and tails
// journal files as the game appends to them, until ctx is cancelled.
// Writes are debounced so a burst of appended lines is read in one pass.
func Watch(ctx context.Context, files storage.Provider, offsets Offsets, dir string, logger *slog.Logger, h Handler) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", dir))

	dirty := make(map[string]struct{})
	var readTimer *time.Timer
	var readCh <-chan time.Time

	scheduleRead := func() {
		if readTimer == nil {
			readTimer = time.NewTimer(readDebounce)
			readCh = readTimer.C
		} else {
			readTimer.Reset(readDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if readTimer != nil {
				readTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-readCh:
			names := make([]string, 0, len(dirty))
			for n := range dirty {
				names = append(names, n)
			}
			clear(dirty)
			sort.Strings(names)
			for _, name := range names {
				meta, err := files.Stat(name)
				if err != nil {
					logger.Warn("watcher: stat failed", slog.String("file", name), slog.String("error", err.Error()))
					continue
				}
				n, err := readFile(files, offsets, meta, logger, h)
				if err != nil {
					logger.Warn("watcher: read failed", slog.String("file", name), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: read", slog.String("file", name), slog.Int("events", n))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !storage.IsJournal(ev.Name) || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			dirty[filepath.Base(ev.Name)] = struct{}{}
			scheduleRead()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
