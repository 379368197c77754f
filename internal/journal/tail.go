package journal

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/orrery/internal/storage"
)

// Offsets persists how far each journal file has been consumed.
type Offsets interface {
	Offset(file string) (int64, error)
	SetOffset(file string, offset int64) error
}

// Handler receives every decoded event together with its raw record.
type Handler func(ev Event, raw []byte) error

// Sync reads every journal file in files from its saved offset, in file
// name order, and hands new events to h.
func Sync(files storage.Provider, offsets Offsets, logger *slog.Logger, h Handler) error {
	metas, err := files.List()
	if err != nil {
		return err
	}
	for _, m := range metas {
		if _, err := readFile(files, offsets, m, logger, h); err != nil {
			logger.Warn("journal: sync failed", slog.String("file", m.Name), slog.String("error", err.Error()))
		}
	}
	return nil
}

// readFile consumes the complete lines appended to a journal file since the
// saved offset and returns how many events were handed to h. A trailing
// partial line is left for the next read.
func readFile(files storage.Provider, offsets Offsets, meta storage.FileMeta, logger *slog.Logger, h Handler) (int, error) {
	off, err := offsets.Offset(meta.Name)
	if err != nil {
		return 0, err
	}
	if meta.Size < off {
		logger.Warn("journal: file shrank, rereading",
			slog.String("file", meta.Name), slog.Int64("offset", off), slog.Int64("size", meta.Size))
		off = 0
	}
	if meta.Size == off {
		return 0, nil
	}

	data, err := files.ReadFrom(meta.Name, off)
	if err != nil {
		return 0, err
	}
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return 0, nil
	}

	handled := 0
	for _, line := range bytes.Split(data[:end], []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		ev, err := Decode(line)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		if err != nil {
			logger.Warn("journal: bad record", slog.String("file", meta.Name), slog.String("error", err.Error()))
			continue
		}
		if err := h(ev, line); err != nil {
			logger.Warn("journal: handler failed",
				slog.String("file", meta.Name), slog.String("event", string(ev.EventKind())), slog.String("error", err.Error()))
			continue
		}
		handled++
	}

	if err := offsets.SetOffset(meta.Name, off+int64(end)+1); err != nil {
		return handled, fmt.Errorf("journal: save offset: %w", err)
	}
	return handled, nil
}
