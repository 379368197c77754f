package scantree

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/starford/orrery/internal/journal"
	"github.com/starford/orrery/internal/parser"
)

var (
	// ErrRenameCollision rejects an event whose designation matches the
	// rename target of a historical system rather than its own name.
	ErrRenameCollision = errors.New("scantree: system rename collision")
	// ErrNoSystem means the history holds no candidate system.
	ErrNoSystem = errors.New("scantree: no matching system")
)

// HistoryEntry is one arrival in a system.
type HistoryEntry struct {
	System SystemInfo
	// RenameTarget is the name the system is known to have been renamed to.
	RenameTarget string
	Time         time.Time
}

// Match is the result of a successful resolution.
type Match struct {
	Designation string
	System      SystemInfo
	Index       int
}

// ResolveSystem searches history backward from index from for the system a
// body designation belongs to. An exact address match wins over a name
// match. A designation that only relates to an entry's rename target yields
// ErrRenameCollision. When nothing matches, the earliest searched entry is
// returned.
func ResolveSystem(history []HistoryEntry, from int, designation string, address *int64) (Match, error) {
	designation = strings.TrimSpace(designation)
	if from >= len(history) {
		from = len(history) - 1
	}
	if from < 0 {
		return Match{}, ErrNoSystem
	}

	if address != nil {
		for i := from; i >= 0; i-- {
			if a := history[i].System.Address; a != nil && *a == *address {
				return Match{Designation: designation, System: history[i].System, Index: i}, nil
			}
		}
	}

	for i := from; i >= 0; i-- {
		h := history[i]
		if parser.Related(designation, h.System.Name) {
			return Match{Designation: designation, System: h.System, Index: i}, nil
		}
		if h.RenameTarget != "" && parser.Related(designation, h.RenameTarget) {
			return Match{}, ErrRenameCollision
		}
	}

	return Match{Designation: designation, System: history[0].System, Index: 0}, nil
}

// ProcessJourney appends an arrival to the history and makes sure the system
// exists, filling in its address and position.
func (e *Engine) ProcessJourney(j *journal.Journey) {
	info := SystemInfo{Name: strings.TrimSpace(j.StarSystem), Address: j.SystemAddress}
	if len(j.StarPos) == 3 {
		info.Pos = &Coords{X: j.StarPos[0], Y: j.StarPos[1], Z: j.StarPos[2]}
	}
	if !info.Known() {
		return
	}

	e.historyMu.Lock()
	e.history = append(e.history, HistoryEntry{
		System:       info,
		RenameTarget: e.renames[strings.ToLower(info.Name)],
		Time:         j.Timestamp,
	})
	e.historyMu.Unlock()

	e.GetOrCreateSystem(info)
}

// Resolve runs ResolveSystem over the engine's own history from its most
// recent entry.
func (e *Engine) Resolve(designation string, address *int64) (Match, error) {
	h := e.History()
	return ResolveSystem(h, len(h)-1, designation, address)
}

// Current returns the system of the most recent arrival.
func (e *Engine) Current() (SystemInfo, bool) {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	if len(e.history) == 0 {
		return SystemInfo{}, false
	}
	return e.history[len(e.history)-1].System, true
}

// History returns a copy of the journey history, oldest first.
func (e *Engine) History() []HistoryEntry {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	return slices.Clone(e.history)
}
