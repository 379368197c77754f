package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupported is returned by Decode for well-formed records whose event
// kind the scan tree does not consume.
var ErrUnsupported = errors.New("journal: unsupported event")

// Decode parses one journal line into its typed event.
func Decode(line []byte) (Event, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("journal: empty record")
	}

	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("journal: decode header: %w", err)
	}

	var ev Event
	switch h.Event {
	case KindScan:
		ev = &Scan{}
	case KindSAASignalsFound:
		ev = &SAASignalsFound{}
	case KindFSSBodySignals:
		ev = &FSSBodySignals{}
	case KindApproachBody:
		ev = &ApproachBody{}
	case KindTouchdown:
		ev = &Touchdown{}
	case KindScanOrganic:
		ev = &ScanOrganic{}
	case KindScanBaryCentre:
		ev = &ScanBaryCentre{}
	case KindCodexEntry:
		ev = &CodexEntry{}
	case KindFSSDiscoveryScan:
		ev = &FSSDiscoveryScan{}
	case KindFSSSignalDiscovered:
		ev = &FSSSignalDiscovered{}
	case KindSAAScanComplete:
		ev = &SAAScanComplete{}
	case KindFSDJump, KindLocation, KindCarrierJump:
		ev = &Journey{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, h.Event)
	}

	if err := json.Unmarshal(line, ev); err != nil {
		return nil, fmt.Errorf("journal: decode %s: %w", h.Event, err)
	}
	return ev, nil
}

// Encode serialises an event back to its single-line JSON record.
func Encode(ev Event) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("journal: encode %s: %w", ev.EventKind(), err)
	}
	return b, nil
}
