package scantree

import (
	"errors"
	"testing"
)

func TestResolveSystem(t *testing.T) {
	history := []HistoryEntry{
		{System: system("Sol", 1)},
		{System: system("Alpha Centauri", 2), RenameTarget: "Hutton Reach"},
		{System: system("Achenar", 3)},
	}

	tests := []struct {
		name        string
		from        int
		designation string
		address     *int64
		want        string
		wantErr     error
	}{
		{"address wins over name", 2, "Sol 3", ptr(int64(3)), "Achenar", nil},
		{"name match walking back", 2, "Alpha Centauri A 1", nil, "Alpha Centauri", nil},
		{"search starts at from", 0, "Achenar 2", nil, "Sol", nil},
		{"falls back to earliest", 2, "Colonia 4", nil, "Sol", nil},
		{"rename collision", 2, "Hutton Reach 1", nil, "", ErrRenameCollision},
		{"from beyond the end is clamped", 99, "Achenar 1", nil, "Achenar", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ResolveSystem(history, tt.from, tt.designation, tt.address)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && m.System.Name != tt.want {
				t.Errorf("system = %q, want %q", m.System.Name, tt.want)
			}
		})
	}

	if _, err := ResolveSystem(nil, 0, "Sol 1", nil); !errors.Is(err, ErrNoSystem) {
		t.Errorf("empty history err = %v", err)
	}
}

func TestEngineDefersScanWithoutHistory(t *testing.T) {
	e := New()
	out, err := e.Process(body("Sol 1", 1), SystemInfo{})
	if out != Deferred || err != nil {
		t.Fatalf("Process = %v, %v; want deferred", out, err)
	}
	if _, ok := e.Current(); ok {
		t.Error("current system without history")
	}
}
