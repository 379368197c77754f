package journal

import (
	"errors"
	"testing"
)

func TestDecode_Scan(t *testing.T) {
	line := []byte(`{"timestamp":"3310-05-01T12:00:00Z","event":"Scan","ScanType":"Detailed","BodyName":"Sol 4","BodyID":7,"StarSystem":"Sol","SystemAddress":10477373803,"Parents":[{"Null":1},{"Star":0}],"DistanceFromArrivalLS":700.5,"PlanetClass":"Rocky body","MassEM":0.1}`)
	ev, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	sc, ok := ev.(*Scan)
	if !ok {
		t.Fatalf("got %T, want *Scan", ev)
	}
	if sc.BodyName != "Sol 4" || sc.BodyID == nil || *sc.BodyID != 7 {
		t.Errorf("body = %q id = %v", sc.BodyName, sc.BodyID)
	}
	if len(sc.Parents) != 2 || !sc.Parents[0].IsBarycentre() || sc.Parents[1].Type != ParentStar {
		t.Errorf("parents = %+v", sc.Parents)
	}
	if sc.Source != SourceJournal {
		t.Errorf("source = %v, want journal", sc.Source)
	}
	if sc.EventTime().Year() != 3310 {
		t.Errorf("timestamp = %v", sc.EventTime())
	}
}

func TestDecode_Journey(t *testing.T) {
	for _, kind := range []string{"FSDJump", "Location", "CarrierJump"} {
		ev, err := Decode([]byte(`{"timestamp":"3310-05-01T12:00:00Z","event":"` + kind + `","StarSystem":"Sol","SystemAddress":1,"StarPos":[0,0,0]}`))
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		j, ok := ev.(*Journey)
		if !ok || j.StarSystem != "Sol" || len(j.StarPos) != 3 {
			t.Errorf("%s decoded as %+v", kind, ev)
		}
	}
}

func TestDecode_Unsupported(t *testing.T) {
	_, err := Decode([]byte(`{"timestamp":"3310-05-01T12:00:00Z","event":"Music","MusicTrack":"Exploration"}`))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode([]byte(`{"event":`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := Decode([]byte("   ")); err == nil {
		t.Error("expected error for empty record")
	}
	if _, err := Decode([]byte(`{"event":"Scan","BodyName":"x","Parents":[{"Null":1,"Star":2}]}`)); err == nil {
		t.Error("expected error for multi-key parent")
	}
}

func TestEncode_RoundTripKeepsSource(t *testing.T) {
	id := 3
	sc := &Scan{Header: Header{Event: KindScan}, BodyName: "Sol 3", BodyID: &id, Source: SourceSpansh,
		Parents: []Parent{{Type: ParentStar, ID: 0}}}
	b, err := Encode(sc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	ev, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := ev.(*Scan)
	if got.Source != SourceSpansh {
		t.Errorf("source = %v, want spansh", got.Source)
	}
	if len(got.Parents) != 1 || got.Parents[0].Type != ParentStar {
		t.Errorf("parents = %+v", got.Parents)
	}
}

func TestParseDataSource(t *testing.T) {
	tests := []struct {
		in      string
		want    DataSource
		wantErr bool
	}{
		{"", SourceJournal, false},
		{"EDSM", SourceEDSM, false},
		{"spansh", SourceSpansh, false},
		{"inara", SourceJournal, true},
	}
	for _, tt := range tests {
		got, err := ParseDataSource(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDataSource(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseDataSource(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if !SourceEDSM.IsWeb() || SourceJournal.IsWeb() {
		t.Error("IsWeb mismatch")
	}
}
