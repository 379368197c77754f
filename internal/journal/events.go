// Package journal defines the typed game journal events consumed by the scan
// tree and decodes them from line-oriented JSON records.
package journal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind is the journal "event" discriminator.
type Kind string

// Event kinds consumed by the scan tree.
const (
	KindScan                Kind = "Scan"
	KindSAASignalsFound     Kind = "SAASignalsFound"
	KindFSSBodySignals      Kind = "FSSBodySignals"
	KindApproachBody        Kind = "ApproachBody"
	KindTouchdown           Kind = "Touchdown"
	KindScanOrganic         Kind = "ScanOrganic"
	KindScanBaryCentre      Kind = "ScanBaryCentre"
	KindCodexEntry          Kind = "CodexEntry"
	KindFSSDiscoveryScan    Kind = "FSSDiscoveryScan"
	KindFSSSignalDiscovered Kind = "FSSSignalDiscovered"
	KindSAAScanComplete     Kind = "SAAScanComplete"
	KindFSDJump             Kind = "FSDJump"
	KindLocation            Kind = "Location"
	KindCarrierJump         Kind = "CarrierJump"
)

// Event is implemented by every typed journal record.
type Event interface {
	EventKind() Kind
	EventTime() time.Time
}

// Header carries the fields common to every journal line.
type Header struct {
	Timestamp time.Time `json:"timestamp"`
	Event     Kind      `json:"event"`
}

// EventKind returns the record discriminator.
func (h Header) EventKind() Kind { return h.Event }

// EventTime returns the record timestamp.
func (h Header) EventTime() time.Time { return h.Timestamp }

// DataSource tags where a scan payload came from.
type DataSource int

// Provenance values. The zero value is the authoritative live journal.
const (
	SourceJournal DataSource = iota
	SourceEDSM
	SourceSpansh
)

var sourceNames = map[DataSource]string{
	SourceJournal: "journal",
	SourceEDSM:    "edsm",
	SourceSpansh:  "spansh",
}

// String returns the lower-case source name.
func (s DataSource) String() string {
	if n, ok := sourceNames[s]; ok {
		return n
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// IsWeb reports whether the payload came from a bulk web catalogue.
func (s DataSource) IsWeb() bool { return s == SourceEDSM || s == SourceSpansh }

// MarshalText implements encoding.TextMarshaler.
func (s DataSource) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DataSource) UnmarshalText(b []byte) error {
	src, err := ParseDataSource(string(b))
	if err != nil {
		return err
	}
	*s = src
	return nil
}

// ParseDataSource maps a source name to its DataSource. Empty means journal.
func ParseDataSource(name string) (DataSource, error) {
	if name == "" {
		return SourceJournal, nil
	}
	for k, v := range sourceNames {
		if strings.EqualFold(v, name) {
			return k, nil
		}
	}
	return SourceJournal, fmt.Errorf("journal: unknown data source %q", name)
}

// Parent ancestor types as reported in a scan's Parents list.
const (
	ParentNull   = "Null"
	ParentStar   = "Star"
	ParentPlanet = "Planet"
	ParentRing   = "Ring"
)

// Parent is one entry of a scan's ancestor chain. The journal encodes it as
// a single-key object such as {"Null":1}.
type Parent struct {
	Type string
	ID   int
}

// IsBarycentre reports whether the ancestor is a barycentre ("Null").
func (p Parent) IsBarycentre() bool { return p.Type == ParentNull }

// MarshalJSON implements json.Marshaler.
func (p Parent) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int{p.Type: p.ID})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Parent) UnmarshalJSON(b []byte) error {
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("journal: parent entry must have exactly one key, got %d", len(m))
	}
	for k, v := range m {
		p.Type, p.ID = k, v
	}
	return nil
}

// Ring is one entry of a scan's Rings list. Stars report asteroid belts here.
type Ring struct {
	Name      string  `json:"Name"`
	RingClass string  `json:"RingClass,omitempty"`
	MassMT    float64 `json:"MassMT,omitempty"`
	InnerRad  float64 `json:"InnerRad,omitempty"`
	OuterRad  float64 `json:"OuterRad,omitempty"`
}

// IsBelt reports whether the ring entry is an asteroid belt.
func (r Ring) IsBelt() bool { return strings.HasSuffix(strings.ToLower(r.Name), " belt") }

// Signal is a surface signal count (biological, geological, ...).
type Signal struct {
	Type          string `json:"Type"`
	TypeLocalised string `json:"Type_Localised,omitempty"`
	Count         int    `json:"Count"`
}

// Genus names a biological genus detected on a body.
type Genus struct {
	Genus          string `json:"Genus"`
	GenusLocalised string `json:"Genus_Localised,omitempty"`
}

// Organic is a biological sample record attached to a body.
type Organic struct {
	ScanType string    `json:"ScanType"`
	Genus    string    `json:"Genus"`
	Species  string    `json:"Species"`
	Variant  string    `json:"Variant,omitempty"`
	Time     time.Time `json:"Time"`
}

// SurfaceFeature records an approach or touchdown on a body.
type SurfaceFeature struct {
	Kind      Kind      `json:"Kind"`
	Name      string    `json:"Name,omitempty"`
	Latitude  *float64  `json:"Latitude,omitempty"`
	Longitude *float64  `json:"Longitude,omitempty"`
	Time      time.Time `json:"Time"`
}

// Scan is the canonical body scan payload.
type Scan struct {
	Header
	StarSystem            string     `json:"StarSystem,omitempty"`
	SystemAddress         *int64     `json:"SystemAddress,omitempty"`
	ScanType              string     `json:"ScanType,omitempty"`
	BodyName              string     `json:"BodyName"`
	BodyID                *int       `json:"BodyID,omitempty"`
	BodyDesignation       string     `json:"BodyDesignation,omitempty"`
	Parents               []Parent   `json:"Parents,omitempty"`
	DistanceFromArrivalLS float64    `json:"DistanceFromArrivalLS"`
	StarType              string     `json:"StarType,omitempty"`
	Subclass              *int       `json:"Subclass,omitempty"`
	StellarMass           *float64   `json:"StellarMass,omitempty"`
	PlanetClass           string     `json:"PlanetClass,omitempty"`
	TerraformState        string     `json:"TerraformState,omitempty"`
	MassEM                *float64   `json:"MassEM,omitempty"`
	Landable              bool       `json:"Landable,omitempty"`
	Rings                 []Ring     `json:"Rings,omitempty"`
	WasDiscovered         bool       `json:"WasDiscovered,omitempty"`
	WasMapped             bool       `json:"WasMapped,omitempty"`
	Source                DataSource `json:"Source,omitempty"`

	// Collateral mirrored from the owning node after a merge.
	Signals           []Signal         `json:"-"`
	Genuses           []Genus          `json:"-"`
	Organics          []Organic        `json:"-"`
	SurfaceFeatures   []SurfaceFeature `json:"-"`
	Mapped            bool             `json:"-"`
	EfficientlyMapped bool             `json:"-"`
}

// ScanTypeBasic is the placeholder classification that any journal scan
// supersedes.
const ScanTypeBasic = "Basic"

// IsStar reports whether the scan describes a star.
func (s *Scan) IsStar() bool { return s.StarType != "" }

// IsBeltCluster reports whether the scan describes a belt cluster.
func (s *Scan) IsBeltCluster() bool {
	return s.StarType == "" && s.PlanetClass == "" && strings.Contains(strings.ToLower(s.BodyName), "belt cluster")
}

// Designation returns the structural designation, preferring the explicit
// BodyDesignation of renamed bodies.
func (s *Scan) Designation() string {
	if s.BodyDesignation != "" {
		return s.BodyDesignation
	}
	return s.BodyName
}

// SAASignalsFound lists the signals found by surface mapping.
type SAASignalsFound struct {
	Header
	SystemAddress *int64   `json:"SystemAddress,omitempty"`
	BodyName      string   `json:"BodyName"`
	BodyID        *int     `json:"BodyID,omitempty"`
	Signals       []Signal `json:"Signals"`
	Genuses       []Genus  `json:"Genuses,omitempty"`
}

// FSSBodySignals lists the signals detected from the full spectrum scanner.
type FSSBodySignals struct {
	Header
	SystemAddress *int64   `json:"SystemAddress,omitempty"`
	BodyName      string   `json:"BodyName"`
	BodyID        *int     `json:"BodyID,omitempty"`
	Signals       []Signal `json:"Signals"`
}

// ApproachBody is written when the ship enters orbital cruise of a body.
type ApproachBody struct {
	Header
	StarSystem    string `json:"StarSystem"`
	SystemAddress *int64 `json:"SystemAddress,omitempty"`
	Body          string `json:"Body"`
	BodyID        *int   `json:"BodyID,omitempty"`
}

// Touchdown is written when the ship lands on a body.
type Touchdown struct {
	Header
	StarSystem         string   `json:"StarSystem"`
	SystemAddress      *int64   `json:"SystemAddress,omitempty"`
	Body               string   `json:"Body"`
	BodyID             *int     `json:"BodyID,omitempty"`
	Latitude           *float64 `json:"Latitude,omitempty"`
	Longitude          *float64 `json:"Longitude,omitempty"`
	NearestDestination string   `json:"NearestDestination,omitempty"`
}

// ScanOrganic is a biological sample taken on a body.
type ScanOrganic struct {
	Header
	ScanType      string `json:"ScanType"`
	Genus         string `json:"Genus"`
	Species       string `json:"Species"`
	Variant       string `json:"Variant,omitempty"`
	SystemAddress int64  `json:"SystemAddress"`
	Body          int    `json:"Body"`
}

// ScanBaryCentre carries the computed orbit of a barycentre.
type ScanBaryCentre struct {
	Header
	StarSystem         string  `json:"StarSystem"`
	SystemAddress      int64   `json:"SystemAddress"`
	BodyID             int     `json:"BodyID"`
	SemiMajorAxis      float64 `json:"SemiMajorAxis"`
	Eccentricity       float64 `json:"Eccentricity"`
	OrbitalInclination float64 `json:"OrbitalInclination"`
	Periapsis          float64 `json:"Periapsis"`
	OrbitalPeriod      float64 `json:"OrbitalPeriod"`
	AscendingNode      float64 `json:"AscendingNode"`
	MeanAnomaly        float64 `json:"MeanAnomaly"`
}

// CodexEntry is a discovery logged to the codex.
type CodexEntry struct {
	Header
	EntryID       int64  `json:"EntryID"`
	Name          string `json:"Name"`
	Category      string `json:"Category,omitempty"`
	SubCategory   string `json:"SubCategory,omitempty"`
	System        string `json:"System"`
	SystemAddress *int64 `json:"SystemAddress,omitempty"`
	BodyID        *int   `json:"BodyID,omitempty"`
	IsNewEntry    bool   `json:"IsNewEntry,omitempty"`
}

// FSSDiscoveryScan is the system-wide honk summary.
type FSSDiscoveryScan struct {
	Header
	SystemName    string  `json:"SystemName"`
	SystemAddress *int64  `json:"SystemAddress,omitempty"`
	BodyCount     int     `json:"BodyCount"`
	NonBodyCount  int     `json:"NonBodyCount"`
	Progress      float64 `json:"Progress"`
}

// FSSSignalDiscovered is a non-body signal source found in a system.
type FSSSignalDiscovered struct {
	Header
	SystemAddress *int64 `json:"SystemAddress,omitempty"`
	SignalName    string `json:"SignalName"`
	SignalType    string `json:"SignalType,omitempty"`
	IsStation     bool   `json:"IsStation,omitempty"`
}

// SAAScanComplete is written when surface mapping of a body finishes.
type SAAScanComplete struct {
	Header
	SystemAddress    *int64 `json:"SystemAddress,omitempty"`
	BodyName         string `json:"BodyName"`
	BodyID           *int   `json:"BodyID,omitempty"`
	ProbesUsed       int    `json:"ProbesUsed"`
	EfficiencyTarget int    `json:"EfficiencyTarget"`
}

// Efficient reports whether the mapping met its probe efficiency target.
func (s *SAAScanComplete) Efficient() bool { return s.ProbesUsed <= s.EfficiencyTarget }

// Journey is an arrival in a system: FSDJump, Location or CarrierJump.
type Journey struct {
	Header
	StarSystem    string    `json:"StarSystem"`
	SystemAddress *int64    `json:"SystemAddress,omitempty"`
	StarPos       []float64 `json:"StarPos,omitempty"`
}
