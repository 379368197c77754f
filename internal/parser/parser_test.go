package parser

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_Paths(t *testing.T) {
	tests := []struct {
		name        string
		designation string
		system      string
		want        []string
		bary        bool
		beltCluster bool
		ring        bool
	}{
		{"primary star", "Sol", "Sol", []string{"Main Star"}, false, false, false},
		{"planet of main star", "Sol 4", "Sol", []string{"Main Star", "4"}, false, false, false},
		{"moon", "Sol 5 a", "Sol", []string{"Main Star", "5", "a"}, false, false, false},
		{"belt cluster", "HIP 23759 A Belt Cluster 4", "HIP 23759", []string{"Main Star", "A belt", "cluster 4"}, false, true, false},
		{"belt cluster of secondary", "HIP 23759 B A Belt Cluster 2", "HIP 23759", []string{"B", "A belt", "cluster 2"}, false, true, false},
		{"belt cluster of barycentre", "HIP 23759 AB A Belt Cluster 1", "HIP 23759", []string{"AB", "A belt", "cluster 1"}, true, true, false},
		{"ring", "Sol 6 A Ring", "Sol", []string{"Main Star", "6", "A ring"}, false, false, true},
		{"secondary star", "Sol B", "Sol", []string{"B"}, false, false, false},
		{"planet of secondary", "Sol B 2", "Sol", []string{"B", "2"}, false, false, false},
		{"barycentre designator", "Sol AB 1", "Sol", []string{"AB", "1"}, true, false, false},
		{"case insensitive prefix", "sol 3", "Sol", []string{"Main Star", "3"}, false, false, false},
		{"unrelated catalog name", "Earth", "Sol", []string{"Earth"}, false, false, false},
		{"prefix without separator", "Solitude 1", "Sol", []string{"Solitude 1"}, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DefaultRules().Parse(tt.designation, tt.system, "")
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !reflect.DeepEqual(res.Elements, tt.want) {
				t.Errorf("elements = %q, want %q", res.Elements, tt.want)
			}
			if res.TopIsBarycentre != tt.bary {
				t.Errorf("barycentre = %v, want %v", res.TopIsBarycentre, tt.bary)
			}
			if res.IsBeltCluster != tt.beltCluster {
				t.Errorf("belt cluster = %v, want %v", res.IsBeltCluster, tt.beltCluster)
			}
			if res.IsRing != tt.ring {
				t.Errorf("ring = %v, want %v", res.IsRing, tt.ring)
			}
		})
	}
}

func TestParse_PrimaryDesignator(t *testing.T) {
	res, err := DefaultRules().Parse("Sys 3 a", "Sys", "A")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := []string{"A", "3", "a"}; !reflect.DeepEqual(res.Elements, want) {
		t.Errorf("elements = %q, want %q", res.Elements, want)
	}

	res, _ = DefaultRules().Parse("Sys A Belt Cluster 1", "Sys", "A")
	if want := []string{"A", "A belt", "cluster 1"}; !reflect.DeepEqual(res.Elements, want) {
		t.Errorf("elements = %q, want %q", res.Elements, want)
	}
}

func TestParse_RejectsTooDeep(t *testing.T) {
	_, err := DefaultRules().Parse("Sys A 1 a b c d", "Sys", "")
	if !errors.Is(err, ErrUnparseable) {
		t.Errorf("err = %v, want ErrUnparseable", err)
	}

	_, err = DefaultRules().Parse("", "Sys", "")
	if !errors.Is(err, ErrUnparseable) {
		t.Errorf("empty designation err = %v, want ErrUnparseable", err)
	}
}

func TestParse_ConfigurableThresholds(t *testing.T) {
	rules := Rules{MaxElements: 7, BarycentreDesignatorMinLen: 3}
	res, err := rules.Parse("Sys A 1 a b c d", "Sys", "")
	if err != nil {
		t.Fatalf("Parse with raised limit: %v", err)
	}
	if len(res.Elements) != 6 {
		t.Errorf("len = %d, want 6", len(res.Elements))
	}

	res, _ = rules.Parse("Sys AB 1", "Sys", "")
	if res.TopIsBarycentre {
		t.Error("AB should be a star when the barycentre threshold is 3")
	}
	res, _ = rules.Parse("Sys ABC 1", "Sys", "")
	if !res.TopIsBarycentre {
		t.Error("ABC should be a barycentre when the threshold is 3")
	}
}

func TestParseBody_CustomName(t *testing.T) {
	res, err := DefaultRules().ParseBody("Hutton Orbital", "Alpha Centauri", "")
	if err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if res.CustomName != "Hutton Orbital" {
		t.Errorf("custom name = %q", res.CustomName)
	}

	res, _ = DefaultRules().ParseBody("Sol 3", "Sol", "")
	if res.CustomName != "" {
		t.Errorf("structural body got custom name %q", res.CustomName)
	}
}

func TestRest(t *testing.T) {
	rest, ok := Rest("HIP 23759 A 1", "hip 23759")
	if !ok || rest != "A 1" {
		t.Errorf("Rest = %q, %v", rest, ok)
	}
	if _, ok := Rest("HIP 2375", "HIP 23759"); ok {
		t.Error("shorter designation must not be related")
	}
	if !Related("Sol", "Sol") {
		t.Error("identical name must be related")
	}
}
