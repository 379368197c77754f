package scantree

import (
	"math"
	"strings"

	"github.com/starford/orrery/internal/journal"
)

const (
	starBase        = 1200.0
	compactStarBase = 22628.0
	whiteDwarfBase  = 14057.0
	planetMassQ     = 0.56591828
	mappedMultiply  = 3.3333333333
	efficientBonus  = 1.25
	minBodyValue    = 500
)

type planetRate struct{ base, terraform float64 }

var planetRates = map[string]planetRate{
	"metal rich body":         {21790, 65631},
	"ammonia world":           {96932, 0},
	"earthlike body":          {64831 + 116295, 0},
	"water world":             {64831, 116295},
	"high metal content body": {9654, 100677},
}

var defaultPlanetRate = planetRate{300, 93328}

// EstimateValue returns the estimated cartographic value of a scan in
// credits. Belt clusters and rings are worth nothing on their own.
func EstimateValue(sc *journal.Scan) int64 {
	if sc == nil {
		return 0
	}
	if sc.IsStar() {
		return starValue(sc)
	}
	if sc.PlanetClass == "" {
		return 0
	}
	return planetValue(sc)
}

func starValue(sc *journal.Scan) int64 {
	k := starBase
	switch t := sc.StarType; {
	case t == "N" || t == "H" || t == "SupermassiveBlackHole":
		k = compactStarBase
	case strings.HasPrefix(t, "D"):
		k = whiteDwarfBase
	}
	mass := 1.0
	if sc.StellarMass != nil {
		mass = *sc.StellarMass
	}
	return int64(math.Round(k + mass*k/66.25))
}

func planetValue(sc *journal.Scan) int64 {
	rate, ok := planetRates[strings.ToLower(sc.PlanetClass)]
	if !ok {
		rate = defaultPlanetRate
	}
	k := rate.base
	if sc.TerraformState != "" && !strings.EqualFold(sc.TerraformState, "None") {
		k += rate.terraform
	}
	mass := 1.0
	if sc.MassEM != nil && *sc.MassEM > 0 {
		mass = *sc.MassEM
	}
	v := k + k*planetMassQ*math.Pow(mass, 0.2)
	if sc.Mapped {
		v *= mappedMultiply
		if sc.EfficientlyMapped {
			v *= efficientBonus
		}
	}
	return max(int64(math.Round(v)), minBodyValue)
}
