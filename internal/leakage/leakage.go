// Package leakage sums emissions displaced outside the project boundary.
package leakage

import "github.com/railzwaylabs/biochar/internal/methodology"

// Assessment is a point-in-time leakage estimate, all values in tCO2e.
type Assessment struct {
	EcologicalFacility   float64
	EcologicalSourcing   float64
	MarketAFOLU          float64
	MarketEnergyMaterial float64
	ILUC                 float64
}

type Result struct {
	EcologicalTCO2e float64              `json:"ecological_tco2e"`
	MarketTCO2e     float64              `json:"market_tco2e"`
	TotalTCO2e      float64              `json:"total_tco2e"`
	Defaulted       bool                 `json:"defaulted"`
	Caveats         []methodology.Caveat `json:"caveats,omitempty"`
}

// Aggregate splits an assessment into ecological and market leakage. A nil assessment yields zero
// leakage flagged as defaulted.
func Aggregate(a *Assessment) Result {
	if a == nil {
		return Result{
			Defaulted: true,
			Caveats: []methodology.Caveat{{
				Code:    methodology.CaveatMissingLeakageAssessment,
				Message: "no leakage assessment on record, leakage assumed zero",
			}},
		}
	}

	ecological := a.EcologicalFacility + a.EcologicalSourcing
	market := a.MarketAFOLU + a.MarketEnergyMaterial + a.ILUC
	return Result{
		EcologicalTCO2e: ecological,
		MarketTCO2e:     market,
		TotalTCO2e:      ecological + market,
	}
}
