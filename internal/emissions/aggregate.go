// Package emissions sums project-lifecycle emissions and the dry-mass weighted biochar quality of
// a monitoring period.
package emissions

import (
	"errors"
	"fmt"
	"math"

	"github.com/railzwaylabs/biochar/internal/methodology"
)

// ErrZeroDryMass means the period has no biochar to credit. Callers must stop before calculating.
var ErrZeroDryMass = errors.New("zero_dry_mass")

type Allocation struct {
	DistanceKm       float64
	WeightUsedTonnes float64
}

type Batch struct {
	ID                   int64
	OutputTonnes         float64
	DryMassTonnes        *float64
	OrganicCarbonPercent *float64
	HydrogenPercent      *float64
	StackCH4Kg           float64
	StackN2OKg           float64
	// Mass of this batch sequestered on or before the period end.
	SequesteredTonnes float64
	Allocations       []Allocation
}

type Energy struct {
	ID         int64
	EnergyType string
	Quantity   float64
}

type Sequestration struct {
	MassTonnes          float64
	TransportDistanceKm *float64
}

// Embodied is facility infrastructure emissions amortized over its lifetime.
type Embodied struct {
	TotalTCO2e    float64
	LifetimeYears float64
	PeriodDays    float64
}

type Input struct {
	Batches       []Batch
	Energy        []Energy
	Sequestration []Sequestration
	Embodied      Embodied
}

// Biomass is the feedstock supply chain estimate split by lifecycle stage, in kg CO2e.
type Biomass struct {
	CultivationKg   float64 `json:"cultivation_kg"`
	CollectionKg    float64 `json:"collection_kg"`
	TransportKg     float64 `json:"transport_kg"`
	PreprocessingKg float64 `json:"preprocessing_kg"`
	TotalKg         float64 `json:"total_kg"`
}

// Aggregate is the period total. Emission components are kg CO2e except stack gases which are kg of gas.
type Aggregate struct {
	DryMassTonnes              float64 `json:"dry_mass_tonnes"`
	UnsequesteredDryMassTonnes float64 `json:"unsequestered_dry_mass_tonnes"`
	OrganicCarbonPercent       float64 `json:"organic_carbon_percent"`
	HydrogenPercent            float64 `json:"hydrogen_percent"`

	Biomass            Biomass `json:"biomass"`
	ProductionEnergyKg float64 `json:"production_energy_kg"`
	StackCH4Kg         float64 `json:"stack_ch4_kg"`
	StackN2OKg         float64 `json:"stack_n2o_kg"`
	EmbodiedKg         float64 `json:"embodied_kg"`
	EndUseKg           float64 `json:"end_use_kg"`

	BatchCount int                  `json:"batch_count"`
	Caveats    []methodology.Caveat `json:"caveats"`
}

// Run aggregates a period's batches, energy usage and sequestration events.
func Run(params methodology.Params, in Input) (Aggregate, error) {
	var out Aggregate
	var corgMass, hydrogenMass, transportKg float64

	for _, b := range in.Batches {
		dry := b.OutputTonnes
		if b.DryMassTonnes != nil {
			dry = *b.DryMassTonnes
		}
		if dry < 0 {
			return Aggregate{}, fmt.Errorf("batch %d: negative dry mass %v", b.ID, dry)
		}

		corg, hydrogen := params.DefaultOrganicCarbonPercent, params.DefaultHydrogenPercent
		if b.OrganicCarbonPercent != nil && b.HydrogenPercent != nil {
			corg, hydrogen = *b.OrganicCarbonPercent, *b.HydrogenPercent
		} else {
			out.Caveats = append(out.Caveats, methodology.Caveat{
				Code:    methodology.CaveatDefaultQualityValues,
				Field:   fmt.Sprintf("batches[%d]", b.ID),
				Message: fmt.Sprintf("no lab test for batch %d, using default quality values (%.1f%% Corg, %.1f%% H)", b.ID, corg, hydrogen),
			})
		}

		out.DryMassTonnes += dry
		corgMass += dry * corg
		hydrogenMass += dry * hydrogen
		out.UnsequesteredDryMassTonnes += math.Max(0, dry-b.SequesteredTonnes)
		out.StackCH4Kg += b.StackCH4Kg
		out.StackN2OKg += b.StackN2OKg

		for _, a := range b.Allocations {
			transportKg += a.DistanceKm * a.WeightUsedTonnes * params.TransportFactor
		}
		out.BatchCount++
	}

	if out.DryMassTonnes <= 0 {
		return Aggregate{}, ErrZeroDryMass
	}
	out.OrganicCarbonPercent = corgMass / out.DryMassTonnes
	out.HydrogenPercent = hydrogenMass / out.DryMassTonnes

	shares := params.BiomassShares
	out.Biomass = Biomass{
		CultivationKg:   transportKg * shares.Cultivation,
		CollectionKg:    transportKg * shares.Collection,
		TransportKg:     transportKg * shares.Transport,
		PreprocessingKg: transportKg * shares.Preprocessing,
		TotalKg:         transportKg,
	}

	for _, e := range in.Energy {
		factor, known := params.EnergyFactor(e.EnergyType)
		if !known {
			out.Caveats = append(out.Caveats, methodology.Caveat{
				Code:    methodology.CaveatUnknownEnergyType,
				Field:   fmt.Sprintf("energy_usages[%d]", e.ID),
				Message: fmt.Sprintf("unknown energy type %q, using default factor %.2f", e.EnergyType, factor),
			})
		}
		out.ProductionEnergyKg += e.Quantity * factor
	}

	for _, s := range in.Sequestration {
		if s.TransportDistanceKm == nil {
			continue
		}
		out.EndUseKg += *s.TransportDistanceKm * s.MassTonnes * params.TransportFactor
	}

	out.EmbodiedKg = amortize(in.Embodied, &out.Caveats)

	if out.UnsequesteredDryMassTonnes > 0 {
		out.Caveats = append(out.Caveats, methodology.Caveat{
			Code:    methodology.CaveatUnsequesteredBiochar,
			Message: fmt.Sprintf("%.3f t of biochar has no sequestration record by period end", out.UnsequesteredDryMassTonnes),
		})
	}
	return out, nil
}

func amortize(e Embodied, caveats *[]methodology.Caveat) float64 {
	if e.TotalTCO2e <= 0 {
		return 0
	}
	if e.LifetimeYears <= 0 {
		*caveats = append(*caveats, methodology.Caveat{
			Code:    methodology.CaveatMissingInfrastructureLife,
			Field:   "infrastructure_lifetime_years",
			Message: "facility has embodied emissions but no infrastructure lifetime, embodied emissions not amortized",
		})
		return 0
	}
	return e.TotalTCO2e * 1000 * (e.PeriodDays / 365.25) / e.LifetimeYears
}
