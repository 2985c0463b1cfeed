package emissions

import (
	"testing"

	"github.com/railzwaylabs/biochar/internal/methodology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func caveatCodes(caveats []methodology.Caveat) []string {
	codes := make([]string, 0, len(caveats))
	for _, c := range caveats {
		codes = append(codes, c.Code)
	}
	return codes
}

func TestRunWeightsQualityByDryMass(t *testing.T) {
	params := methodology.Default()

	agg, err := Run(params, Input{
		Batches: []Batch{
			{ID: 1, OutputTonnes: 100, DryMassTonnes: ptr(75), OrganicCarbonPercent: ptr(80), HydrogenPercent: ptr(2), SequesteredTonnes: 75},
			{ID: 2, OutputTonnes: 25, OrganicCarbonPercent: ptr(60), HydrogenPercent: ptr(3), SequesteredTonnes: 25},
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 100, agg.DryMassTonnes, 1e-9)
	assert.InDelta(t, (75*80+25*60)/100.0, agg.OrganicCarbonPercent, 1e-9)
	assert.InDelta(t, (75*2+25*3)/100.0, agg.HydrogenPercent, 1e-9)
	assert.Zero(t, agg.UnsequesteredDryMassTonnes)
	assert.Empty(t, agg.Caveats)
	assert.Equal(t, 2, agg.BatchCount)
}

func TestRunDefaultsMissingQualityWithCaveat(t *testing.T) {
	params := methodology.Default()

	agg, err := Run(params, Input{
		Batches: []Batch{{ID: 7, OutputTonnes: 10, SequesteredTonnes: 10}},
	})
	require.NoError(t, err)

	assert.Equal(t, params.DefaultOrganicCarbonPercent, agg.OrganicCarbonPercent)
	assert.Equal(t, params.DefaultHydrogenPercent, agg.HydrogenPercent)
	assert.Contains(t, caveatCodes(agg.Caveats), methodology.CaveatDefaultQualityValues)
}

func TestRunZeroDryMass(t *testing.T) {
	_, err := Run(methodology.Default(), Input{})
	assert.ErrorIs(t, err, ErrZeroDryMass)

	_, err = Run(methodology.Default(), Input{
		Batches: []Batch{{ID: 1, OutputTonnes: 12, DryMassTonnes: ptr(0)}},
	})
	assert.ErrorIs(t, err, ErrZeroDryMass)
}

func TestRunTransportSplitsIntoShares(t *testing.T) {
	params := methodology.Default()

	agg, err := Run(params, Input{
		Batches: []Batch{{
			ID:                1,
			OutputTonnes:      10,
			SequesteredTonnes: 10,
			Allocations: []Allocation{
				{DistanceKm: 50, WeightUsedTonnes: 20},
				{DistanceKm: 10, WeightUsedTonnes: 5},
			},
		}},
	})
	require.NoError(t, err)

	total := (50*20 + 10*5) * params.TransportFactor
	assert.InDelta(t, total, agg.Biomass.TotalKg, 1e-9)
	assert.InDelta(t, total*params.BiomassShares.Transport, agg.Biomass.TransportKg, 1e-9)
	sum := agg.Biomass.CultivationKg + agg.Biomass.CollectionKg + agg.Biomass.TransportKg + agg.Biomass.PreprocessingKg
	assert.InDelta(t, total, sum, 1e-9)
}

func TestRunEnergyFactors(t *testing.T) {
	params := methodology.Default()

	agg, err := Run(params, Input{
		Batches: []Batch{{ID: 1, OutputTonnes: 10, SequesteredTonnes: 10}},
		Energy: []Energy{
			{ID: 1, EnergyType: "electricity", Quantity: 1000},
			{ID: 2, EnergyType: "diesel", Quantity: 100},
			{ID: 3, EnergyType: "biogas", Quantity: 10},
		},
	})
	require.NoError(t, err)

	want := 1000*params.EnergyFactors.Electricity + 100*params.EnergyFactors.Diesel + 10*params.EnergyFactors.Default
	assert.InDelta(t, want, agg.ProductionEnergyKg, 1e-9)
	assert.Contains(t, caveatCodes(agg.Caveats), methodology.CaveatUnknownEnergyType)
}

func TestRunStackEndUseAndEmbodied(t *testing.T) {
	params := methodology.Default()

	agg, err := Run(params, Input{
		Batches: []Batch{
			{ID: 1, OutputTonnes: 10, StackCH4Kg: 3, StackN2OKg: 0.5, SequesteredTonnes: 4},
			{ID: 2, OutputTonnes: 10, StackCH4Kg: 1, SequesteredTonnes: 10},
		},
		Sequestration: []Sequestration{
			{MassTonnes: 10, TransportDistanceKm: ptr(30)},
			{MassTonnes: 4},
		},
		Embodied: Embodied{TotalTCO2e: 500, LifetimeYears: 20, PeriodDays: 365.25},
	})
	require.NoError(t, err)

	assert.InDelta(t, 4, agg.StackCH4Kg, 1e-9)
	assert.InDelta(t, 0.5, agg.StackN2OKg, 1e-9)
	assert.InDelta(t, 30*10*params.TransportFactor, agg.EndUseKg, 1e-9)
	assert.InDelta(t, 500*1000/20.0, agg.EmbodiedKg, 1e-9)
	assert.InDelta(t, 6, agg.UnsequesteredDryMassTonnes, 1e-9)
	assert.Contains(t, caveatCodes(agg.Caveats), methodology.CaveatUnsequesteredBiochar)
}

func TestRunEmbodiedWithoutLifetime(t *testing.T) {
	agg, err := Run(methodology.Default(), Input{
		Batches:  []Batch{{ID: 1, OutputTonnes: 10, SequesteredTonnes: 10}},
		Embodied: Embodied{TotalTCO2e: 500, PeriodDays: 90},
	})
	require.NoError(t, err)
	assert.Zero(t, agg.EmbodiedKg)
	assert.Contains(t, caveatCodes(agg.Caveats), methodology.CaveatMissingInfrastructureLife)
}
