package domain

import (
	"math"
	"testing"

	"github.com/railzwaylabs/biochar/internal/methodology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceInput() Input {
	return Input{
		DryMassTonnes:        1000,
		OrganicCarbonPercent: 80,
		HydrogenPercent:      2,
		SoilTemperatureC:     15,
		Baseline:             methodology.BaselineNewBuild,
	}
}

func TestCalculateReferenceScenario(t *testing.T) {
	params := methodology.Default()

	res, err := Calculate(params, referenceInput())
	require.NoError(t, err)

	hCorg := (2 / 1.008) / (80 / 12.011)
	pf := 1.04 - 0.64*hCorg - 0.0077*15
	want := 1000 * 0.80 * 3.67 * pf

	assert.InDelta(t, hCorg, res.HCorgRatio, 1e-12)
	assert.InDelta(t, pf, res.PersistenceFraction, 1e-12)
	assert.InDelta(t, pf*100, res.PersistenceFractionPercent, 1e-9)
	assert.InDelta(t, want, res.CStoredTCO2e, 1e-9)
	assert.Zero(t, res.CBaselineTCO2e)
	assert.Zero(t, res.CLossTCO2e)
	assert.Zero(t, res.EProjectTCO2e)
	assert.Zero(t, res.ELeakageTCO2e)
	assert.Equal(t, res.CStoredTCO2e, res.NetCORCsTCO2e)
	assert.Equal(t, params.Version, res.MethodologyVersion)
}

func TestCalculateIsDeterministic(t *testing.T) {
	params := methodology.Default()
	in := referenceInput()
	in.UnsequesteredDryMassTonnes = 120
	in.Baseline = methodology.BaselineCharcoalRepurpose
	in.BaselineStorageTCO2e = 40
	in.Emissions = ProjectEmissions{BiomassKg: 1200, ProductionEnergyKg: 3400, EmbodiedKg: 900, EndUseKg: 150, StackCH4Kg: 2, StackN2OKg: 0.1}
	in.Leakage = Leakage{EcologicalTCO2e: 1.2, MarketTCO2e: 0.4}

	first, err := Calculate(params, in)
	require.NoError(t, err)
	second, err := Calculate(params, in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, math.Float64bits(first.NetCORCsTCO2e), math.Float64bits(second.NetCORCsTCO2e))
}

func TestCalculateConservationIdentity(t *testing.T) {
	params := methodology.Default()

	inputs := []Input{
		referenceInput(),
		{
			DryMassTonnes: 250, UnsequesteredDryMassTonnes: 30, OrganicCarbonPercent: 72, HydrogenPercent: 2.8,
			SoilTemperatureC: 22, Baseline: methodology.BaselineRetrofit, BaselineStorageTCO2e: 15,
			Emissions: ProjectEmissions{BiomassKg: 5000, ProductionEnergyKg: 12000, StackCH4Kg: 10, StackN2OKg: 1},
			Leakage:   Leakage{EcologicalTCO2e: 3, MarketTCO2e: 2},
		},
		{
			DryMassTonnes: 12.5, OrganicCarbonPercent: 55, HydrogenPercent: 3.5, SoilTemperatureC: -5,
			Baseline: methodology.BaselineCharcoalRepurpose, BaselineStorageTCO2e: 4,
			Emissions: ProjectEmissions{EmbodiedKg: 750, EndUseKg: 20},
		},
	}

	for _, in := range inputs {
		res, err := Calculate(params, in)
		require.NoError(t, err)
		want := res.CStoredTCO2e - res.CBaselineTCO2e - res.CLossTCO2e - res.EProjectTCO2e - res.ELeakageTCO2e
		assert.InDelta(t, want, res.NetCORCsTCO2e, 1e-9)
	}
}

func TestCalculateMonotonicInDryMass(t *testing.T) {
	params := methodology.Default()
	in := referenceInput()

	prev := -1.0
	for _, mass := range []float64{1, 10, 100, 1000, 5000} {
		in.DryMassTonnes = mass
		res, err := Calculate(params, in)
		require.NoError(t, err)
		assert.Greater(t, res.CStoredTCO2e, prev)
		prev = res.CStoredTCO2e
	}
}

func TestCalculateBaselineScenarios(t *testing.T) {
	params := methodology.Default()
	in := referenceInput()
	in.BaselineStorageTCO2e = 100

	in.Baseline = methodology.BaselineNewBuild
	res, err := Calculate(params, in)
	require.NoError(t, err)
	assert.Zero(t, res.CBaselineTCO2e)

	in.Baseline = methodology.BaselineRetrofit
	res, err = Calculate(params, in)
	require.NoError(t, err)
	assert.InDelta(t, 100, res.CBaselineTCO2e, 1e-12)

	in.Baseline = methodology.BaselineCharcoalRepurpose
	res, err = Calculate(params, in)
	require.NoError(t, err)
	assert.InDelta(t, 100*res.PersistenceFraction, res.CBaselineTCO2e, 1e-12)

	in.Baseline = "greenfield"
	_, err = Calculate(params, in)
	assert.ErrorIs(t, err, ErrUnknownBaseline)
}

func TestCalculateLossFromUnsequesteredMass(t *testing.T) {
	params := methodology.Default()
	in := referenceInput()
	in.UnsequesteredDryMassTonnes = 200

	res, err := Calculate(params, in)
	require.NoError(t, err)
	assert.InDelta(t, 200*0.80*3.67*(1-res.PersistenceFraction), res.CLossTCO2e, 1e-9)
	assert.Less(t, res.NetCORCsTCO2e, res.CStoredTCO2e)
}

func TestCalculateProjectEmissionsUseGWP(t *testing.T) {
	params := methodology.Default()
	in := referenceInput()
	in.Emissions = ProjectEmissions{BiomassKg: 1000, StackCH4Kg: 10, StackN2OKg: 1}

	res, err := Calculate(params, in)
	require.NoError(t, err)
	assert.InDelta(t, (1000+10*params.GWPMethane+params.GWPNitrousOxide)/1000, res.EProjectTCO2e, 1e-12)
}

func TestCalculateZeroDryMass(t *testing.T) {
	in := referenceInput()
	in.DryMassTonnes = 0

	res, err := Calculate(methodology.Default(), in)
	assert.ErrorIs(t, err, ErrZeroDryMass)
	assert.False(t, math.IsNaN(res.NetCORCsTCO2e))
	assert.Zero(t, res.NetCORCsTCO2e)
}

func TestValidateCollectsAllIssues(t *testing.T) {
	params := methodology.Default()
	in := Input{
		DryMassTonnes:        0,
		OrganicCarbonPercent: 120,
		HydrogenPercent:      -1,
		SoilTemperatureC:     60,
		Baseline:             "greenfield",
		Emissions:            ProjectEmissions{ProductionEnergyKg: -5},
	}

	v := Validate(params, in, []methodology.Caveat{{Code: methodology.CaveatDefaultQualityValues}})
	assert.False(t, v.IsValid)

	fields := make([]string, 0, len(v.Errors))
	for _, issue := range v.Errors {
		fields = append(fields, issue.Field)
	}
	assert.ElementsMatch(t, []string{
		"biochar_dry_mass_tonnes",
		"organic_carbon_percent",
		"hydrogen_percent",
		"mean_soil_temperature_c",
		"baseline_scenario",
		"emissions.production_energy_kg",
	}, fields)
	require.Len(t, v.Warnings, 1)
	assert.Equal(t, methodology.CaveatDefaultQualityValues, v.Warnings[0].Code)
}

func TestValidateAcceptsReferenceInput(t *testing.T) {
	v := Validate(methodology.Default(), referenceInput(), nil)
	assert.True(t, v.IsValid)
	assert.Empty(t, v.Warnings)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Validation: Validation{Errors: []Issue{
		{Field: "biochar_dry_mass_tonnes", Code: "non_positive", Message: "dry mass must be greater than zero"},
	}}}
	assert.Contains(t, err.Error(), "biochar_dry_mass_tonnes")
}

func TestResolveSoilTemperature(t *testing.T) {
	params := methodology.Default()
	t10, t20 := 10.0, 20.0

	override := 5.0
	temp, caveat := ResolveSoilTemperature(params, &override, []SoilSample{{MassTonnes: 1, SoilTemperatureC: &t20}})
	assert.Equal(t, 5.0, temp)
	assert.Nil(t, caveat)

	temp, caveat = ResolveSoilTemperature(params, nil, []SoilSample{
		{MassTonnes: 30, SoilTemperatureC: &t10},
		{MassTonnes: 10, SoilTemperatureC: &t20},
		{MassTonnes: 50},
	})
	assert.InDelta(t, 12.5, temp, 1e-12)
	assert.Nil(t, caveat)

	temp, caveat = ResolveSoilTemperature(params, nil, nil)
	assert.Equal(t, params.DefaultSoilTempC, temp)
	require.NotNil(t, caveat)
	assert.Equal(t, methodology.CaveatDefaultSoilTemperature, caveat.Code)
}
