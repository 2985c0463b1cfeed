package domain

import (
	"fmt"
	"math"

	"github.com/railzwaylabs/biochar/internal/methodology"
)

// ProjectEmissions are the project-lifecycle components in kg, stack gases in kg of gas.
type ProjectEmissions struct {
	BiomassKg          float64 `json:"biomass_kg"`
	ProductionEnergyKg float64 `json:"production_energy_kg"`
	EmbodiedKg         float64 `json:"embodied_kg"`
	EndUseKg           float64 `json:"end_use_kg"`
	StackCH4Kg         float64 `json:"stack_ch4_kg"`
	StackN2OKg         float64 `json:"stack_n2o_kg"`
}

type Leakage struct {
	EcologicalTCO2e float64 `json:"ecological_tco2e"`
	MarketTCO2e     float64 `json:"market_tco2e"`
}

// Input is everything the net removal depends on. Calculate reads nothing else.
type Input struct {
	DryMassTonnes              float64
	UnsequesteredDryMassTonnes float64
	OrganicCarbonPercent       float64
	HydrogenPercent            float64
	SoilTemperatureC           float64
	Baseline                   methodology.BaselineScenario
	BaselineStorageTCO2e       float64
	Emissions                  ProjectEmissions
	Leakage                    Leakage
}

type Result struct {
	CStoredTCO2e               float64 `json:"c_stored_tco2e"`
	CBaselineTCO2e             float64 `json:"c_baseline_tco2e"`
	CLossTCO2e                 float64 `json:"c_loss_tco2e"`
	PersistenceFraction        float64 `json:"persistence_fraction"`
	PersistenceFractionPercent float64 `json:"persistence_fraction_percent"`
	HCorgRatio                 float64 `json:"hcorg_ratio"`
	EProjectTCO2e              float64 `json:"e_project_tco2e"`
	ELeakageTCO2e              float64 `json:"e_leakage_tco2e"`
	NetCORCsTCO2e              float64 `json:"net_corcs_tco2e"`
	MethodologyVersion         string  `json:"methodology_version"`
}

// Calculate turns aggregated period data into net carbon removal. It is a pure function of its
// arguments.
func Calculate(params methodology.Params, in Input) (Result, error) {
	if !(in.DryMassTonnes > 0) {
		return Result{}, ErrZeroDryMass
	}
	hCorg, ok := params.HCorgRatio(in.HydrogenPercent, in.OrganicCarbonPercent)
	if !ok {
		return Result{}, fmt.Errorf("%w: organic carbon is zero", ErrUndefinedHCorg)
	}

	pf := params.PersistenceFraction(hCorg, in.SoilTemperatureC)
	carbonCO2e := in.OrganicCarbonPercent / 100 * params.CO2PerCarbon

	var res Result
	res.MethodologyVersion = params.Version
	res.HCorgRatio = hCorg
	res.PersistenceFraction = pf
	res.PersistenceFractionPercent = pf * 100

	res.CStoredTCO2e = in.DryMassTonnes * carbonCO2e * pf

	switch in.Baseline {
	case methodology.BaselineNewBuild:
		res.CBaselineTCO2e = 0
	case methodology.BaselineRetrofit:
		res.CBaselineTCO2e = in.BaselineStorageTCO2e
	case methodology.BaselineCharcoalRepurpose:
		res.CBaselineTCO2e = in.BaselineStorageTCO2e * pf
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownBaseline, in.Baseline)
	}

	res.CLossTCO2e = math.Max(0, in.UnsequesteredDryMassTonnes) * carbonCO2e * (1 - pf)

	e := in.Emissions
	res.EProjectTCO2e = (e.BiomassKg +
		e.ProductionEnergyKg +
		e.EmbodiedKg +
		e.EndUseKg +
		e.StackCH4Kg*params.GWPMethane +
		e.StackN2OKg*params.GWPNitrousOxide) / 1000

	res.ELeakageTCO2e = in.Leakage.EcologicalTCO2e + in.Leakage.MarketTCO2e

	res.NetCORCsTCO2e = res.CStoredTCO2e - res.CBaselineTCO2e - res.CLossTCO2e - res.EProjectTCO2e - res.ELeakageTCO2e
	return res, nil
}
