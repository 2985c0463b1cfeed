// Package methodology holds the accounting parameters of a biochar carbon-removal methodology
// edition. Every calculation is stamped with the Version it ran under.
package methodology

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// BaselineScenario is the counterfactual facility type net removal is measured against.
type BaselineScenario string

const (
	BaselineNewBuild          BaselineScenario = "new_build"
	BaselineRetrofit          BaselineScenario = "retrofit"
	BaselineCharcoalRepurpose BaselineScenario = "charcoal_repurpose"
)

// Valid reports whether the scenario is one the methodology knows how to price.
func (b BaselineScenario) Valid() bool {
	switch b {
	case BaselineNewBuild, BaselineRetrofit, BaselineCharcoalRepurpose:
		return true
	default:
		return false
	}
}

// ParseBaselineScenario normalizes free-form input into a BaselineScenario.
func ParseBaselineScenario(value string) (BaselineScenario, error) {
	scenario := BaselineScenario(strings.ToLower(strings.TrimSpace(value)))
	if !scenario.Valid() {
		return "", ErrUnknownBaselineScenario
	}
	return scenario, nil
}

// Energy types with a dedicated emission factor.
const (
	EnergyElectricity = "electricity"
	EnergyDiesel      = "diesel"
	EnergyGas         = "gas"
	EnergyPropane     = "propane"
)

var (
	ErrUnknownBaselineScenario = errors.New("unknown_baseline_scenario")
	ErrInvalidParams           = errors.New("invalid_methodology_params")
)

// BiomassShares splits the feedstock transport estimate into lifecycle stages. Shares sum to 1.
type BiomassShares struct {
	Cultivation   float64 `mapstructure:"cultivation" json:"cultivation"`
	Collection    float64 `mapstructure:"collection" json:"collection"`
	Transport     float64 `mapstructure:"transport" json:"transport"`
	Preprocessing float64 `mapstructure:"preprocessing" json:"preprocessing"`
}

func (s BiomassShares) sum() float64 {
	return s.Cultivation + s.Collection + s.Transport + s.Preprocessing
}

// EnergyFactors are kg CO2e per unit of energy or fuel consumed.
type EnergyFactors struct {
	Electricity float64 `mapstructure:"electricity" json:"electricity"`
	Diesel      float64 `mapstructure:"diesel" json:"diesel"`
	Gas         float64 `mapstructure:"gas" json:"gas"`
	Propane     float64 `mapstructure:"propane" json:"propane"`
	Default     float64 `mapstructure:"default" json:"default"`
}

type Params struct {
	Version string `mapstructure:"version" json:"version"`

	CarbonMolarMass   float64 `mapstructure:"carbon_molar_mass" json:"carbon_molar_mass"`
	HydrogenMolarMass float64 `mapstructure:"hydrogen_molar_mass" json:"hydrogen_molar_mass"`
	CO2PerCarbon      float64 `mapstructure:"co2_per_carbon" json:"co2_per_carbon"`

	// H/Corg molar ratio at or below which biochar passes the permanence threshold.
	HCorgThreshold              float64 `mapstructure:"hcorg_threshold" json:"hcorg_threshold"`
	DefaultOrganicCarbonPercent float64 `mapstructure:"default_organic_carbon_percent" json:"default_organic_carbon_percent"`
	DefaultHydrogenPercent      float64 `mapstructure:"default_hydrogen_percent" json:"default_hydrogen_percent"`

	// persistence = Intercept - HCorgSlope*hCorg - TempSlope*soilTempC, clamped to [0, 1].
	PersistenceIntercept  float64 `mapstructure:"persistence_intercept" json:"persistence_intercept"`
	PersistenceHCorgSlope float64 `mapstructure:"persistence_hcorg_slope" json:"persistence_hcorg_slope"`
	PersistenceTempSlope  float64 `mapstructure:"persistence_temp_slope" json:"persistence_temp_slope"`

	DefaultSoilTempC float64 `mapstructure:"default_soil_temp_c" json:"default_soil_temp_c"`
	MinSoilTempC     float64 `mapstructure:"min_soil_temp_c" json:"min_soil_temp_c"`
	MaxSoilTempC     float64 `mapstructure:"max_soil_temp_c" json:"max_soil_temp_c"`

	// kg CO2e per tonne-km of road freight.
	TransportFactor float64       `mapstructure:"transport_factor" json:"transport_factor"`
	BiomassShares   BiomassShares `mapstructure:"biomass_shares" json:"biomass_shares"`
	EnergyFactors   EnergyFactors `mapstructure:"energy_factors" json:"energy_factors"`

	GWPMethane      float64 `mapstructure:"gwp_methane" json:"gwp_methane"`
	GWPNitrousOxide float64 `mapstructure:"gwp_nitrous_oxide" json:"gwp_nitrous_oxide"`
}

// Default returns the built-in methodology edition.
func Default() Params {
	return Params{
		Version: "puro-biochar-2022.v1",

		CarbonMolarMass:   12.011,
		HydrogenMolarMass: 1.008,
		CO2PerCarbon:      3.67,

		HCorgThreshold:              0.7,
		DefaultOrganicCarbonPercent: 80,
		DefaultHydrogenPercent:      2,

		PersistenceIntercept:  1.04,
		PersistenceHCorgSlope: 0.64,
		PersistenceTempSlope:  0.0077,

		DefaultSoilTempC: 15,
		MinSoilTempC:     -30,
		MaxSoilTempC:     45,

		TransportFactor: 0.1,
		BiomassShares: BiomassShares{
			Cultivation:   0.2,
			Collection:    0.2,
			Transport:     0.5,
			Preprocessing: 0.1,
		},
		EnergyFactors: EnergyFactors{
			Electricity: 0.4,
			Diesel:      2.68,
			Gas:         2.0,
			Propane:     1.51,
			Default:     0.5,
		},

		GWPMethane:      27,
		GWPNitrousOxide: 273,
	}
}

// Validate rejects parameter sets that would make the calculator produce nonsense.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Version) == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidParams)
	}
	if p.CarbonMolarMass <= 0 || p.HydrogenMolarMass <= 0 || p.CO2PerCarbon <= 0 {
		return fmt.Errorf("%w: molar constants must be positive", ErrInvalidParams)
	}
	if p.HCorgThreshold <= 0 {
		return fmt.Errorf("%w: hcorg_threshold must be positive", ErrInvalidParams)
	}
	if !isPercent(p.DefaultOrganicCarbonPercent) || !isPercent(p.DefaultHydrogenPercent) {
		return fmt.Errorf("%w: default quality values must be percentages", ErrInvalidParams)
	}
	if p.MinSoilTempC >= p.MaxSoilTempC {
		return fmt.Errorf("%w: soil temperature range is empty", ErrInvalidParams)
	}
	if p.DefaultSoilTempC < p.MinSoilTempC || p.DefaultSoilTempC > p.MaxSoilTempC {
		return fmt.Errorf("%w: default soil temperature outside range", ErrInvalidParams)
	}
	if math.Abs(p.BiomassShares.sum()-1) > 1e-9 {
		return fmt.Errorf("%w: biomass shares must sum to 1, got %.4f", ErrInvalidParams, p.BiomassShares.sum())
	}
	if p.TransportFactor < 0 || p.GWPMethane < 0 || p.GWPNitrousOxide < 0 {
		return fmt.Errorf("%w: emission factors must not be negative", ErrInvalidParams)
	}
	return nil
}

// EnergyFactor returns the kg CO2e per unit for energyType. The second value is false when the
// default factor was applied.
func (p Params) EnergyFactor(energyType string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(energyType)) {
	case EnergyElectricity:
		return p.EnergyFactors.Electricity, true
	case EnergyDiesel:
		return p.EnergyFactors.Diesel, true
	case EnergyGas, "natural_gas":
		return p.EnergyFactors.Gas, true
	case EnergyPropane, "lpg":
		return p.EnergyFactors.Propane, true
	default:
		return p.EnergyFactors.Default, false
	}
}

// HCorgRatio is the molar hydrogen to organic carbon ratio. ok is false when organic carbon is zero.
func (p Params) HCorgRatio(hydrogenPercent, organicCarbonPercent float64) (ratio float64, ok bool) {
	if organicCarbonPercent <= 0 {
		return 0, false
	}
	return (hydrogenPercent / p.HydrogenMolarMass) / (organicCarbonPercent / p.CarbonMolarMass), true
}

// PersistenceFraction is the modeled share of stored carbon remaining over the crediting horizon.
func (p Params) PersistenceFraction(hCorg, soilTempC float64) float64 {
	pf := p.PersistenceIntercept - p.PersistenceHCorgSlope*hCorg - p.PersistenceTempSlope*soilTempC
	return math.Max(0, math.Min(1, pf))
}

func isPercent(v float64) bool {
	return v >= 0 && v <= 100
}
