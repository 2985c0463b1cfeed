package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/railzwaylabs/biochar/internal/methodology"
)

// Issue is one independent reason the input cannot be calculated.
type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Validation struct {
	IsValid  bool                 `json:"is_valid"`
	Errors   []Issue              `json:"errors"`
	Warnings []methodology.Caveat `json:"warnings"`
}

// ValidationError carries every issue found, not just the first.
type ValidationError struct {
	Validation Validation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Validation.Errors))
	for _, issue := range e.Validation.Errors {
		msgs = append(msgs, issue.Field+": "+issue.Message)
	}
	return "invalid calculation input: " + strings.Join(msgs, "; ")
}

// Validate checks in against physical plausibility. warnings are carried through unchanged so the
// caller sees every caveat raised while the input was assembled.
func Validate(params methodology.Params, in Input, warnings []methodology.Caveat) Validation {
	v := Validation{Errors: []Issue{}, Warnings: []methodology.Caveat{}}
	v.Warnings = append(v.Warnings, warnings...)

	add := func(field, code, format string, args ...any) {
		v.Errors = append(v.Errors, Issue{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if !finite(in.DryMassTonnes) || in.DryMassTonnes <= 0 {
		add("biochar_dry_mass_tonnes", "non_positive", "dry mass must be greater than zero, got %v", in.DryMassTonnes)
	}

	percents := []struct {
		field string
		value float64
	}{
		{"organic_carbon_percent", in.OrganicCarbonPercent},
		{"hydrogen_percent", in.HydrogenPercent},
	}
	for _, p := range percents {
		if !finite(p.value) || p.value < 0 || p.value > 100 {
			add(p.field, "out_of_range", "must be within [0, 100], got %v", p.value)
		}
	}
	if in.OrganicCarbonPercent == 0 {
		add("organic_carbon_percent", "zero", "organic carbon of zero leaves the H/Corg ratio undefined")
	}

	if !finite(in.SoilTemperatureC) || in.SoilTemperatureC < params.MinSoilTempC || in.SoilTemperatureC > params.MaxSoilTempC {
		add("mean_soil_temperature_c", "out_of_range", "must be within [%v, %v] °C, got %v",
			params.MinSoilTempC, params.MaxSoilTempC, in.SoilTemperatureC)
	}

	if !in.Baseline.Valid() {
		add("baseline_scenario", "unknown", "unrecognized baseline scenario %q", in.Baseline)
	}
	if !finite(in.BaselineStorageTCO2e) || in.BaselineStorageTCO2e < 0 {
		add("baseline_storage_tco2e", "negative", "must not be negative, got %v", in.BaselineStorageTCO2e)
	}
	if !finite(in.UnsequesteredDryMassTonnes) || in.UnsequesteredDryMassTonnes < 0 {
		add("unsequestered_dry_mass_tonnes", "negative", "must not be negative, got %v", in.UnsequesteredDryMassTonnes)
	}

	components := []struct {
		field string
		value float64
	}{
		{"emissions.biomass_kg", in.Emissions.BiomassKg},
		{"emissions.production_energy_kg", in.Emissions.ProductionEnergyKg},
		{"emissions.embodied_kg", in.Emissions.EmbodiedKg},
		{"emissions.end_use_kg", in.Emissions.EndUseKg},
		{"emissions.stack_ch4_kg", in.Emissions.StackCH4Kg},
		{"emissions.stack_n2o_kg", in.Emissions.StackN2OKg},
		{"leakage.ecological_tco2e", in.Leakage.EcologicalTCO2e},
		{"leakage.market_tco2e", in.Leakage.MarketTCO2e},
	}
	for _, c := range components {
		if !finite(c.value) || c.value < 0 {
			add(c.field, "negative", "emission components must not be negative, got %v", c.value)
		}
	}

	v.IsValid = len(v.Errors) == 0
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
