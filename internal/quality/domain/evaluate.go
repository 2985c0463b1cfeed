package domain

import (
	"fmt"
	"math"

	"github.com/railzwaylabs/biochar/internal/methodology"
)

// Result is the permanence-relevant quality derived from one lab measurement.
type Result struct {
	OrganicCarbonPercent   float64
	HydrogenPercent        float64
	HCorgRatio             *float64
	PassesQualityThreshold bool
}

// Evaluate derives organic carbon, the molar H/Corg ratio and the threshold verdict from lab
// percentages. When organic carbon is zero the ratio is undefined: the returned Result still carries
// the organic carbon value, fails the threshold, and the error is ErrUndefinedHCorg.
func Evaluate(params methodology.Params, totalCarbon, inorganicCarbon, hydrogen float64) (Result, error) {
	inputs := []struct {
		field string
		value float64
	}{
		{"total_carbon_percent", totalCarbon},
		{"inorganic_carbon_percent", inorganicCarbon},
		{"hydrogen_percent", hydrogen},
	}
	for _, in := range inputs {
		if math.IsNaN(in.value) || in.value < 0 || in.value > 100 {
			return Result{}, fmt.Errorf("%w: %s=%v", ErrPercentOutOfRange, in.field, in.value)
		}
	}

	res := Result{
		OrganicCarbonPercent: math.Max(0, totalCarbon-inorganicCarbon),
		HydrogenPercent:      hydrogen,
	}

	ratio, ok := params.HCorgRatio(hydrogen, res.OrganicCarbonPercent)
	if !ok {
		return res, ErrUndefinedHCorg
	}
	res.HCorgRatio = &ratio
	res.PassesQualityThreshold = ratio <= params.HCorgThreshold
	return res, nil
}
