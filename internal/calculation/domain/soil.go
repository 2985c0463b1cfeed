package domain

import (
	"fmt"

	"github.com/railzwaylabs/biochar/internal/methodology"
)

type SoilSample struct {
	MassTonnes       float64
	SoilTemperatureC *float64
}

// ResolveSoilTemperature picks the mean soil temperature: the override when given, else the
// mass-weighted mean of events that recorded one, else the methodology default with a caveat.
func ResolveSoilTemperature(params methodology.Params, override *float64, samples []SoilSample) (float64, *methodology.Caveat) {
	if override != nil {
		return *override, nil
	}

	var weighted, mass float64
	for _, s := range samples {
		if s.SoilTemperatureC == nil || s.MassTonnes <= 0 {
			continue
		}
		weighted += *s.SoilTemperatureC * s.MassTonnes
		mass += s.MassTonnes
	}
	if mass > 0 {
		return weighted / mass, nil
	}

	return params.DefaultSoilTempC, &methodology.Caveat{
		Code:    methodology.CaveatDefaultSoilTemperature,
		Field:   "mean_soil_temperature_c",
		Message: fmt.Sprintf("no soil temperature recorded for the period, using default %.1f °C", params.DefaultSoilTempC),
	}
}
