package domain

import (
	"context"
	"errors"

	"github.com/railzwaylabs/biochar/internal/emissions"
	"github.com/railzwaylabs/biochar/internal/leakage"
)

type Service interface {
	// Calculate runs the methodology for a monitoring period and, when asked, persists the result.
	Calculate(ctx context.Context, req CalculateRequest) (*CalculateResponse, error)
	// Recalculate recomputes and saves a period that already has a saved result.
	Recalculate(ctx context.Context, periodID int64) error
}

type CalculateRequest struct {
	MonitoringPeriodID   string   `json:"monitoring_period_id"`
	SaveResult           bool     `json:"save_result"`
	MeanSoilTempOverride *float64 `json:"mean_soil_temp_override,omitempty"`
	ReturnFullBreakdown  bool     `json:"return_full_breakdown"`
}

type CalculateResponse struct {
	Result                  Result     `json:"result"`
	Validation              Validation `json:"validation"`
	ProductionBatchCount    int        `json:"production_batch_count"`
	SequestrationEventCount int        `json:"sequestration_event_count"`
	Saved                   bool       `json:"saved"`
	Breakdown               *Breakdown `json:"breakdown,omitempty"`
}

// Breakdown exposes the intermediate values a result was derived from.
type Breakdown struct {
	DryMassTonnes              float64           `json:"dry_mass_tonnes"`
	UnsequesteredDryMassTonnes float64           `json:"unsequestered_dry_mass_tonnes"`
	OrganicCarbonPercent       float64           `json:"organic_carbon_percent"`
	HydrogenPercent            float64           `json:"hydrogen_percent"`
	MeanSoilTemperatureC       float64           `json:"mean_soil_temperature_c"`
	BaselineScenario           string            `json:"baseline_scenario"`
	BaselineStorageTCO2e       float64           `json:"baseline_storage_tco2e"`
	Emissions                  ProjectEmissions  `json:"emissions"`
	Biomass                    emissions.Biomass `json:"biomass"`
	Leakage                    leakage.Result    `json:"leakage"`
	PeriodDays                 float64           `json:"period_days"`
}

var (
	ErrZeroDryMass           = emissions.ErrZeroDryMass
	ErrUnknownBaseline       = errors.New("unknown_baseline_scenario")
	ErrUndefinedHCorg        = errors.New("undefined_hcorg_ratio")
	ErrFacilityNotFound      = errors.New("facility_not_found")
	ErrPeriodNotFound        = errors.New("monitoring_period_not_found")
	ErrInvalidID             = errors.New("invalid_id")
	ErrCalculationInProgress = errors.New("calculation_in_progress")
	ErrNotSaved              = errors.New("monitoring_period_not_saved")
)
