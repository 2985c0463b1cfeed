package domain

import (
	"context"
	"errors"
	"time"
)

// Service is the thin intake surface for the supply-chain records the calculation reads.
type Service interface {
	CreateFacility(ctx context.Context, req CreateFacilityRequest) (*FacilityResponse, error)
	GetFacility(ctx context.Context, id string) (*FacilityResponse, error)
	CreateBatch(ctx context.Context, req CreateBatchRequest) (*BatchResponse, error)
	GetBatch(ctx context.Context, id string) (*BatchResponse, error)
	CreateDelivery(ctx context.Context, req CreateDeliveryRequest) (*FeedstockDelivery, error)
	CreateAllocation(ctx context.Context, req CreateAllocationRequest) (*FeedstockAllocation, error)
	CreateEnergyUsage(ctx context.Context, req CreateEnergyUsageRequest) (*EnergyUsage, error)
	CreateSequestrationEvent(ctx context.Context, req CreateSequestrationEventRequest) (*SequestrationEvent, error)
	CreateLeakageAssessment(ctx context.Context, req CreateLeakageAssessmentRequest) (*LeakageAssessment, error)
}

type CreateFacilityRequest struct {
	Code                        string  `json:"code"`
	Name                        string  `json:"name"`
	BaselineScenario            string  `json:"baseline_scenario"`
	BaselineStorageTCO2e        float64 `json:"baseline_storage_tco2e"`
	EmbodiedEmissionsTCO2e      float64 `json:"embodied_emissions_tco2e"`
	InfrastructureLifetimeYears float64 `json:"infrastructure_lifetime_years"`
}

type FacilityResponse struct {
	ID                          string    `json:"id"`
	Code                        string    `json:"code"`
	Name                        string    `json:"name"`
	BaselineScenario            string    `json:"baseline_scenario"`
	BaselineStorageTCO2e        float64   `json:"baseline_storage_tco2e"`
	EmbodiedEmissionsTCO2e      float64   `json:"embodied_emissions_tco2e"`
	InfrastructureLifetimeYears float64   `json:"infrastructure_lifetime_years"`
	CreatedAt                   time.Time `json:"created_at"`
}

type CreateBatchRequest struct {
	FacilityID           string    `json:"facility_id"`
	BatchCode            string    `json:"batch_code"`
	ProductionDate       time.Time `json:"production_date"`
	Status               string    `json:"status"`
	FeedstockInputTonnes float64   `json:"feedstock_input_tonnes"`
	BiocharOutputTonnes  float64   `json:"biochar_output_tonnes"`
	DryMassTonnes        *float64  `json:"dry_mass_tonnes,omitempty"`
	PeakTemperatureC     *float64  `json:"peak_temperature_c,omitempty"`
	ResidenceTimeMinutes *float64  `json:"residence_time_minutes,omitempty"`
	StackCH4Kg           float64   `json:"stack_ch4_kg"`
	StackN2OKg           float64   `json:"stack_n2o_kg"`
}

type BatchResponse struct {
	ID                   string    `json:"id"`
	FacilityID           string    `json:"facility_id"`
	BatchCode            string    `json:"batch_code"`
	ProductionDate       time.Time `json:"production_date"`
	Status               string    `json:"status"`
	FeedstockInputTonnes float64   `json:"feedstock_input_tonnes"`
	BiocharOutputTonnes  float64   `json:"biochar_output_tonnes"`
	DryMassTonnes        *float64  `json:"dry_mass_tonnes,omitempty"`
	StackCH4Kg           float64   `json:"stack_ch4_kg"`
	StackN2OKg           float64   `json:"stack_n2o_kg"`
	OrganicCarbonPercent *float64  `json:"organic_carbon_percent"`
	HydrogenPercent      *float64  `json:"hydrogen_percent"`
	HCorgRatio           *float64  `json:"hcorg_ratio"`
	QualityStatus        string    `json:"quality_status"`
	CreatedAt            time.Time `json:"created_at"`
}

type CreateDeliveryRequest struct {
	FacilityID          string    `json:"facility_id"`
	DeliveryDate        time.Time `json:"delivery_date"`
	FeedstockType       string    `json:"feedstock_type"`
	MassTonnes          float64   `json:"mass_tonnes"`
	TransportDistanceKm float64   `json:"transport_distance_km"`
}

type CreateAllocationRequest struct {
	DeliveryID string  `json:"delivery_id"`
	BatchID    string  `json:"batch_id"`
	Percentage float64 `json:"percentage"`
}

type CreateEnergyUsageRequest struct {
	FacilityID  string    `json:"facility_id"`
	BatchID     *string   `json:"batch_id,omitempty"`
	Scope       string    `json:"scope"`
	EnergyType  string    `json:"energy_type"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

type CreateSequestrationEventRequest struct {
	BatchID             string    `json:"batch_id"`
	EventDate           time.Time `json:"event_date"`
	MassTonnes          float64   `json:"mass_tonnes"`
	Destination         string    `json:"destination"`
	Method              string    `json:"method"`
	SoilTemperatureC    *float64  `json:"soil_temperature_c,omitempty"`
	TransportDistanceKm *float64  `json:"transport_distance_km,omitempty"`
}

type CreateLeakageAssessmentRequest struct {
	FacilityID                string    `json:"facility_id"`
	AssessmentDate            time.Time `json:"assessment_date"`
	EcologicalFacilityTCO2e   float64   `json:"ecological_facility_tco2e"`
	EcologicalSourcingTCO2e   float64   `json:"ecological_sourcing_tco2e"`
	MarketAFOLUTCO2e          float64   `json:"market_afolu_tco2e"`
	MarketEnergyMaterialTCO2e float64   `json:"market_energy_material_tco2e"`
	ILUCTCO2e                 float64   `json:"iluc_tco2e"`
}

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidCode            = errors.New("invalid_code")
	ErrInvalidName            = errors.New("invalid_name")
	ErrInvalidDate            = errors.New("invalid_date")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrInvalidScope           = errors.New("invalid_scope")
	ErrInvalidPercentage      = errors.New("invalid_percentage")
	ErrOverAllocated          = errors.New("delivery_over_allocated")
	ErrFacilityMismatch       = errors.New("facility_mismatch")
	ErrFacilityNotFound       = errors.New("facility_not_found")
	ErrBatchNotFound          = errors.New("batch_not_found")
	ErrDeliveryNotFound       = errors.New("delivery_not_found")
	ErrDuplicateFacilityCode  = errors.New("duplicate_facility_code")
	ErrInvalidBaselineStorage = errors.New("invalid_baseline_storage")
)
