package domain

import "time"

type BatchStatus string

const (
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusComplete   BatchStatus = "complete"
)

type QualityStatus string

const (
	QualityStatusPending QualityStatus = "pending"
	QualityStatusPassed  QualityStatus = "passed"
	QualityStatusFailed  QualityStatus = "failed"
)

type EnergyScope string

const (
	EnergyScopeProduction EnergyScope = "production"
	EnergyScopeOther      EnergyScope = "other"
)

// Facility is a pyrolysis site and the baseline it is credited against.
type Facility struct {
	ID                          int64   `gorm:"primaryKey;autoIncrement:false"`
	Code                        string  `gorm:"not null;uniqueIndex"`
	Name                        string  `gorm:"not null"`
	BaselineScenario            string  `gorm:"not null"`
	BaselineStorageTCO2e        float64 `gorm:"column:baseline_storage_tco2e"`
	EmbodiedEmissionsTCO2e      float64 `gorm:"column:embodied_emissions_tco2e"`
	InfrastructureLifetimeYears float64
	CreatedAt                   time.Time `gorm:"not null"`
	UpdatedAt                   time.Time `gorm:"not null"`
}

func (Facility) TableName() string { return "facilities" }

type ProductionBatch struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement:false"`
	FacilityID           int64     `gorm:"not null;index"`
	BatchCode            string    `gorm:"not null"`
	ProductionDate       time.Time `gorm:"not null;index"`
	Status               string    `gorm:"not null"`
	FeedstockInputTonnes float64
	BiocharOutputTonnes  float64
	DryMassTonnes        *float64
	PeakTemperatureC     *float64
	ResidenceTimeMinutes *float64
	StackCH4Kg           float64 `gorm:"column:stack_ch4_kg"`
	StackN2OKg           float64 `gorm:"column:stack_n2o_kg"`

	// Copied from the authoritative lab test.
	OrganicCarbonPercent *float64
	HydrogenPercent      *float64
	HCorgRatio           *float64 `gorm:"column:hcorg_ratio"`
	QualityStatus        string   `gorm:"not null"`
	QualityTestID        *int64

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ProductionBatch) TableName() string { return "production_batches" }

type FeedstockDelivery struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	FacilityID          int64     `gorm:"not null;index" json:"facility_id,string"`
	DeliveryDate        time.Time `gorm:"not null" json:"delivery_date"`
	FeedstockType       string    `gorm:"not null" json:"feedstock_type"`
	MassTonnes          float64   `gorm:"not null" json:"mass_tonnes"`
	TransportDistanceKm float64   `json:"transport_distance_km"`
	CreatedAt           time.Time `gorm:"not null" json:"created_at"`
}

func (FeedstockDelivery) TableName() string { return "feedstock_deliveries" }

// FeedstockAllocation assigns a percentage of a delivery to a batch.
type FeedstockAllocation struct {
	ID               int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	DeliveryID       int64     `gorm:"not null;index" json:"delivery_id,string"`
	BatchID          int64     `gorm:"not null;index" json:"batch_id,string"`
	Percentage       float64   `gorm:"not null" json:"percentage"`
	WeightUsedTonnes float64   `gorm:"not null" json:"weight_used_tonnes"`
	DistanceKm       float64   `json:"distance_km"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
}

func (FeedstockAllocation) TableName() string { return "feedstock_allocations" }

type EnergyUsage struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	FacilityID  int64     `gorm:"not null;index" json:"facility_id,string"`
	BatchID     *int64    `gorm:"index" json:"batch_id,string,omitempty"`
	Scope       string    `gorm:"not null" json:"scope"`
	EnergyType  string    `gorm:"not null" json:"energy_type"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	PeriodStart time.Time `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null" json:"period_end"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (EnergyUsage) TableName() string { return "energy_usages" }

type SequestrationEvent struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	FacilityID          int64     `gorm:"not null;index" json:"facility_id,string"`
	BatchID             int64     `gorm:"not null;index" json:"batch_id,string"`
	EventDate           time.Time `gorm:"not null" json:"event_date"`
	MassTonnes          float64   `gorm:"not null" json:"mass_tonnes"`
	Destination         string    `json:"destination"`
	Method              string    `json:"method"`
	SoilTemperatureC    *float64  `json:"soil_temperature_c,omitempty"`
	TransportDistanceKm *float64  `json:"transport_distance_km,omitempty"`
	CreatedAt           time.Time `gorm:"not null" json:"created_at"`
}

func (SequestrationEvent) TableName() string { return "sequestration_events" }

type LeakageAssessment struct {
	ID                        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	FacilityID                int64     `gorm:"not null;index" json:"facility_id,string"`
	AssessmentDate            time.Time `gorm:"not null" json:"assessment_date"`
	EcologicalFacilityTCO2e   float64   `gorm:"column:ecological_facility_tco2e" json:"ecological_facility_tco2e"`
	EcologicalSourcingTCO2e   float64   `gorm:"column:ecological_sourcing_tco2e" json:"ecological_sourcing_tco2e"`
	MarketAFOLUTCO2e          float64   `gorm:"column:market_afolu_tco2e" json:"market_afolu_tco2e"`
	MarketEnergyMaterialTCO2e float64   `gorm:"column:market_energy_material_tco2e" json:"market_energy_material_tco2e"`
	ILUCTCO2e                 float64   `gorm:"column:iluc_tco2e" json:"iluc_tco2e"`
	CreatedAt                 time.Time `gorm:"not null" json:"created_at"`
}

func (LeakageAssessment) TableName() string { return "leakage_assessments" }
