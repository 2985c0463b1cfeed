package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft   Status = "draft"
	StatusIssued  Status = "issued"
	StatusRetired Status = "retired"
)

const Entity = "corc"

// CORCIssuance is a certificate for the net removal of one monitoring period. Result figures are
// frozen from the period at creation and never recomputed.
type CORCIssuance struct {
	ID                 int64  `gorm:"primaryKey;autoIncrement:false"`
	FacilityID         int64  `gorm:"not null;index"`
	MonitoringPeriodID int64  `gorm:"not null;uniqueIndex"`
	SerialNumber       string `gorm:"not null;uniqueIndex"`
	SerialYear         int    `gorm:"not null"`
	SerialSeq          int    `gorm:"not null"`
	Status             string `gorm:"not null;index"`

	NetCORCsTCO2e       float64 `gorm:"column:net_corcs_tco2e;not null"`
	CStoredTCO2e        float64 `gorm:"column:c_stored_tco2e"`
	CBaselineTCO2e      float64 `gorm:"column:c_baseline_tco2e"`
	CLossTCO2e          float64 `gorm:"column:c_loss_tco2e"`
	EProjectTCO2e       float64 `gorm:"column:e_project_tco2e"`
	ELeakageTCO2e       float64 `gorm:"column:e_leakage_tco2e"`
	PersistenceFraction float64 `gorm:"column:persistence_fraction"`
	MethodologyVersion  string
	Breakdown           datatypes.JSON

	OwnerName             *string
	OwnerAccountID        *string
	IssuanceDate          *time.Time
	RetirementDate        *time.Time
	RetirementBeneficiary *string
	Notes                 *string

	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (CORCIssuance) TableName() string { return "corc_issuances" }

type CORCBatch struct {
	CORCID  int64 `gorm:"column:corc_id;primaryKey;autoIncrement:false"`
	BatchID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (CORCBatch) TableName() string { return "corc_batches" }

type CORCSequestrationEvent struct {
	CORCID               int64 `gorm:"column:corc_id;primaryKey;autoIncrement:false"`
	SequestrationEventID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (CORCSequestrationEvent) TableName() string { return "corc_sequestration_events" }

// FrozenBreakdown is the snapshot stored on the certificate.
type FrozenBreakdown struct {
	PeriodStart             time.Time      `json:"period_start"`
	PeriodEnd               time.Time      `json:"period_end"`
	DryMassTonnes           *float64       `json:"dry_mass_tonnes,omitempty"`
	HCorgRatio              *float64       `json:"hcorg_ratio,omitempty"`
	MeanSoilTemperatureC    *float64       `json:"mean_soil_temperature_c,omitempty"`
	ProductionBatchCount    *int           `json:"production_batch_count,omitempty"`
	SequestrationEventCount *int           `json:"sequestration_event_count,omitempty"`
	CalculatedAt            *time.Time     `json:"calculated_at,omitempty"`
	Warnings                datatypes.JSON `json:"warnings,omitempty"`
}
