package domain

import (
	"time"

	"gorm.io/datatypes"
)

// MonitoringPeriod is a facility-scoped inclusive date range and the cached result of its last
// saved calculation. Result columns are written together or not at all.
type MonitoringPeriod struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false"`
	FacilityID int64     `gorm:"not null;index"`
	StartDate  time.Time `gorm:"not null"`
	EndDate    time.Time `gorm:"not null"`

	CStoredTCO2e            *float64 `gorm:"column:c_stored_tco2e"`
	CBaselineTCO2e          *float64 `gorm:"column:c_baseline_tco2e"`
	CLossTCO2e              *float64 `gorm:"column:c_loss_tco2e"`
	PersistenceFraction     *float64 `gorm:"column:persistence_fraction"`
	HCorgRatio              *float64 `gorm:"column:hcorg_ratio"`
	EProjectTCO2e           *float64 `gorm:"column:e_project_tco2e"`
	ELeakageTCO2e           *float64 `gorm:"column:e_leakage_tco2e"`
	NetCORCsTCO2e           *float64 `gorm:"column:net_corcs_tco2e"`
	DryMassTonnes           *float64 `gorm:"column:dry_mass_tonnes"`
	MeanSoilTemperatureC    *float64 `gorm:"column:mean_soil_temperature_c"`
	ProductionBatchCount    *int     `gorm:"column:production_batch_count"`
	SequestrationEventCount *int     `gorm:"column:sequestration_event_count"`
	MethodologyVersion      *string  `gorm:"column:methodology_version"`
	Warnings                datatypes.JSON
	CalculatedAt            *time.Time

	// Set when a record feeding this period changes after it was calculated.
	InputsChangedAt *time.Time
	Version         int64     `gorm:"not null;default:1"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (MonitoringPeriod) TableName() string { return "monitoring_periods" }

// Saved reports whether the period carries a calculation result.
func (p *MonitoringPeriod) Saved() bool {
	return p != nil && p.CalculatedAt != nil && p.NetCORCsTCO2e != nil
}

// Days is the inclusive length of the period.
func (p *MonitoringPeriod) Days() float64 {
	return p.EndDate.Sub(p.StartDate).Hours()/24 + 1
}
