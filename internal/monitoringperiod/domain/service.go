package domain

import (
	"context"
	"errors"
	"time"

	"github.com/railzwaylabs/biochar/internal/lifecycle"
	"github.com/railzwaylabs/biochar/internal/methodology"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *MonitoringPeriod) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*MonitoringPeriod, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*MonitoringPeriod, error)
	ListByFacility(ctx context.Context, db *gorm.DB, facilityID int64) ([]MonitoringPeriod, error)
	// FindOverlapping returns any period of the facility sharing at least one day with [start, end].
	FindOverlapping(ctx context.Context, db *gorm.DB, facilityID int64, start, end time.Time) (*MonitoringPeriod, error)
	// SaveResult writes every result column in one statement, guarded by the expected version.
	SaveResult(ctx context.Context, db *gorm.DB, id, expectedVersion int64, result Result) error
	// MarkInputsChanged flags saved periods overlapping [from, to] as stale.
	MarkInputsChanged(ctx context.Context, db *gorm.DB, facilityID int64, from, to, at time.Time) error
	ListSavedCovering(ctx context.Context, db *gorm.DB, facilityID int64, date time.Time) ([]int64, error)
	ListStale(ctx context.Context, db *gorm.DB, limit int) ([]int64, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	ListByFacility(ctx context.Context, facilityID string) ([]Response, error)
}

// Result is the full set of persisted calculation outputs.
type Result struct {
	CStoredTCO2e            float64
	CBaselineTCO2e          float64
	CLossTCO2e              float64
	PersistenceFraction     float64
	HCorgRatio              float64
	EProjectTCO2e           float64
	ELeakageTCO2e           float64
	NetCORCsTCO2e           float64
	DryMassTonnes           float64
	MeanSoilTemperatureC    float64
	ProductionBatchCount    int
	SequestrationEventCount int
	MethodologyVersion      string
	Warnings                []methodology.Caveat
	CalculatedAt            time.Time
}

type CreateRequest struct {
	FacilityID string    `json:"facility_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

type Response struct {
	ID                      string               `json:"id"`
	FacilityID              string               `json:"facility_id"`
	StartDate               time.Time            `json:"start_date"`
	EndDate                 time.Time            `json:"end_date"`
	CStoredTCO2e            *float64             `json:"c_stored_tco2e"`
	CBaselineTCO2e          *float64             `json:"c_baseline_tco2e"`
	CLossTCO2e              *float64             `json:"c_loss_tco2e"`
	PersistenceFraction     *float64             `json:"persistence_fraction"`
	EProjectTCO2e           *float64             `json:"e_project_tco2e"`
	ELeakageTCO2e           *float64             `json:"e_leakage_tco2e"`
	NetCORCsTCO2e           *float64             `json:"net_corcs_tco2e"`
	ProductionBatchCount    *int                 `json:"production_batch_count,omitempty"`
	SequestrationEventCount *int                 `json:"sequestration_event_count,omitempty"`
	MethodologyVersion      *string              `json:"methodology_version,omitempty"`
	Warnings                []methodology.Caveat `json:"warnings"`
	CalculatedAt            *time.Time           `json:"calculated_at"`
	Stale                   bool                 `json:"stale"`
	Version                 int64                `json:"version"`
	CreatedAt               time.Time            `json:"created_at"`
}

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidRange           = errors.New("invalid_period_range")
	ErrOverlap                = errors.New("monitoring_period_overlap")
	ErrNotFound               = errors.New("monitoring_period_not_found")
	ErrFacilityNotFound       = errors.New("facility_not_found")
	ErrConcurrentModification = lifecycle.ErrConcurrentModification
)
