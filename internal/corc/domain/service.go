package domain

import (
	"context"
	"errors"
	"time"

	"github.com/railzwaylabs/biochar/internal/lifecycle"
	"gorm.io/gorm"
)

type ListFilter struct {
	FacilityID *int64
	Status     *Status
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *CORCIssuance) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*CORCIssuance, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*CORCIssuance, error)
	FindByMonitoringPeriod(ctx context.Context, db *gorm.DB, periodID int64) (*CORCIssuance, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]CORCIssuance, error)
	// NextSerialSeq returns the next free sequence for a facility-year. Callers hold the facility lock.
	NextSerialSeq(ctx context.Context, db *gorm.DB, facilityID int64, year int) (int, error)
	UpdateVersioned(ctx context.Context, db *gorm.DB, id, expectedVersion int64, updates map[string]any) error
	DeleteVersioned(ctx context.Context, db *gorm.DB, id, expectedVersion int64) error

	InsertBatchLinks(ctx context.Context, db *gorm.DB, corcID int64, batchIDs []int64) error
	InsertEventLinks(ctx context.Context, db *gorm.DB, corcID int64, eventIDs []int64) error
	ListBatchLinks(ctx context.Context, db *gorm.DB, corcID int64) ([]int64, error)
	ListEventLinks(ctx context.Context, db *gorm.DB, corcID int64) ([]int64, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	Issue(ctx context.Context, id string, req IssueRequest) (*Response, error)
	Retire(ctx context.Context, id string, req RetireRequest) (*Response, error)
	Certificate(ctx context.Context, id string) ([]byte, error)
}

type CreateRequest struct {
	MonitoringPeriodID string  `json:"monitoring_period_id"`
	Notes              *string `json:"notes,omitempty"`
}

type ListRequest struct {
	FacilityID string
	Status     string
}

type UpdateRequest struct {
	Notes          *string `json:"notes,omitempty"`
	OwnerName      *string `json:"owner_name,omitempty"`
	OwnerAccountID *string `json:"owner_account_id,omitempty"`
}

type IssueRequest struct {
	IssuanceDate   time.Time `json:"issuance_date"`
	OwnerName      string    `json:"owner_name"`
	OwnerAccountID string    `json:"owner_account_id"`
}

type RetireRequest struct {
	RetirementDate        time.Time `json:"retirement_date"`
	RetirementBeneficiary string    `json:"retirement_beneficiary"`
	Notes                 *string   `json:"notes,omitempty"`
}

type Response struct {
	ID                    string           `json:"id"`
	SerialNumber          string           `json:"serial_number"`
	FacilityID            string           `json:"facility_id"`
	MonitoringPeriodID    string           `json:"monitoring_period_id"`
	Status                Status           `json:"status"`
	NetCORCsTCO2e         float64          `json:"net_corcs_tco2e"`
	CStoredTCO2e          float64          `json:"c_stored_tco2e"`
	CBaselineTCO2e        float64          `json:"c_baseline_tco2e"`
	CLossTCO2e            float64          `json:"c_loss_tco2e"`
	EProjectTCO2e         float64          `json:"e_project_tco2e"`
	ELeakageTCO2e         float64          `json:"e_leakage_tco2e"`
	PersistenceFraction   float64          `json:"persistence_fraction"`
	MethodologyVersion    string           `json:"methodology_version"`
	Breakdown             *FrozenBreakdown `json:"breakdown,omitempty"`
	BatchIDs              []string         `json:"batch_ids"`
	SequestrationEventIDs []string         `json:"sequestration_event_ids"`
	OwnerName             *string          `json:"owner_name,omitempty"`
	OwnerAccountID        *string          `json:"owner_account_id,omitempty"`
	IssuanceDate          *time.Time       `json:"issuance_date,omitempty"`
	RetirementDate        *time.Time       `json:"retirement_date,omitempty"`
	RetirementBeneficiary *string          `json:"retirement_beneficiary,omitempty"`
	Notes                 *string          `json:"notes,omitempty"`
	Version               int64            `json:"version"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrInvalidOwner           = errors.New("invalid_owner")
	ErrInvalidBeneficiary     = errors.New("invalid_retirement_beneficiary")
	ErrInvalidDate            = errors.New("invalid_date")
	ErrNotFound               = errors.New("corc_not_found")
	ErrPeriodNotFound         = errors.New("monitoring_period_not_found")
	ErrPeriodNotCalculated    = errors.New("monitoring_period_not_calculated")
	ErrAlreadyIssued          = errors.New("corc_exists_for_period")
	ErrFacilityNotFound       = errors.New("facility_not_found")
	ErrConcurrentModification = lifecycle.ErrConcurrentModification
)
