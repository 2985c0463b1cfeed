package domain

import (
	"context"
	"errors"
	"time"

	"github.com/railzwaylabs/biochar/internal/lifecycle"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, b *BCU) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*BCU, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*BCU, error)
	FindBySerial(ctx context.Context, db *gorm.DB, serial string) (*BCU, error)
	UpdateVersioned(ctx context.Context, db *gorm.DB, id, expectedVersion int64, updates map[string]any) error
	DeleteVersioned(ctx context.Context, db *gorm.DB, id, expectedVersion int64) error
	InsertTransfer(ctx context.Context, db *gorm.DB, t *BCUTransfer) error
	ListTransfers(ctx context.Context, db *gorm.DB, bcuID int64) ([]BCUTransfer, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Transfer(ctx context.Context, id string, req TransferRequest) (*Response, error)
	Retire(ctx context.Context, id string, req RetireRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
}

type CreateRequest struct {
	FacilityID     *string   `json:"facility_id,omitempty"`
	SerialNumber   string    `json:"serial_number"`
	QuantityTCO2e  float64   `json:"quantity_tco2e"`
	OwnerName      string    `json:"owner_name"`
	OwnerAccountID string    `json:"owner_account_id"`
	IssuanceDate   time.Time `json:"issuance_date"`
	Notes          *string   `json:"notes,omitempty"`
}

type TransferRequest struct {
	OwnerName      string    `json:"owner_name"`
	OwnerAccountID string    `json:"owner_account_id"`
	TransferDate   time.Time `json:"transfer_date"`
	Notes          *string   `json:"notes,omitempty"`
}

type RetireRequest struct {
	RetirementDate        time.Time `json:"retirement_date"`
	RetirementBeneficiary string    `json:"retirement_beneficiary"`
	Notes                 *string   `json:"notes,omitempty"`
}

type TransferResponse struct {
	ID                 string    `json:"id"`
	FromOwnerName      string    `json:"from_owner_name"`
	FromOwnerAccountID string    `json:"from_owner_account_id"`
	ToOwnerName        string    `json:"to_owner_name"`
	ToOwnerAccountID   string    `json:"to_owner_account_id"`
	TransferDate       time.Time `json:"transfer_date"`
	Notes              *string   `json:"notes,omitempty"`
}

type Response struct {
	ID                    string             `json:"id"`
	FacilityID            *string            `json:"facility_id,omitempty"`
	SerialNumber          string             `json:"serial_number"`
	Status                Status             `json:"status"`
	QuantityTCO2e         float64            `json:"quantity_tco2e"`
	OwnerName             string             `json:"owner_name"`
	OwnerAccountID        string             `json:"owner_account_id"`
	IssuanceDate          time.Time          `json:"issuance_date"`
	RetirementDate        *time.Time         `json:"retirement_date,omitempty"`
	RetirementBeneficiary *string            `json:"retirement_beneficiary,omitempty"`
	Notes                 *string            `json:"notes,omitempty"`
	Transfers             []TransferResponse `json:"transfers"`
	Version               int64              `json:"version"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidSerial          = errors.New("invalid_serial_number")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidOwner           = errors.New("invalid_owner")
	ErrInvalidBeneficiary     = errors.New("invalid_retirement_beneficiary")
	ErrInvalidDate            = errors.New("invalid_date")
	ErrSameOwner              = errors.New("transfer_to_current_owner")
	ErrDuplicateSerial        = errors.New("duplicate_serial_number")
	ErrNotFound               = errors.New("bcu_not_found")
	ErrFacilityNotFound       = errors.New("facility_not_found")
	ErrConcurrentModification = lifecycle.ErrConcurrentModification
)
