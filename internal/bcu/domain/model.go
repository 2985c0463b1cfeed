package domain

import "time"

type Status string

const (
	StatusIssued      Status = "issued"
	StatusTransferred Status = "transferred"
	StatusRetired     Status = "retired"
)

const Entity = "bcu"

// BCU is a legacy biochar carbon unit. Retired is terminal.
type BCU struct {
	ID                    int64     `gorm:"primaryKey;autoIncrement:false"`
	FacilityID            *int64    `gorm:"index"`
	SerialNumber          string    `gorm:"not null;uniqueIndex"`
	Status                string    `gorm:"not null;index"`
	QuantityTCO2e         float64   `gorm:"column:quantity_tco2e;not null"`
	OwnerName             string    `gorm:"not null"`
	OwnerAccountID        string    `gorm:"not null"`
	IssuanceDate          time.Time `gorm:"not null"`
	RetirementDate        *time.Time
	RetirementBeneficiary *string
	Notes                 *string
	Version               int64     `gorm:"not null;default:1"`
	CreatedAt             time.Time `gorm:"not null"`
	UpdatedAt             time.Time `gorm:"not null"`
}

func (BCU) TableName() string { return "bcus" }

// BCUTransfer is an append-only record of one change of ownership.
type BCUTransfer struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement:false"`
	BCUID              int64     `gorm:"column:bcu_id;not null;index"`
	FromOwnerName      string    `gorm:"not null"`
	FromOwnerAccountID string    `gorm:"not null"`
	ToOwnerName        string    `gorm:"not null"`
	ToOwnerAccountID   string    `gorm:"not null"`
	TransferDate       time.Time `gorm:"not null"`
	Notes              *string
	CreatedAt          time.Time `gorm:"not null"`
}

func (BCUTransfer) TableName() string { return "bcu_transfers" }
