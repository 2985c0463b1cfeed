package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, test *LabTest) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*LabTest, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	// FindLatestForBatch returns the authoritative test of a batch, or nil when none remain.
	FindLatestForBatch(ctx context.Context, db *gorm.DB, batchID int64) (*LabTest, error)
	ListByBatch(ctx context.Context, db *gorm.DB, batchID int64) ([]LabTest, error)
}

type Service interface {
	RecordLabTest(ctx context.Context, req RecordRequest) (*Response, error)
	DeleteLabTest(ctx context.Context, id string) error
	ListByBatch(ctx context.Context, batchID string) ([]Response, error)
}

// ChangeNotifier is told which batch changed quality so dependent monitoring periods can be refreshed.
type ChangeNotifier interface {
	BatchQualityChanged(ctx context.Context, facilityID int64, productionDate time.Time)
}

type RecordRequest struct {
	BatchID                string    `json:"batch_id"`
	TestDate               time.Time `json:"test_date"`
	LabName                *string   `json:"lab_name,omitempty"`
	TotalCarbonPercent     float64   `json:"total_carbon_percent"`
	InorganicCarbonPercent float64   `json:"inorganic_carbon_percent"`
	HydrogenPercent        float64   `json:"hydrogen_percent"`
}

type Response struct {
	ID                     string    `json:"id"`
	BatchID                string    `json:"batch_id"`
	TestDate               time.Time `json:"test_date"`
	LabName                *string   `json:"lab_name,omitempty"`
	TotalCarbonPercent     float64   `json:"total_carbon_percent"`
	InorganicCarbonPercent float64   `json:"inorganic_carbon_percent"`
	HydrogenPercent        float64   `json:"hydrogen_percent"`
	OrganicCarbonPercent   float64   `json:"organic_carbon_percent"`
	HCorgRatio             *float64  `json:"hcorg_ratio"`
	PassesQualityThreshold bool      `json:"passes_quality_threshold"`
	Authoritative          bool      `json:"authoritative"`
	CreatedAt              time.Time `json:"created_at"`
}

var (
	ErrPercentOutOfRange = errors.New("percent_out_of_range")
	ErrUndefinedHCorg    = errors.New("undefined_hcorg_ratio")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidBatch      = errors.New("invalid_batch")
	ErrInvalidTestDate   = errors.New("invalid_test_date")
	ErrBatchNotFound     = errors.New("batch_not_found")
	ErrNotFound          = errors.New("lab_test_not_found")
)
