package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	InsertFacility(ctx context.Context, db *gorm.DB, f *Facility) error
	FindFacility(ctx context.Context, db *gorm.DB, id int64) (*Facility, error)
	FindFacilityForUpdate(ctx context.Context, db *gorm.DB, id int64) (*Facility, error)

	InsertBatch(ctx context.Context, db *gorm.DB, b *ProductionBatch) error
	FindBatch(ctx context.Context, db *gorm.DB, id int64) (*ProductionBatch, error)
	FindBatchForUpdate(ctx context.Context, db *gorm.DB, id int64) (*ProductionBatch, error)
	UpdateBatchQuality(ctx context.Context, db *gorm.DB, b *ProductionBatch) error

	InsertDelivery(ctx context.Context, db *gorm.DB, d *FeedstockDelivery) error
	FindDeliveryForUpdate(ctx context.Context, db *gorm.DB, id int64) (*FeedstockDelivery, error)
	InsertAllocation(ctx context.Context, db *gorm.DB, a *FeedstockAllocation) error
	SumAllocatedPercentage(ctx context.Context, db *gorm.DB, deliveryID int64) (float64, error)

	InsertEnergyUsage(ctx context.Context, db *gorm.DB, u *EnergyUsage) error
	InsertSequestrationEvent(ctx context.Context, db *gorm.DB, e *SequestrationEvent) error
	InsertLeakageAssessment(ctx context.Context, db *gorm.DB, a *LeakageAssessment) error

	// Period loaders. Date bounds are inclusive.
	ListCompleteBatches(ctx context.Context, db *gorm.DB, facilityID int64, start, end time.Time) ([]ProductionBatch, error)
	ListAllocationsByBatches(ctx context.Context, db *gorm.DB, batchIDs []int64) ([]FeedstockAllocation, error)
	ListEnergyUsages(ctx context.Context, db *gorm.DB, facilityID int64, batchIDs []int64, start, end time.Time) ([]EnergyUsage, error)
	ListSequestrationEvents(ctx context.Context, db *gorm.DB, facilityID int64, start, end time.Time) ([]SequestrationEvent, error)
	SumSequesteredByBatch(ctx context.Context, db *gorm.DB, batchIDs []int64, asOf time.Time) (map[int64]float64, error)
	FindLatestLeakageAssessment(ctx context.Context, db *gorm.DB, facilityID int64, asOf time.Time) (*LeakageAssessment, error)
}
