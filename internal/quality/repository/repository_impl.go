package repository

import (
	"context"

	"github.com/railzwaylabs/biochar/internal/quality/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, test *domain.LabTest) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO lab_tests (id, batch_id, test_date, lab_name, total_carbon_percent, inorganic_carbon_percent,
		 hydrogen_percent, organic_carbon_percent, hcorg_ratio, passes_quality_threshold, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		test.ID,
		test.BatchID,
		test.TestDate,
		test.LabName,
		test.TotalCarbonPercent,
		test.InorganicCarbonPercent,
		test.HydrogenPercent,
		test.OrganicCarbonPercent,
		test.HCorgRatio,
		test.PassesQualityThreshold,
		test.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.LabTest, error) {
	var test domain.LabTest
	err := db.WithContext(ctx).Raw(`SELECT * FROM lab_tests WHERE id = ?`, id).Scan(&test).Error
	if err != nil {
		return nil, err
	}
	if test.ID == 0 {
		return nil, nil
	}
	return &test, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM lab_tests WHERE id = ?`, id).Error
}

func (r *repo) FindLatestForBatch(ctx context.Context, db *gorm.DB, batchID int64) (*domain.LabTest, error) {
	var test domain.LabTest
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM lab_tests WHERE batch_id = ? ORDER BY test_date DESC, id DESC LIMIT 1`,
		batchID,
	).Scan(&test).Error
	if err != nil {
		return nil, err
	}
	if test.ID == 0 {
		return nil, nil
	}
	return &test, nil
}

func (r *repo) ListByBatch(ctx context.Context, db *gorm.DB, batchID int64) ([]domain.LabTest, error) {
	var items []domain.LabTest
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM lab_tests WHERE batch_id = ? ORDER BY test_date DESC, id DESC`,
		batchID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
