package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/railzwaylabs/biochar/internal/lifecycle"
	"github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.MonitoringPeriod) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO monitoring_periods (id, facility_id, start_date, end_date, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.FacilityID,
		p.StartDate,
		p.EndDate,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.MonitoringPeriod, error) {
	var p domain.MonitoringPeriod
	err := db.WithContext(ctx).Raw(`SELECT * FROM monitoring_periods WHERE id = ?`, id).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.MonitoringPeriod, error) {
	var p domain.MonitoringPeriod
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) ListByFacility(ctx context.Context, db *gorm.DB, facilityID int64) ([]domain.MonitoringPeriod, error) {
	var items []domain.MonitoringPeriod
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM monitoring_periods WHERE facility_id = ? ORDER BY start_date ASC`,
		facilityID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindOverlapping(ctx context.Context, db *gorm.DB, facilityID int64, start, end time.Time) (*domain.MonitoringPeriod, error) {
	var p domain.MonitoringPeriod
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM monitoring_periods
		 WHERE facility_id = ? AND start_date <= ? AND end_date >= ?
		 ORDER BY start_date ASC LIMIT 1`,
		facilityID,
		end,
		start,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) SaveResult(ctx context.Context, db *gorm.DB, id, expectedVersion int64, result domain.Result) error {
	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return err
	}
	calculatedAt := result.CalculatedAt
	return lifecycle.UpdateVersioned(ctx, db, domain.MonitoringPeriod{}.TableName(), id, expectedVersion, map[string]any{
		"c_stored_tco2e":            result.CStoredTCO2e,
		"c_baseline_tco2e":          result.CBaselineTCO2e,
		"c_loss_tco2e":              result.CLossTCO2e,
		"persistence_fraction":      result.PersistenceFraction,
		"hcorg_ratio":               result.HCorgRatio,
		"e_project_tco2e":           result.EProjectTCO2e,
		"e_leakage_tco2e":           result.ELeakageTCO2e,
		"net_corcs_tco2e":           result.NetCORCsTCO2e,
		"dry_mass_tonnes":           result.DryMassTonnes,
		"mean_soil_temperature_c":   result.MeanSoilTemperatureC,
		"production_batch_count":    result.ProductionBatchCount,
		"sequestration_event_count": result.SequestrationEventCount,
		"methodology_version":       result.MethodologyVersion,
		"warnings":                  datatypes.JSON(warnings),
		"calculated_at":             calculatedAt,
		"updated_at":                calculatedAt,
	})
}

func (r *repo) MarkInputsChanged(ctx context.Context, db *gorm.DB, facilityID int64, from, to, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE monitoring_periods SET inputs_changed_at = ?
		 WHERE facility_id = ? AND start_date <= ? AND end_date >= ? AND calculated_at IS NOT NULL`,
		at,
		facilityID,
		to,
		from,
	).Error
}

func (r *repo) ListSavedCovering(ctx context.Context, db *gorm.DB, facilityID int64, date time.Time) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM monitoring_periods
		 WHERE facility_id = ? AND start_date <= ? AND end_date >= ? AND calculated_at IS NOT NULL
		 ORDER BY id ASC`,
		facilityID,
		date,
		date,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) ListStale(ctx context.Context, db *gorm.DB, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM monitoring_periods
		 WHERE calculated_at IS NOT NULL AND inputs_changed_at IS NOT NULL AND inputs_changed_at > calculated_at
		 ORDER BY inputs_changed_at ASC LIMIT ?`,
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
