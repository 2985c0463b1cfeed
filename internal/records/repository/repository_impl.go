package repository

import (
	"context"
	"errors"
	"time"

	"github.com/railzwaylabs/biochar/internal/records/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertFacility(ctx context.Context, db *gorm.DB, f *domain.Facility) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO facilities (id, code, name, baseline_scenario, baseline_storage_tco2e, embodied_emissions_tco2e,
		 infrastructure_lifetime_years, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID,
		f.Code,
		f.Name,
		f.BaselineScenario,
		f.BaselineStorageTCO2e,
		f.EmbodiedEmissionsTCO2e,
		f.InfrastructureLifetimeYears,
		f.CreatedAt,
		f.UpdatedAt,
	).Error
}

func (r *repo) FindFacility(ctx context.Context, db *gorm.DB, id int64) (*domain.Facility, error) {
	var f domain.Facility
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, baseline_scenario, baseline_storage_tco2e, embodied_emissions_tco2e,
		 infrastructure_lifetime_years, created_at, updated_at
		 FROM facilities WHERE id = ?`,
		id,
	).Scan(&f).Error
	if err != nil {
		return nil, err
	}
	if f.ID == 0 {
		return nil, nil
	}
	return &f, nil
}

func (r *repo) FindFacilityForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.Facility, error) {
	var f domain.Facility
	if err := takeForUpdate(ctx, db, &f, id); err != nil {
		return nil, err
	}
	if f.ID == 0 {
		return nil, nil
	}
	return &f, nil
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, b *domain.ProductionBatch) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO production_batches (id, facility_id, batch_code, production_date, status, feedstock_input_tonnes,
		 biochar_output_tonnes, dry_mass_tonnes, peak_temperature_c, residence_time_minutes, stack_ch4_kg, stack_n2o_kg,
		 quality_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.FacilityID,
		b.BatchCode,
		b.ProductionDate,
		b.Status,
		b.FeedstockInputTonnes,
		b.BiocharOutputTonnes,
		b.DryMassTonnes,
		b.PeakTemperatureC,
		b.ResidenceTimeMinutes,
		b.StackCH4Kg,
		b.StackN2OKg,
		b.QualityStatus,
		b.CreatedAt,
		b.UpdatedAt,
	).Error
}

func (r *repo) FindBatch(ctx context.Context, db *gorm.DB, id int64) (*domain.ProductionBatch, error) {
	var b domain.ProductionBatch
	err := db.WithContext(ctx).Raw(`SELECT * FROM production_batches WHERE id = ?`, id).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) FindBatchForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.ProductionBatch, error) {
	var b domain.ProductionBatch
	if err := takeForUpdate(ctx, db, &b, id); err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) UpdateBatchQuality(ctx context.Context, db *gorm.DB, b *domain.ProductionBatch) error {
	if b == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE production_batches
		 SET organic_carbon_percent = ?, hydrogen_percent = ?, hcorg_ratio = ?, quality_status = ?, quality_test_id = ?, updated_at = ?
		 WHERE id = ?`,
		b.OrganicCarbonPercent,
		b.HydrogenPercent,
		b.HCorgRatio,
		b.QualityStatus,
		b.QualityTestID,
		b.UpdatedAt,
		b.ID,
	).Error
}

func (r *repo) InsertDelivery(ctx context.Context, db *gorm.DB, d *domain.FeedstockDelivery) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO feedstock_deliveries (id, facility_id, delivery_date, feedstock_type, mass_tonnes, transport_distance_km, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.FacilityID,
		d.DeliveryDate,
		d.FeedstockType,
		d.MassTonnes,
		d.TransportDistanceKm,
		d.CreatedAt,
	).Error
}

func (r *repo) FindDeliveryForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.FeedstockDelivery, error) {
	var d domain.FeedstockDelivery
	if err := takeForUpdate(ctx, db, &d, id); err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *repo) InsertAllocation(ctx context.Context, db *gorm.DB, a *domain.FeedstockAllocation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO feedstock_allocations (id, delivery_id, batch_id, percentage, weight_used_tonnes, distance_km, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.DeliveryID,
		a.BatchID,
		a.Percentage,
		a.WeightUsedTonnes,
		a.DistanceKm,
		a.CreatedAt,
	).Error
}

func (r *repo) SumAllocatedPercentage(ctx context.Context, db *gorm.DB, deliveryID int64) (float64, error) {
	var total float64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(percentage), 0) FROM feedstock_allocations WHERE delivery_id = ?`,
		deliveryID,
	).Scan(&total).Error
	return total, err
}

func (r *repo) InsertEnergyUsage(ctx context.Context, db *gorm.DB, u *domain.EnergyUsage) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO energy_usages (id, facility_id, batch_id, scope, energy_type, quantity, unit, period_start, period_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.FacilityID,
		u.BatchID,
		u.Scope,
		u.EnergyType,
		u.Quantity,
		u.Unit,
		u.PeriodStart,
		u.PeriodEnd,
		u.CreatedAt,
	).Error
}

func (r *repo) InsertSequestrationEvent(ctx context.Context, db *gorm.DB, e *domain.SequestrationEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sequestration_events (id, facility_id, batch_id, event_date, mass_tonnes, destination, method,
		 soil_temperature_c, transport_distance_km, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.FacilityID,
		e.BatchID,
		e.EventDate,
		e.MassTonnes,
		e.Destination,
		e.Method,
		e.SoilTemperatureC,
		e.TransportDistanceKm,
		e.CreatedAt,
	).Error
}

func (r *repo) InsertLeakageAssessment(ctx context.Context, db *gorm.DB, a *domain.LeakageAssessment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO leakage_assessments (id, facility_id, assessment_date, ecological_facility_tco2e, ecological_sourcing_tco2e,
		 market_afolu_tco2e, market_energy_material_tco2e, iluc_tco2e, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.FacilityID,
		a.AssessmentDate,
		a.EcologicalFacilityTCO2e,
		a.EcologicalSourcingTCO2e,
		a.MarketAFOLUTCO2e,
		a.MarketEnergyMaterialTCO2e,
		a.ILUCTCO2e,
		a.CreatedAt,
	).Error
}

func (r *repo) ListCompleteBatches(ctx context.Context, db *gorm.DB, facilityID int64, start, end time.Time) ([]domain.ProductionBatch, error) {
	var items []domain.ProductionBatch
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM production_batches
		 WHERE facility_id = ? AND status = ? AND production_date >= ? AND production_date < ?
		 ORDER BY production_date ASC, id ASC`,
		facilityID,
		string(domain.BatchStatusComplete),
		start,
		dayAfter(end),
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListAllocationsByBatches(ctx context.Context, db *gorm.DB, batchIDs []int64) ([]domain.FeedstockAllocation, error) {
	if len(batchIDs) == 0 {
		return nil, nil
	}
	var items []domain.FeedstockAllocation
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM feedstock_allocations WHERE batch_id IN ? ORDER BY id ASC`,
		batchIDs,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListEnergyUsages returns production-scope usage tied to one of batchIDs, plus facility-level
// production usage whose reporting window starts inside the period.
func (r *repo) ListEnergyUsages(ctx context.Context, db *gorm.DB, facilityID int64, batchIDs []int64, start, end time.Time) ([]domain.EnergyUsage, error) {
	var items []domain.EnergyUsage
	stmt := db.WithContext(ctx).
		Model(&domain.EnergyUsage{}).
		Where("facility_id = ? AND scope = ?", facilityID, string(domain.EnergyScopeProduction))

	unbatched := db.Where("batch_id IS NULL AND period_start >= ? AND period_start < ?", start, dayAfter(end))
	if len(batchIDs) > 0 {
		stmt = stmt.Where(unbatched.Or("batch_id IN ?", batchIDs))
	} else {
		stmt = stmt.Where(unbatched)
	}

	if err := stmt.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListSequestrationEvents(ctx context.Context, db *gorm.DB, facilityID int64, start, end time.Time) ([]domain.SequestrationEvent, error) {
	var items []domain.SequestrationEvent
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM sequestration_events
		 WHERE facility_id = ? AND event_date >= ? AND event_date < ?
		 ORDER BY event_date ASC, id ASC`,
		facilityID,
		start,
		dayAfter(end),
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SumSequesteredByBatch(ctx context.Context, db *gorm.DB, batchIDs []int64, asOf time.Time) (map[int64]float64, error) {
	out := make(map[int64]float64, len(batchIDs))
	if len(batchIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		BatchID int64
		Total   float64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT batch_id, SUM(mass_tonnes) AS total FROM sequestration_events
		 WHERE batch_id IN ? AND event_date < ?
		 GROUP BY batch_id`,
		batchIDs,
		dayAfter(asOf),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.BatchID] = row.Total
	}
	return out, nil
}

func (r *repo) FindLatestLeakageAssessment(ctx context.Context, db *gorm.DB, facilityID int64, asOf time.Time) (*domain.LeakageAssessment, error) {
	var a domain.LeakageAssessment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM leakage_assessments
		 WHERE facility_id = ? AND assessment_date < ?
		 ORDER BY assessment_date DESC, id DESC LIMIT 1`,
		facilityID,
		dayAfter(asOf),
	).Scan(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == 0 {
		return nil, nil
	}
	return &a, nil
}

func takeForUpdate(ctx context.Context, db *gorm.DB, dest any, id int64) error {
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func dayAfter(t time.Time) time.Time {
	return t.AddDate(0, 0, 1)
}
