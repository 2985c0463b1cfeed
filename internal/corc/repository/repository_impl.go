package repository

import (
	"context"
	"errors"

	"github.com/railzwaylabs/biochar/internal/corc/domain"
	"github.com/railzwaylabs/biochar/internal/lifecycle"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.CORCIssuance) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO corc_issuances (id, facility_id, monitoring_period_id, serial_number, serial_year, serial_seq, status,
		 net_corcs_tco2e, c_stored_tco2e, c_baseline_tco2e, c_loss_tco2e, e_project_tco2e, e_leakage_tco2e,
		 persistence_fraction, methodology_version, breakdown, owner_name, owner_account_id, notes, version,
		 created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.FacilityID,
		c.MonitoringPeriodID,
		c.SerialNumber,
		c.SerialYear,
		c.SerialSeq,
		c.Status,
		c.NetCORCsTCO2e,
		c.CStoredTCO2e,
		c.CBaselineTCO2e,
		c.CLossTCO2e,
		c.EProjectTCO2e,
		c.ELeakageTCO2e,
		c.PersistenceFraction,
		c.MethodologyVersion,
		c.Breakdown,
		c.OwnerName,
		c.OwnerAccountID,
		c.Notes,
		c.Version,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.CORCIssuance, error) {
	var c domain.CORCIssuance
	err := db.WithContext(ctx).Raw(`SELECT * FROM corc_issuances WHERE id = ?`, id).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.CORCIssuance, error) {
	var c domain.CORCIssuance
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) FindByMonitoringPeriod(ctx context.Context, db *gorm.DB, periodID int64) (*domain.CORCIssuance, error) {
	var c domain.CORCIssuance
	err := db.WithContext(ctx).Raw(`SELECT * FROM corc_issuances WHERE monitoring_period_id = ?`, periodID).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.CORCIssuance, error) {
	query := db.WithContext(ctx).Model(&domain.CORCIssuance{})
	if filter.FacilityID != nil {
		query = query.Where("facility_id = ?", *filter.FacilityID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}

	var items []domain.CORCIssuance
	if err := query.Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) NextSerialSeq(ctx context.Context, db *gorm.DB, facilityID int64, year int) (int, error) {
	var last int
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(serial_seq), 0) FROM corc_issuances WHERE facility_id = ? AND serial_year = ?`,
		facilityID,
		year,
	).Scan(&last).Error
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

func (r *repo) UpdateVersioned(ctx context.Context, db *gorm.DB, id, expectedVersion int64, updates map[string]any) error {
	return lifecycle.UpdateVersioned(ctx, db, domain.CORCIssuance{}.TableName(), id, expectedVersion, updates)
}

// DeleteVersioned removes the certificate and its links.
func (r *repo) DeleteVersioned(ctx context.Context, db *gorm.DB, id, expectedVersion int64) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM corc_batches WHERE corc_id = ?`, id).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(`DELETE FROM corc_sequestration_events WHERE corc_id = ?`, id).Error; err != nil {
		return err
	}
	return lifecycle.DeleteVersioned(ctx, db, domain.CORCIssuance{}.TableName(), id, expectedVersion)
}

func (r *repo) InsertBatchLinks(ctx context.Context, db *gorm.DB, corcID int64, batchIDs []int64) error {
	if len(batchIDs) == 0 {
		return nil
	}
	rows := make([]domain.CORCBatch, 0, len(batchIDs))
	for _, id := range batchIDs {
		rows = append(rows, domain.CORCBatch{CORCID: corcID, BatchID: id})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) InsertEventLinks(ctx context.Context, db *gorm.DB, corcID int64, eventIDs []int64) error {
	if len(eventIDs) == 0 {
		return nil
	}
	rows := make([]domain.CORCSequestrationEvent, 0, len(eventIDs))
	for _, id := range eventIDs {
		rows = append(rows, domain.CORCSequestrationEvent{CORCID: corcID, SequestrationEventID: id})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) ListBatchLinks(ctx context.Context, db *gorm.DB, corcID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(`SELECT batch_id FROM corc_batches WHERE corc_id = ? ORDER BY batch_id`, corcID).Scan(&ids).Error
	return ids, err
}

func (r *repo) ListEventLinks(ctx context.Context, db *gorm.DB, corcID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT sequestration_event_id FROM corc_sequestration_events WHERE corc_id = ? ORDER BY sequestration_event_id`,
		corcID,
	).Scan(&ids).Error
	return ids, err
}
