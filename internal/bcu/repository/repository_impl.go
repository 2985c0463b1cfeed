package repository

import (
	"context"
	"errors"

	"github.com/railzwaylabs/biochar/internal/bcu/domain"
	"github.com/railzwaylabs/biochar/internal/lifecycle"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, b *domain.BCU) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bcus (id, facility_id, serial_number, status, quantity_tco2e, owner_name, owner_account_id,
		 issuance_date, notes, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.FacilityID,
		b.SerialNumber,
		b.Status,
		b.QuantityTCO2e,
		b.OwnerName,
		b.OwnerAccountID,
		b.IssuanceDate,
		b.Notes,
		b.Version,
		b.CreatedAt,
		b.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.BCU, error) {
	var b domain.BCU
	err := db.WithContext(ctx).Raw(`SELECT * FROM bcus WHERE id = ?`, id).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.BCU, error) {
	var b domain.BCU
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) FindBySerial(ctx context.Context, db *gorm.DB, serial string) (*domain.BCU, error) {
	var b domain.BCU
	err := db.WithContext(ctx).Raw(`SELECT * FROM bcus WHERE serial_number = ?`, serial).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) UpdateVersioned(ctx context.Context, db *gorm.DB, id, expectedVersion int64, updates map[string]any) error {
	return lifecycle.UpdateVersioned(ctx, db, domain.BCU{}.TableName(), id, expectedVersion, updates)
}

func (r *repo) DeleteVersioned(ctx context.Context, db *gorm.DB, id, expectedVersion int64) error {
	return lifecycle.DeleteVersioned(ctx, db, domain.BCU{}.TableName(), id, expectedVersion)
}

func (r *repo) InsertTransfer(ctx context.Context, db *gorm.DB, t *domain.BCUTransfer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bcu_transfers (id, bcu_id, from_owner_name, from_owner_account_id, to_owner_name,
		 to_owner_account_id, transfer_date, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.BCUID,
		t.FromOwnerName,
		t.FromOwnerAccountID,
		t.ToOwnerName,
		t.ToOwnerAccountID,
		t.TransferDate,
		t.Notes,
		t.CreatedAt,
	).Error
}

func (r *repo) ListTransfers(ctx context.Context, db *gorm.DB, bcuID int64) ([]domain.BCUTransfer, error) {
	var items []domain.BCUTransfer
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM bcu_transfers WHERE bcu_id = ? ORDER BY transfer_date ASC, id ASC`,
		bcuID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
