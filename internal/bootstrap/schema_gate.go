// Package bootstrap refuses to serve against a database that was not migrated for this build.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/railzwaylabs/biochar/internal/migration"
	"gorm.io/gorm"
)

const (
	StatusInitializing = "initializing"
	StatusActive       = "active"
)

var (
	ErrSchemaStateNotFound    = errors.New("schema_state_not_found")
	ErrSchemaInactive         = errors.New("schema_inactive")
	ErrSchemaVersionMismatch  = errors.New("schema_version_mismatch")
	ErrSchemaChecksumMismatch = errors.New("schema_checksum_mismatch")
)

// SchemaState is the single row the migrate command writes once the schema is in place.
type SchemaState struct {
	ID                 bool       `gorm:"column:id;primaryKey"`
	Status             string     `gorm:"column:status"`
	SchemaVersion      string     `gorm:"column:schema_version"`
	Checksum           *string    `gorm:"column:checksum"`
	MethodologyVersion *string    `gorm:"column:methodology_version"`
	ActivatedAt        *time.Time `gorm:"column:activated_at"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
}

func (SchemaState) TableName() string { return "system_bootstrap_state" }

type SchemaGate interface {
	MustBeActive(ctx context.Context) error
}

type schemaGate struct {
	db     *gorm.DB
	schema migration.Schema
}

func NewSchemaGate(db *gorm.DB) (SchemaGate, error) {
	if db == nil {
		return nil, errors.New("schema gate requires database handle")
	}
	schema, err := migration.EmbeddedSchema()
	if err != nil {
		return nil, err
	}
	return &schemaGate{db: db, schema: schema}, nil
}

// MustBeActive fails unless the database was migrated to exactly the embedded schema. A state row
// without a checksum is accepted on version alone.
func (g *schemaGate) MustBeActive(ctx context.Context) error {
	state, err := loadSchemaState(ctx, g.db)
	if err != nil {
		return err
	}

	if !strings.EqualFold(strings.TrimSpace(state.Status), StatusActive) {
		return fmt.Errorf("%w: status=%s", ErrSchemaInactive, state.Status)
	}
	if want := g.schema.VersionString(); strings.TrimSpace(state.SchemaVersion) != want {
		return fmt.Errorf("%w: database=%s binary=%s", ErrSchemaVersionMismatch, state.SchemaVersion, want)
	}
	if state.Checksum != nil {
		if got := strings.TrimSpace(*state.Checksum); got != "" && got != g.schema.Checksum {
			return fmt.Errorf("%w: database=%s binary=%s", ErrSchemaChecksumMismatch, got, g.schema.Checksum)
		}
	}
	return nil
}

func loadSchemaState(ctx context.Context, db *gorm.DB) (*SchemaState, error) {
	var state SchemaState
	err := db.WithContext(ctx).Where("id = ?", true).Take(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSchemaStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load schema state: %w", err)
	}
	return &state, nil
}
