package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is an append-only record of a certificate lifecycle action.
type AuditLog struct {
	ID         int64  `gorm:"primaryKey;autoIncrement:false"`
	Action     string `gorm:"not null;index"`
	TargetType string `gorm:"not null"`
	TargetID   int64  `gorm:"not null;index"`
	FromStatus *string
	ToStatus   *string
	Actor      *string
	Metadata   datatypes.JSONMap
	CreatedAt  time.Time `gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type Entry struct {
	Action     string
	TargetType string
	TargetID   int64
	FromStatus string
	ToStatus   string
	Actor      string
	Metadata   map[string]any
}

// Recorder writes entries inside the caller's transaction so the audit trail commits or rolls back
// with the transition it describes.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

type ListFilter struct {
	StartDate  time.Time
	EndDate    time.Time
	TargetType string
	TargetID   *int64
	Actions    []string
}
