package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// RecalculationTask is the durable record of one background recomputation of a monitoring period.
type RecalculationTask struct {
	ID                 string `gorm:"primaryKey;size:26"`
	MonitoringPeriodID int64  `gorm:"not null;index"`
	Reason             string `gorm:"not null"`
	Status             string `gorm:"not null;index"`
	Attempts           int    `gorm:"not null;default:0"`
	Error              *string
	EnqueuedAt         time.Time `gorm:"not null"`
	StartedAt          *time.Time
	FinishedAt         *time.Time
}

func (RecalculationTask) TableName() string { return "recalculation_tasks" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, t *RecalculationTask) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*RecalculationTask, error)
	MarkRunning(ctx context.Context, db *gorm.DB, id string, at time.Time) error
	MarkFinished(ctx context.Context, db *gorm.DB, id string, status TaskStatus, errText *string, at time.Time) error
}

type TaskResponse struct {
	ID                 string     `json:"id"`
	MonitoringPeriodID string     `json:"monitoring_period_id"`
	Reason             string     `json:"reason"`
	Status             TaskStatus `json:"status"`
	Attempts           int        `json:"attempts"`
	Error              *string    `json:"error,omitempty"`
	EnqueuedAt         time.Time  `json:"enqueued_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
}

var (
	ErrQueueFull    = errors.New("recalculation_queue_full")
	ErrQueueClosed  = errors.New("recalculation_queue_closed")
	ErrTaskNotFound = errors.New("recalculation_task_not_found")
)
