package repository

import (
	"context"
	"time"

	"github.com/railzwaylabs/biochar/internal/recalc/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, t *domain.RecalculationTask) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO recalculation_tasks (id, monitoring_period_id, reason, status, attempts, enqueued_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.MonitoringPeriodID,
		t.Reason,
		t.Status,
		t.Attempts,
		t.EnqueuedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.RecalculationTask, error) {
	var t domain.RecalculationTask
	err := db.WithContext(ctx).Raw(`SELECT * FROM recalculation_tasks WHERE id = ?`, id).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == "" {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) MarkRunning(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE recalculation_tasks SET status = ?, attempts = attempts + 1, started_at = ? WHERE id = ?`,
		string(domain.TaskRunning),
		at,
		id,
	).Error
}

func (r *repo) MarkFinished(ctx context.Context, db *gorm.DB, id string, status domain.TaskStatus, errText *string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE recalculation_tasks SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status),
		errText,
		at,
		id,
	).Error
}
