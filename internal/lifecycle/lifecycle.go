// Package lifecycle holds the transition guard shared by certificate state machines.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrConcurrentModification = errors.New("concurrent_modification")

// StatusConflictError rejects a transition from the entity's current status.
type StatusConflictError struct {
	Entity  string
	Action  string
	Current string
	Reason  string
}

func (e *StatusConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s %s in status %s: %s", e.Action, e.Entity, e.Current, e.Reason)
	}
	return fmt.Sprintf("cannot %s %s in status %s", e.Action, e.Entity, e.Current)
}

// Require returns a *StatusConflictError unless current is one of allowed.
func Require(entity, action, current string, allowed ...string) error {
	for _, status := range allowed {
		if current == status {
			return nil
		}
	}
	return &StatusConflictError{Entity: entity, Action: action, Current: current}
}

// UpdateVersioned applies updates to row id only if its version still equals expected, and bumps the
// version. A lost race surfaces as ErrConcurrentModification.
func UpdateVersioned(ctx context.Context, db *gorm.DB, table string, id, expected int64, updates map[string]any) error {
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = expected + 1

	res := db.WithContext(ctx).
		Table(table).
		Where("id = ? AND version = ?", id, expected).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// DeleteVersioned removes row id only if its version still equals expected.
func DeleteVersioned(ctx context.Context, db *gorm.DB, table string, id, expected int64) error {
	res := db.WithContext(ctx).Exec("DELETE FROM "+table+" WHERE id = ? AND version = ?", id, expected)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	return nil
}
