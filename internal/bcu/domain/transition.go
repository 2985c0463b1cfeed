package domain

import "github.com/railzwaylabs/biochar/internal/lifecycle"

const (
	ActionCreate   = "create"
	ActionTransfer = "transfer"
	ActionRetire   = "retire"
	ActionDelete   = "delete"
)

// CanTransfer allows repeated transfers until retirement.
func CanTransfer(b *BCU) error {
	return lifecycle.Require(Entity, ActionTransfer, b.Status, string(StatusIssued), string(StatusTransferred))
}

func CanRetire(b *BCU) error {
	return lifecycle.Require(Entity, ActionRetire, b.Status, string(StatusIssued), string(StatusTransferred))
}

// CanDelete only permits removing a unit that never changed hands.
func CanDelete(b *BCU) error {
	return lifecycle.Require(Entity, ActionDelete, b.Status, string(StatusIssued))
}
