package domain

import "github.com/railzwaylabs/biochar/internal/lifecycle"

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionIssue  = "issue"
	ActionRetire = "retire"
)

// CanEdit allows update and delete only on drafts.
func CanEdit(c *CORCIssuance, action string) error {
	return lifecycle.Require(Entity, action, c.Status, string(StatusDraft))
}

// CanIssue requires a draft with a positive net removal.
func CanIssue(c *CORCIssuance) error {
	if err := lifecycle.Require(Entity, ActionIssue, c.Status, string(StatusDraft)); err != nil {
		return err
	}
	if !(c.NetCORCsTCO2e > 0) {
		return &lifecycle.StatusConflictError{
			Entity:  Entity,
			Action:  ActionIssue,
			Current: c.Status,
			Reason:  "net removal must be greater than zero",
		}
	}
	return nil
}

func CanRetire(c *CORCIssuance) error {
	return lifecycle.Require(Entity, ActionRetire, c.Status, string(StatusIssued))
}
