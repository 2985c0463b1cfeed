package domain

import (
	"testing"

	"github.com/railzwaylabs/biochar/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanIssue(t *testing.T) {
	cases := []struct {
		name    string
		status  Status
		net     float64
		wantErr bool
	}{
		{"draft positive", StatusDraft, 5200, false},
		{"draft zero", StatusDraft, 0, true},
		{"draft negative", StatusDraft, -3, true},
		{"already issued", StatusIssued, 5200, true},
		{"retired", StatusRetired, 5200, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CanIssue(&CORCIssuance{Status: string(tc.status), NetCORCsTCO2e: tc.net})
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			var conflict *lifecycle.StatusConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, string(tc.status), conflict.Current)
			assert.Equal(t, ActionIssue, conflict.Action)
		})
	}
}

func TestCanRetireOnlyIssued(t *testing.T) {
	assert.NoError(t, CanRetire(&CORCIssuance{Status: string(StatusIssued)}))
	assert.Error(t, CanRetire(&CORCIssuance{Status: string(StatusDraft)}))
	assert.Error(t, CanRetire(&CORCIssuance{Status: string(StatusRetired)}))
}

func TestCanEditOnlyDraft(t *testing.T) {
	assert.NoError(t, CanEdit(&CORCIssuance{Status: string(StatusDraft)}, ActionUpdate))
	for _, status := range []Status{StatusIssued, StatusRetired} {
		var conflict *lifecycle.StatusConflictError
		require.ErrorAs(t, CanEdit(&CORCIssuance{Status: string(status)}, ActionDelete), &conflict)
		assert.Equal(t, ActionDelete, conflict.Action)
	}
}

func TestNetZeroConflictMessage(t *testing.T) {
	err := CanIssue(&CORCIssuance{Status: string(StatusDraft)})
	assert.EqualError(t, err, "cannot issue corc in status draft: net removal must be greater than zero")
}
