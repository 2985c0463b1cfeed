package domain

import (
	"testing"

	"github.com/railzwaylabs/biochar/internal/lifecycle"
	"github.com/stretchr/testify/assert"
)

func TestTransitionGuards(t *testing.T) {
	cases := []struct {
		status   Status
		transfer bool
		retire   bool
		delete   bool
	}{
		{StatusIssued, true, true, true},
		{StatusTransferred, true, true, false},
		{StatusRetired, false, false, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			b := &BCU{Status: string(tc.status)}
			check := func(allowed bool, err error) {
				if allowed {
					assert.NoError(t, err)
					return
				}
				var conflict *lifecycle.StatusConflictError
				if assert.ErrorAs(t, err, &conflict) {
					assert.Equal(t, string(tc.status), conflict.Current)
				}
			}
			check(tc.transfer, CanTransfer(b))
			check(tc.retire, CanRetire(b))
			check(tc.delete, CanDelete(b))
		})
	}
}
