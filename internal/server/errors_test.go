package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	bcudomain "github.com/railzwaylabs/biochar/internal/bcu/domain"
	calculationdomain "github.com/railzwaylabs/biochar/internal/calculation/domain"
	corcdomain "github.com/railzwaylabs/biochar/internal/corc/domain"
	"github.com/railzwaylabs/biochar/internal/lifecycle"
	recalcdomain "github.com/railzwaylabs/biochar/internal/recalc/domain"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
	"github.com/stretchr/testify/assert"
)

func TestErrorBodyStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("load: %w", corcdomain.ErrNotFound), http.StatusNotFound, "corc_not_found"},
		{"bad input", recordsdomain.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
		{"calculation locked", calculationdomain.ErrCalculationInProgress, http.StatusConflict, "calculation_in_progress"},
		{"stale version", lifecycle.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
		{"one corc per period", corcdomain.ErrAlreadyIssued, http.StatusConflict, "corc_exists_for_period"},
		{"unknown baseline", calculationdomain.ErrUnknownBaseline, http.StatusUnprocessableEntity, "unknown_baseline_scenario"},
		{"same owner", bcudomain.ErrSameOwner, http.StatusUnprocessableEntity, "transfer_to_current_owner"},
		{"queue full", recalcdomain.ErrQueueFull, http.StatusServiceUnavailable, "recalculation_queue_full"},
		{"conflict", &lifecycle.StatusConflictError{Entity: "bcu", Action: "transfer", Current: "retired"}, http.StatusConflict, "status_conflict"},
		{"field", newValidationError("start_date", "required", "start_date is required"), http.StatusBadRequest, "required"},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := errorBody(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body["code"])
		})
	}
}

func TestErrorBodyHidesInternalDetail(t *testing.T) {
	_, body := errorBody(errors.New("pq: connection refused"))
	assert.NotContains(t, body["message"], "pq")
}
