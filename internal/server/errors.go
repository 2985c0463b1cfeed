package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/railzwaylabs/biochar/internal/audit/domain"
	bcudomain "github.com/railzwaylabs/biochar/internal/bcu/domain"
	calculationdomain "github.com/railzwaylabs/biochar/internal/calculation/domain"
	corcdomain "github.com/railzwaylabs/biochar/internal/corc/domain"
	"github.com/railzwaylabs/biochar/internal/lifecycle"
	"github.com/railzwaylabs/biochar/internal/methodology"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	qualitydomain "github.com/railzwaylabs/biochar/internal/quality/domain"
	recalcdomain "github.com/railzwaylabs/biochar/internal/recalc/domain"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
	"go.uber.org/zap"
)

// APIError is an error that already knows its HTTP status and wire code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string { return e.Message }

var (
	ErrInvalidRequest = &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request"}
	ErrNotFound       = &APIError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrInternal       = &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal error"}
	ErrUnavailable    = &APIError{Status: http.StatusServiceUnavailable, Code: "unavailable", Message: "service unavailable"}
)

type fieldError struct {
	Field   string
	Code    string
	Message string
}

func (e *fieldError) Error() string { return e.Message }

func newValidationError(field, code, message string) error {
	return &fieldError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return ErrInvalidRequest
}

type sentinel struct {
	err    error
	status int
}

// sentinels maps domain errors to statuses. The wire code is the sentinel's own text.
var sentinels = []sentinel{
	{calculationdomain.ErrPeriodNotFound, http.StatusNotFound},
	{calculationdomain.ErrFacilityNotFound, http.StatusNotFound},
	{perioddomain.ErrNotFound, http.StatusNotFound},
	{perioddomain.ErrFacilityNotFound, http.StatusNotFound},
	{recordsdomain.ErrFacilityNotFound, http.StatusNotFound},
	{recordsdomain.ErrBatchNotFound, http.StatusNotFound},
	{recordsdomain.ErrDeliveryNotFound, http.StatusNotFound},
	{qualitydomain.ErrNotFound, http.StatusNotFound},
	{qualitydomain.ErrBatchNotFound, http.StatusNotFound},
	{corcdomain.ErrNotFound, http.StatusNotFound},
	{corcdomain.ErrPeriodNotFound, http.StatusNotFound},
	{corcdomain.ErrFacilityNotFound, http.StatusNotFound},
	{bcudomain.ErrNotFound, http.StatusNotFound},
	{bcudomain.ErrFacilityNotFound, http.StatusNotFound},
	{recalcdomain.ErrTaskNotFound, http.StatusNotFound},

	{calculationdomain.ErrCalculationInProgress, http.StatusConflict},
	{calculationdomain.ErrNotSaved, http.StatusConflict},
	{lifecycle.ErrConcurrentModification, http.StatusConflict},
	{perioddomain.ErrOverlap, http.StatusConflict},
	{corcdomain.ErrAlreadyIssued, http.StatusConflict},
	{corcdomain.ErrPeriodNotCalculated, http.StatusConflict},
	{bcudomain.ErrDuplicateSerial, http.StatusConflict},
	{recordsdomain.ErrDuplicateFacilityCode, http.StatusConflict},

	{calculationdomain.ErrZeroDryMass, http.StatusUnprocessableEntity},
	{calculationdomain.ErrUnknownBaseline, http.StatusUnprocessableEntity},
	{calculationdomain.ErrUndefinedHCorg, http.StatusUnprocessableEntity},
	{qualitydomain.ErrUndefinedHCorg, http.StatusUnprocessableEntity},
	{recordsdomain.ErrOverAllocated, http.StatusUnprocessableEntity},
	{recordsdomain.ErrFacilityMismatch, http.StatusUnprocessableEntity},
	{qualitydomain.ErrPercentOutOfRange, http.StatusUnprocessableEntity},
	{bcudomain.ErrSameOwner, http.StatusUnprocessableEntity},

	{recalcdomain.ErrQueueFull, http.StatusServiceUnavailable},
	{recalcdomain.ErrQueueClosed, http.StatusServiceUnavailable},
}

// badRequest lists input errors reported as 400.
var badRequest = []error{
	calculationdomain.ErrInvalidID,
	perioddomain.ErrInvalidID,
	perioddomain.ErrInvalidRange,
	recordsdomain.ErrInvalidID,
	recordsdomain.ErrInvalidCode,
	recordsdomain.ErrInvalidName,
	recordsdomain.ErrInvalidDate,
	recordsdomain.ErrInvalidQuantity,
	recordsdomain.ErrInvalidStatus,
	recordsdomain.ErrInvalidScope,
	recordsdomain.ErrInvalidPercentage,
	recordsdomain.ErrInvalidBaselineStorage,
	qualitydomain.ErrInvalidID,
	qualitydomain.ErrInvalidBatch,
	qualitydomain.ErrInvalidTestDate,
	corcdomain.ErrInvalidID,
	corcdomain.ErrInvalidStatus,
	corcdomain.ErrInvalidOwner,
	corcdomain.ErrInvalidBeneficiary,
	corcdomain.ErrInvalidDate,
	bcudomain.ErrInvalidID,
	bcudomain.ErrInvalidSerial,
	bcudomain.ErrInvalidQuantity,
	bcudomain.ErrInvalidOwner,
	bcudomain.ErrInvalidBeneficiary,
	bcudomain.ErrInvalidDate,
	auditdomain.ErrInvalidFormat,
	auditdomain.ErrInvalidRange,
}

// AbortWithError writes err as a JSON error body and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		logger(c).Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func errorBody(err error) (int, gin.H) {
	var validation *calculationdomain.ValidationError
	if errors.As(err, &validation) {
		v := validation.Validation
		v.IsValid = false
		if v.Errors == nil {
			v.Errors = []calculationdomain.Issue{}
		}
		if v.Warnings == nil {
			v.Warnings = []methodology.Caveat{}
		}
		return http.StatusUnprocessableEntity, gin.H{
			"code":       "validation_failed",
			"message":    "calculation inputs are invalid",
			"validation": v,
		}
	}

	var conflict *lifecycle.StatusConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, gin.H{
			"code":           "status_conflict",
			"message":        conflict.Error(),
			"entity":         conflict.Entity,
			"action":         conflict.Action,
			"current_status": conflict.Current,
		}
	}

	var field *fieldError
	if errors.As(err, &field) {
		return http.StatusBadRequest, gin.H{"code": field.Code, "message": field.Message, "field": field.Field}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, gin.H{"code": apiErr.Code, "message": apiErr.Message}
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.status, gin.H{"code": s.err.Error(), "message": err.Error()}
		}
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest, gin.H{"code": target.Error(), "message": err.Error()}
		}
	}

	return ErrInternal.Status, gin.H{"code": ErrInternal.Code, "message": ErrInternal.Message}
}
