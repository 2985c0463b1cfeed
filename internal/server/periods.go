package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	calculationdomain "github.com/railzwaylabs/biochar/internal/calculation/domain"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	"github.com/railzwaylabs/biochar/internal/recalc"
)

type calculateRequest struct {
	SaveResult           bool     `json:"save_result"`
	MeanSoilTempOverride *float64 `json:"mean_soil_temp_override"`
	ReturnFullBreakdown  bool     `json:"return_full_breakdown"`
}

// CreateMonitoringPeriod handles POST /api/monitoring-periods
func (s *Server) CreateMonitoringPeriod(c *gin.Context) {
	var req createPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.periodSvc.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// GetMonitoringPeriod handles GET /api/monitoring-periods/:id
func (s *Server) GetMonitoringPeriod(c *gin.Context) {
	resp, err := s.periodSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// ListFacilityMonitoringPeriods handles GET /api/facilities/:id/monitoring-periods
func (s *Server) ListFacilityMonitoringPeriods(c *gin.Context) {
	resp, err := s.periodSvc.ListByFacility(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// CalculateMonitoringPeriod handles POST /api/monitoring-periods/:id/calculate. An empty body runs
// a preview without saving.
func (s *Server) CalculateMonitoringPeriod(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.calculationSvc.Calculate(c.Request.Context(), calculationdomain.CalculateRequest{
		MonitoringPeriodID:   strings.TrimSpace(c.Param("id")),
		SaveResult:           req.SaveResult,
		MeanSoilTempOverride: req.MeanSoilTempOverride,
		ReturnFullBreakdown:  req.ReturnFullBreakdown,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// RecalculateMonitoringPeriod handles POST /api/monitoring-periods/:id/recalculate. The work runs on
// the recalculation queue; the response carries the task to poll.
func (s *Server) RecalculateMonitoringPeriod(c *gin.Context) {
	if s.queue == nil {
		AbortWithError(c, ErrUnavailable)
		return
	}

	period, err := s.periodSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if period.CalculatedAt == nil {
		AbortWithError(c, calculationdomain.ErrNotSaved)
		return
	}
	id, err := snowflake.ParseString(period.ID)
	if err != nil {
		AbortWithError(c, perioddomain.ErrInvalidID)
		return
	}

	task, err := s.queue.Enqueue(c.Request.Context(), recalc.Job{
		MonitoringPeriodID: id.Int64(),
		Reason:             recalc.ReasonRequested,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.queue.Get(c.Request.Context(), task.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": resp})
}

// GetRecalculationTask handles GET /api/recalculation-tasks/:id
func (s *Server) GetRecalculationTask(c *gin.Context) {
	if s.queue == nil {
		AbortWithError(c, ErrUnavailable)
		return
	}

	resp, err := s.queue.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}
