package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
)

// CreateFacility handles POST /api/facilities
func (s *Server) CreateFacility(c *gin.Context) {
	var req recordsdomain.CreateFacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	req.BaselineScenario = strings.TrimSpace(req.BaselineScenario)

	resp, err := s.recordsSvc.CreateFacility(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// GetFacility handles GET /api/facilities/:id
func (s *Server) GetFacility(c *gin.Context) {
	resp, err := s.recordsSvc.GetFacility(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// CreateProductionBatch handles POST /api/production-batches
func (s *Server) CreateProductionBatch(c *gin.Context) {
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.BatchCode = strings.TrimSpace(req.BatchCode)

	resp, err := s.recordsSvc.CreateBatch(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// GetProductionBatch handles GET /api/production-batches/:id
func (s *Server) GetProductionBatch(c *gin.Context) {
	resp, err := s.recordsSvc.GetBatch(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// ListBatchLabTests handles GET /api/production-batches/:id/lab-tests
func (s *Server) ListBatchLabTests(c *gin.Context) {
	resp, err := s.qualitySvc.ListByBatch(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// RecordLabTest handles POST /api/lab-tests
func (s *Server) RecordLabTest(c *gin.Context) {
	var req recordLabTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.qualitySvc.RecordLabTest(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// DeleteLabTest handles DELETE /api/lab-tests/:id
func (s *Server) DeleteLabTest(c *gin.Context) {
	if err := s.qualitySvc.DeleteLabTest(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	respondNoContent(c)
}

// CreateFeedstockDelivery handles POST /api/feedstock-deliveries
func (s *Server) CreateFeedstockDelivery(c *gin.Context) {
	var req createDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.recordsSvc.CreateDelivery(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// CreateFeedstockAllocation handles POST /api/feedstock-allocations
func (s *Server) CreateFeedstockAllocation(c *gin.Context) {
	var req recordsdomain.CreateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.recordsSvc.CreateAllocation(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// CreateEnergyUsage handles POST /api/energy-usages
func (s *Server) CreateEnergyUsage(c *gin.Context) {
	var req createEnergyUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.recordsSvc.CreateEnergyUsage(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// CreateSequestrationEvent handles POST /api/sequestration-events
func (s *Server) CreateSequestrationEvent(c *gin.Context) {
	var req createSequestrationEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.recordsSvc.CreateSequestrationEvent(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// CreateLeakageAssessment handles POST /api/leakage-assessments
func (s *Server) CreateLeakageAssessment(c *gin.Context) {
	var req createLeakageAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.recordsSvc.CreateLeakageAssessment(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}
