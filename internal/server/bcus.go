package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// CreateBCU handles POST /api/bcus
func (s *Server) CreateBCU(c *gin.Context) {
	var req createBCURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bcuSvc.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// GetBCU handles GET /api/bcus/:id
func (s *Server) GetBCU(c *gin.Context) {
	resp, err := s.bcuSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// TransferBCU handles POST /api/bcus/:id/transfer
func (s *Server) TransferBCU(c *gin.Context) {
	var req transferBCURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bcuSvc.Transfer(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// RetireBCU handles POST /api/bcus/:id/retire
func (s *Server) RetireBCU(c *gin.Context) {
	var req retireBCURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bcuSvc.Retire(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// DeleteBCU handles DELETE /api/bcus/:id
func (s *Server) DeleteBCU(c *gin.Context) {
	if err := s.bcuSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	respondNoContent(c)
}
