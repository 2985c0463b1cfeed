package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	corcdomain "github.com/railzwaylabs/biochar/internal/corc/domain"
)

// CreateCORC handles POST /api/corcs
func (s *Server) CreateCORC(c *gin.Context) {
	var req corcdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.corcSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// ListCORCs handles GET /api/corcs
func (s *Server) ListCORCs(c *gin.Context) {
	var query struct {
		FacilityID string `form:"facility_id"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.corcSvc.List(c.Request.Context(), corcdomain.ListRequest{
		FacilityID: strings.TrimSpace(query.FacilityID),
		Status:     strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// GetCORC handles GET /api/corcs/:id
func (s *Server) GetCORC(c *gin.Context) {
	resp, err := s.corcSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// UpdateCORC handles PATCH /api/corcs/:id
func (s *Server) UpdateCORC(c *gin.Context) {
	var req corcdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.corcSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// DeleteCORC handles DELETE /api/corcs/:id
func (s *Server) DeleteCORC(c *gin.Context) {
	if err := s.corcSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	respondNoContent(c)
}

// IssueCORC handles POST /api/corcs/:id/issue
func (s *Server) IssueCORC(c *gin.Context) {
	var req issueCORCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.corcSvc.Issue(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// RetireCORC handles POST /api/corcs/:id/retire
func (s *Server) RetireCORC(c *gin.Context) {
	var req retireCORCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.corcSvc.Retire(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// GetCORCCertificate handles GET /api/corcs/:id/certificate
func (s *Server) GetCORCCertificate(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	pdf, err := s.corcSvc.Certificate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=\"corc_"+id+".pdf\"")
	c.Data(http.StatusOK, "application/pdf", pdf)
}
