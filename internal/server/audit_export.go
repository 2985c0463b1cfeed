package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/railzwaylabs/biochar/internal/audit/domain"
)

const maxAuditExportRange = 90 * 24 * time.Hour

// ExportAuditLogs handles GET /api/audit/export
func (s *Server) ExportAuditLogs(c *gin.Context) {
	startDateStr := strings.TrimSpace(c.Query("start_date"))
	endDateStr := strings.TrimSpace(c.Query("end_date"))
	formatStr := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))
	targetType := strings.TrimSpace(c.Query("target_type"))
	targetIDStr := strings.TrimSpace(c.Query("target_id"))
	actionsStr := strings.TrimSpace(c.Query("actions"))

	if startDateStr == "" || endDateStr == "" {
		AbortWithError(c, newValidationError("start_date", "required", "start_date and end_date are required"))
		return
	}

	startDate, err := time.Parse(time.DateOnly, startDateStr)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_date", "start_date must be YYYY-MM-DD"))
		return
	}
	endDate, err := time.Parse(time.DateOnly, endDateStr)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_date", "end_date must be YYYY-MM-DD"))
		return
	}

	// end_date is inclusive
	endDate = endDate.Add(24 * time.Hour)
	if !endDate.After(startDate) || endDate.Sub(startDate) > maxAuditExportRange {
		AbortWithError(c, auditdomain.ErrInvalidRange)
		return
	}

	var format auditdomain.ExportFormat
	switch formatStr {
	case "csv":
		format = auditdomain.ExportFormatCSV
	case "json":
		format = auditdomain.ExportFormatJSON
	default:
		AbortWithError(c, auditdomain.ErrInvalidFormat)
		return
	}

	var targetID *int64
	if targetIDStr != "" {
		id, err := snowflake.ParseString(targetIDStr)
		if err != nil {
			AbortWithError(c, newValidationError("target_id", "invalid_id", "invalid target_id"))
			return
		}
		v := id.Int64()
		targetID = &v
	}

	var actions []string
	if actionsStr != "" {
		for _, action := range strings.Split(actionsStr, ",") {
			if action = strings.TrimSpace(action); action != "" {
				actions = append(actions, action)
			}
		}
	}

	result, err := s.auditExportSvc.Export(c.Request.Context(), auditdomain.ExportRequest{
		StartDate:  startDate,
		EndDate:    endDate,
		Format:     format,
		TargetType: targetType,
		TargetID:   targetID,
		Actions:    actions,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("X-Audit-Export-Checksum", result.Checksum)
	c.Header("X-Audit-Export-Count", strconv.Itoa(result.Count))

	contentType := "text/csv"
	if result.Format == auditdomain.ExportFormatJSON {
		contentType = "application/json"
	}
	filename := "audit_export_" + startDateStr + "_" + endDateStr + "." + string(result.Format)
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, contentType, result.Data)
}
