package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type ReadinessState string

const (
	ReadinessStateReady    ReadinessState = "ready"
	ReadinessStateNotReady ReadinessState = "not_ready"
	ReadinessStateOptional ReadinessState = "optional"
)

type ReadinessIssue struct {
	ID       string            `json:"id"`
	Status   ReadinessState    `json:"status"`
	Evidence map[string]string `json:"evidence,omitempty"`
}

func (s *Server) RegisterSystemRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/ready", s.GetSystemReadiness)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// Healthz reports liveness only.
func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetSystemReadiness reports whether the database is reachable and migrated. It answers 503 when a
// required check fails.
func (s *Server) GetSystemReadiness(c *gin.Context) {
	ctx := c.Request.Context()

	issues := make([]ReadinessIssue, 0, 4)
	isReady := true

	if err := s.pingDatabase(ctx); err != nil {
		isReady = false
		issues = append(issues, ReadinessIssue{
			ID:       "database",
			Status:   ReadinessStateNotReady,
			Evidence: map[string]string{"error": err.Error()},
		})
	} else {
		issues = append(issues, ReadinessIssue{ID: "database", Status: ReadinessStateReady})
	}

	if s.schemaGate == nil {
		isReady = false
		issues = append(issues, ReadinessIssue{
			ID:       "schema_gate",
			Status:   ReadinessStateNotReady,
			Evidence: map[string]string{"error": "schema gate not configured"},
		})
	} else if err := s.schemaGate.MustBeActive(ctx); err != nil {
		isReady = false
		issues = append(issues, ReadinessIssue{
			ID:       "schema_gate",
			Status:   ReadinessStateNotReady,
			Evidence: map[string]string{"error": err.Error()},
		})
	} else {
		issues = append(issues, ReadinessIssue{ID: "schema_gate", Status: ReadinessStateReady})
	}

	if s.methodology != nil {
		issues = append(issues, ReadinessIssue{
			ID:       "methodology",
			Status:   ReadinessStateReady,
			Evidence: map[string]string{"version": s.methodology.Current().Version},
		})
	}

	// Stale periods are picked up by the scheduler sweep, so they never block readiness.
	if s.db != nil {
		issue := ReadinessIssue{ID: "stale_monitoring_periods", Status: ReadinessStateOptional}
		if count, err := s.countStalePeriods(ctx); err != nil {
			issue.Evidence = map[string]string{"error": err.Error()}
		} else {
			issue.Evidence = map[string]string{"count": fmt.Sprintf("%d", count)}
		}
		issues = append(issues, issue)
	}

	state := ReadinessStateReady
	status := http.StatusOK
	if !isReady {
		state = ReadinessStateNotReady
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"ready":        isReady,
		"system_state": state,
		"issues":       issues,
	})
}

func (s *Server) pingDatabase(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not configured")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (s *Server) countStalePeriods(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM monitoring_periods
		 WHERE calculated_at IS NOT NULL
		   AND inputs_changed_at IS NOT NULL
		   AND inputs_changed_at > calculated_at`,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
