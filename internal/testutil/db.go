// Package testutil opens throwaway databases for service tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/railzwaylabs/biochar/internal/audit/domain"
	bcudomain "github.com/railzwaylabs/biochar/internal/bcu/domain"
	corcdomain "github.com/railzwaylabs/biochar/internal/corc/domain"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	qualitydomain "github.com/railzwaylabs/biochar/internal/quality/domain"
	recalcdomain "github.com/railzwaylabs/biochar/internal/recalc/domain"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns an in-memory sqlite database private to t with every table migrated. The pool is
// limited to one connection, so code under test must use the tx handed to a Transaction closure.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&recordsdomain.Facility{},
		&recordsdomain.ProductionBatch{},
		&recordsdomain.FeedstockDelivery{},
		&recordsdomain.FeedstockAllocation{},
		&recordsdomain.EnergyUsage{},
		&recordsdomain.SequestrationEvent{},
		&recordsdomain.LeakageAssessment{},
		&qualitydomain.LabTest{},
		&perioddomain.MonitoringPeriod{},
		&corcdomain.CORCIssuance{},
		&corcdomain.CORCBatch{},
		&corcdomain.CORCSequestrationEvent{},
		&bcudomain.BCU{},
		&bcudomain.BCUTransfer{},
		&recalcdomain.RecalculationTask{},
		&auditdomain.AuditLog{},
	))
	return db
}

func NewSnowflake(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}
