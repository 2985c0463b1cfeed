package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/railzwaylabs/biochar/internal/calculation/domain"
	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/config"
	"github.com/railzwaylabs/biochar/internal/lock"
	"github.com/railzwaylabs/biochar/internal/methodology"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	periodrepo "github.com/railzwaylabs/biochar/internal/monitoringperiod/repository"
	"github.com/railzwaylabs/biochar/internal/observability"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
	recordsrepo "github.com/railzwaylabs/biochar/internal/records/repository"
	dbtest "github.com/railzwaylabs/biochar/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     domain.Service
	fx      *dbtest.Fixtures
	locker  *lock.LocalLocker
	metrics *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.NewDB(t)
	genID := dbtest.NewSnowflake(t)
	holder, err := methodology.NewHolder(methodology.Default())
	require.NoError(t, err)

	locker := lock.NewLocal()
	metrics := observability.NewMetrics()
	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       clock.Fixed(dbtest.Day(2024, time.July, 15)),
		Config:      config.Config{Recalc: config.RecalcConfig{LockTTL: time.Minute}},
		Methodology: holder,
		Locker:      locker,
		PeriodRepo:  periodrepo.Provide(),
		RecordsRepo: recordsrepo.Provide(),
		Metrics:     metrics,
	})
	return &fixture{db: db, svc: svc, fx: dbtest.NewFixtures(t, db, genID), locker: locker, metrics: metrics}
}

func (f *fixture) reload(t *testing.T, id int64) perioddomain.MonitoringPeriod {
	t.Helper()
	var p perioddomain.MonitoringPeriod
	require.NoError(t, f.db.First(&p, "id = ?", id).Error)
	return p
}

func id(v int64) string {
	return snowflake.ID(v).String()
}

// referencePeriod is 1000 t at 80% Corg and 2% H fully sequestered into 15 °C soil at a new-build
// facility with no project or leakage emissions.
func (f *fixture) referencePeriod(t *testing.T) *perioddomain.MonitoringPeriod {
	t.Helper()
	facility := f.fx.Facility("ALPHA")
	batch := f.fx.Batch(facility.ID, dbtest.Day(2024, time.February, 10), 1000)
	f.fx.Sequestration(facility.ID, batch.ID, dbtest.Day(2024, time.March, 1), 1000, func(e *recordsdomain.SequestrationEvent) {
		e.SoilTemperatureC = dbtest.Ptr(15.0)
	})
	return f.fx.Period(facility.ID, dbtest.Day(2024, time.January, 1), dbtest.Day(2024, time.June, 30))
}

func TestCalculateReferenceScenarioSaves(t *testing.T) {
	f := newFixture(t)
	period := f.referencePeriod(t)

	resp, err := f.svc.Calculate(context.Background(), domain.CalculateRequest{
		MonitoringPeriodID:  id(period.ID),
		SaveResult:          true,
		ReturnFullBreakdown: true,
	})
	require.NoError(t, err)

	params := methodology.Default()
	hCorg := (2 / params.HydrogenMolarMass) / (80 / params.CarbonMolarMass)
	pf := params.PersistenceIntercept - params.PersistenceHCorgSlope*hCorg - params.PersistenceTempSlope*15
	want := 1000 * 0.80 * 3.67 * pf

	assert.True(t, resp.Validation.IsValid)
	assert.True(t, resp.Saved)
	assert.Equal(t, 1, resp.ProductionBatchCount)
	assert.Equal(t, 1, resp.SequestrationEventCount)
	assert.InDelta(t, want, resp.Result.CStoredTCO2e, 1e-9)
	assert.Zero(t, resp.Result.CLossTCO2e)
	assert.Equal(t, resp.Result.CStoredTCO2e, resp.Result.NetCORCsTCO2e)
	require.NotNil(t, resp.Breakdown)
	assert.Equal(t, "new_build", resp.Breakdown.BaselineScenario)
	assert.True(t, resp.Breakdown.Leakage.Defaulted)

	codes := make([]string, 0, len(resp.Validation.Warnings))
	for _, w := range resp.Validation.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []string{methodology.CaveatMissingLeakageAssessment}, codes)

	saved := f.reload(t, period.ID)
	require.True(t, saved.Saved())
	assert.InDelta(t, resp.Result.NetCORCsTCO2e, *saved.NetCORCsTCO2e, 1e-9)
	assert.Equal(t, params.Version, *saved.MethodologyVersion)
	assert.Equal(t, int64(2), saved.Version)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Calculations.WithLabelValues("ok")))
}

func TestCalculateWithoutSaveLeavesPeriodUntouched(t *testing.T) {
	f := newFixture(t)
	period := f.referencePeriod(t)

	resp, err := f.svc.Calculate(context.Background(), domain.CalculateRequest{MonitoringPeriodID: id(period.ID)})
	require.NoError(t, err)
	assert.False(t, resp.Saved)
	assert.Nil(t, resp.Breakdown)

	saved := f.reload(t, period.ID)
	assert.False(t, saved.Saved())
	assert.Equal(t, int64(1), saved.Version)
}

func TestCalculateZeroDryMassPersistsNothing(t *testing.T) {
	f := newFixture(t)
	facility := f.fx.Facility("EMPTY")
	period := f.fx.Period(facility.ID, dbtest.Day(2024, time.January, 1), dbtest.Day(2024, time.March, 31))

	resp, err := f.svc.Calculate(context.Background(), domain.CalculateRequest{
		MonitoringPeriodID: id(period.ID),
		SaveResult:         true,
	})
	assert.ErrorIs(t, err, domain.ErrZeroDryMass)
	assert.Nil(t, resp)

	saved := f.reload(t, period.ID)
	assert.Nil(t, saved.NetCORCsTCO2e)
	assert.Nil(t, saved.CalculatedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Calculations.WithLabelValues("zero_dry_mass")))
}

func TestCalculateRejectsInvalidInputWithAllIssues(t *testing.T) {
	f := newFixture(t)
	period := f.referencePeriod(t)

	_, err := f.svc.Calculate(context.Background(), domain.CalculateRequest{
		MonitoringPeriodID:   id(period.ID),
		SaveResult:           true,
		MeanSoilTempOverride: dbtest.Ptr(60.0),
	})
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Validation.Errors, 1)
	assert.Equal(t, "mean_soil_temperature_c", validationErr.Validation.Errors[0].Field)
	reloaded := f.reload(t, period.ID)
	assert.False(t, reloaded.Saved())
}

func TestCalculateIgnoresBatchesOutsidePeriodAndIncomplete(t *testing.T) {
	f := newFixture(t)
	period := f.referencePeriod(t)
	f.fx.Batch(period.FacilityID, dbtest.Day(2024, time.July, 1), 500)
	f.fx.Batch(period.FacilityID, dbtest.Day(2024, time.March, 1), 500, func(b *recordsdomain.ProductionBatch) {
		b.Status = string(recordsdomain.BatchStatusInProgress)
	})

	resp, err := f.svc.Calculate(context.Background(), domain.CalculateRequest{
		MonitoringPeriodID:  id(period.ID),
		ReturnFullBreakdown: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ProductionBatchCount)
	assert.InDelta(t, 1000, resp.Breakdown.DryMassTonnes, 1e-12)
}

func TestCalculateChargesUnsequesteredMassAsLoss(t *testing.T) {
	f := newFixture(t)
	facility := f.fx.Facility("BETA")
	batch := f.fx.Batch(facility.ID, dbtest.Day(2024, time.February, 10), 1000)
	f.fx.Sequestration(facility.ID, batch.ID, dbtest.Day(2024, time.March, 1), 600)
	f.fx.Sequestration(facility.ID, batch.ID, dbtest.Day(2024, time.August, 1), 400)
	period := f.fx.Period(facility.ID, dbtest.Day(2024, time.January, 1), dbtest.Day(2024, time.June, 30))

	resp, err := f.svc.Calculate(context.Background(), domain.CalculateRequest{
		MonitoringPeriodID:  id(period.ID),
		ReturnFullBreakdown: true,
	})
	require.NoError(t, err)
	assert.InDelta(t, 400, resp.Breakdown.UnsequesteredDryMassTonnes, 1e-12)
	assert.Greater(t, resp.Result.CLossTCO2e, 0.0)
	assert.Equal(t, 1, resp.SequestrationEventCount)
}

func TestCalculateWhileLockedIsRejected(t *testing.T) {
	f := newFixture(t)
	period := f.referencePeriod(t)

	lease, err := f.locker.Acquire(context.Background(), lock.MonitoringPeriodKey(period.ID), time.Minute)
	require.NoError(t, err)
	defer func() { _ = lease.Release(context.Background()) }()

	_, err = f.svc.Calculate(context.Background(), domain.CalculateRequest{
		MonitoringPeriodID: id(period.ID),
		SaveResult:         true,
	})
	assert.ErrorIs(t, err, domain.ErrCalculationInProgress)

	_, err = f.svc.Calculate(context.Background(), domain.CalculateRequest{MonitoringPeriodID: id(period.ID)})
	assert.NoError(t, err)
}

func TestCalculateUnknownPeriodAndFacilityBaseline(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Calculate(context.Background(), domain.CalculateRequest{MonitoringPeriodID: "not-an-id"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.Calculate(context.Background(), domain.CalculateRequest{MonitoringPeriodID: id(12345)})
	assert.ErrorIs(t, err, domain.ErrPeriodNotFound)

	facility := f.fx.Facility("GAMMA", func(fac *recordsdomain.Facility) { fac.BaselineScenario = "greenfield" })
	f.fx.Batch(facility.ID, dbtest.Day(2024, time.February, 10), 10)
	period := f.fx.Period(facility.ID, dbtest.Day(2024, time.January, 1), dbtest.Day(2024, time.June, 30))
	_, err = f.svc.Calculate(context.Background(), domain.CalculateRequest{MonitoringPeriodID: id(period.ID)})
	assert.ErrorIs(t, err, domain.ErrUnknownBaseline)
}

func TestRecalculateRequiresSavedPeriod(t *testing.T) {
	f := newFixture(t)
	period := f.referencePeriod(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Recalculate(ctx, period.ID), domain.ErrNotSaved)

	_, err := f.svc.Calculate(ctx, domain.CalculateRequest{MonitoringPeriodID: id(period.ID), SaveResult: true})
	require.NoError(t, err)
	require.NoError(t, f.svc.Recalculate(ctx, period.ID))
	assert.Equal(t, int64(3), f.reload(t, period.ID).Version)
}
