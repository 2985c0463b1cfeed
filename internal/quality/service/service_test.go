package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/methodology"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	periodrepo "github.com/railzwaylabs/biochar/internal/monitoringperiod/repository"
	"github.com/railzwaylabs/biochar/internal/quality/domain"
	"github.com/railzwaylabs/biochar/internal/quality/repository"
	recordsdomain "github.com/railzwaylabs/biochar/internal/records/domain"
	recordsrepo "github.com/railzwaylabs/biochar/internal/records/repository"
	"github.com/railzwaylabs/biochar/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu    sync.Mutex
	dates []time.Time
}

func (n *recordingNotifier) BatchQualityChanged(_ context.Context, _ int64, productionDate time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dates = append(n.dates, productionDate)
}

type fixture struct {
	db       *gorm.DB
	svc      domain.Service
	fx       *testutil.Fixtures
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	genID := testutil.NewSnowflake(t)
	holder, err := methodology.NewHolder(methodology.Default())
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       genID,
		Clock:       clock.Fixed(testutil.Day(2024, time.July, 1)),
		Methodology: holder,
		Repo:        repository.Provide(),
		RecordsRepo: recordsrepo.Provide(),
		PeriodRepo:  periodrepo.Provide(),
		Notifier:    notifier,
	})
	return &fixture{db: db, svc: svc, fx: testutil.NewFixtures(t, db, genID), notifier: notifier}
}

func (f *fixture) pendingBatch(t *testing.T) *recordsdomain.ProductionBatch {
	t.Helper()
	facility := f.fx.Facility("KIL")
	return f.fx.Batch(facility.ID, testutil.Day(2024, time.March, 10), 100, func(b *recordsdomain.ProductionBatch) {
		b.OrganicCarbonPercent = nil
		b.HydrogenPercent = nil
		b.QualityStatus = string(recordsdomain.QualityStatusPending)
	})
}

func (f *fixture) reload(t *testing.T, id int64) recordsdomain.ProductionBatch {
	t.Helper()
	var b recordsdomain.ProductionBatch
	require.NoError(t, f.db.First(&b, "id = ?", id).Error)
	return b
}

func idString(id int64) string {
	return snowflake.ID(id).String()
}

func TestRecordLabTestUpdatesBatchQuality(t *testing.T) {
	f := newFixture(t)
	batch := f.pendingBatch(t)

	resp, err := f.svc.RecordLabTest(context.Background(), domain.RecordRequest{
		BatchID:                idString(batch.ID),
		TestDate:               testutil.Day(2024, time.March, 20),
		TotalCarbonPercent:     82,
		InorganicCarbonPercent: 2,
		HydrogenPercent:        2,
	})
	require.NoError(t, err)
	assert.True(t, resp.Authoritative)
	assert.True(t, resp.PassesQualityThreshold)
	assert.InDelta(t, 80, resp.OrganicCarbonPercent, 1e-12)

	got := f.reload(t, batch.ID)
	assert.Equal(t, string(recordsdomain.QualityStatusPassed), got.QualityStatus)
	require.NotNil(t, got.OrganicCarbonPercent)
	assert.InDelta(t, 80, *got.OrganicCarbonPercent, 1e-12)
	require.NotNil(t, got.HCorgRatio)
	assert.Len(t, f.notifier.dates, 1)
}

func TestMostRecentTestIsAuthoritative(t *testing.T) {
	f := newFixture(t)
	batch := f.pendingBatch(t)
	ctx := context.Background()

	newer, err := f.svc.RecordLabTest(ctx, domain.RecordRequest{
		BatchID: idString(batch.ID), TestDate: testutil.Day(2024, time.April, 1),
		TotalCarbonPercent: 60, HydrogenPercent: 4,
	})
	require.NoError(t, err)
	assert.False(t, newer.PassesQualityThreshold)

	older, err := f.svc.RecordLabTest(ctx, domain.RecordRequest{
		BatchID: idString(batch.ID), TestDate: testutil.Day(2024, time.March, 15),
		TotalCarbonPercent: 85, HydrogenPercent: 2,
	})
	require.NoError(t, err)
	assert.False(t, older.Authoritative)

	got := f.reload(t, batch.ID)
	assert.Equal(t, string(recordsdomain.QualityStatusFailed), got.QualityStatus)
	require.NotNil(t, got.OrganicCarbonPercent)
	assert.InDelta(t, 60, *got.OrganicCarbonPercent, 1e-12)

	require.NoError(t, f.svc.DeleteLabTest(ctx, newer.ID))
	got = f.reload(t, batch.ID)
	assert.Equal(t, string(recordsdomain.QualityStatusPassed), got.QualityStatus)
	assert.InDelta(t, 85, *got.OrganicCarbonPercent, 1e-12)

	require.NoError(t, f.svc.DeleteLabTest(ctx, older.ID))
	got = f.reload(t, batch.ID)
	assert.Equal(t, string(recordsdomain.QualityStatusPending), got.QualityStatus)
	assert.Nil(t, got.OrganicCarbonPercent)
	assert.Nil(t, got.HydrogenPercent)
	assert.Nil(t, got.HCorgRatio)
	assert.Nil(t, got.QualityTestID)
	assert.Len(t, f.notifier.dates, 4)
}

func TestRecordLabTestZeroOrganicCarbon(t *testing.T) {
	f := newFixture(t)
	batch := f.pendingBatch(t)

	resp, err := f.svc.RecordLabTest(context.Background(), domain.RecordRequest{
		BatchID: idString(batch.ID), TestDate: testutil.Day(2024, time.March, 20),
		TotalCarbonPercent: 5, InorganicCarbonPercent: 5, HydrogenPercent: 1,
	})
	require.NoError(t, err)
	assert.Nil(t, resp.HCorgRatio)
	assert.False(t, resp.PassesQualityThreshold)
	assert.Equal(t, string(recordsdomain.QualityStatusFailed), f.reload(t, batch.ID).QualityStatus)
}

func TestRecordLabTestRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	batch := f.pendingBatch(t)
	ctx := context.Background()

	_, err := f.svc.RecordLabTest(ctx, domain.RecordRequest{
		BatchID: idString(batch.ID), TestDate: testutil.Day(2024, time.March, 20),
		TotalCarbonPercent: 120, HydrogenPercent: 2,
	})
	assert.ErrorIs(t, err, domain.ErrPercentOutOfRange)

	_, err = f.svc.RecordLabTest(ctx, domain.RecordRequest{
		BatchID: idString(batch.ID), TotalCarbonPercent: 80, HydrogenPercent: 2,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTestDate)

	_, err = f.svc.RecordLabTest(ctx, domain.RecordRequest{
		BatchID: idString(batch.ID + 1), TestDate: testutil.Day(2024, time.March, 20),
		TotalCarbonPercent: 80, HydrogenPercent: 2,
	})
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
	assert.Empty(t, f.notifier.dates)
}

func TestRecordLabTestMarksSavedPeriodsStale(t *testing.T) {
	f := newFixture(t)
	batch := f.pendingBatch(t)
	period := f.fx.SavedPeriod(batch.FacilityID, testutil.Day(2024, time.January, 1), testutil.Day(2024, time.June, 30), 100)

	_, err := f.svc.RecordLabTest(context.Background(), domain.RecordRequest{
		BatchID: idString(batch.ID), TestDate: testutil.Day(2024, time.March, 20),
		TotalCarbonPercent: 80, HydrogenPercent: 2,
	})
	require.NoError(t, err)

	var got perioddomain.MonitoringPeriod
	require.NoError(t, f.db.First(&got, "id = ?", period.ID).Error)
	require.NotNil(t, got.InputsChangedAt)
	assert.True(t, got.InputsChangedAt.After(*got.CalculatedAt))
}

func TestListByBatchOrdersAuthoritativeFirst(t *testing.T) {
	f := newFixture(t)
	batch := f.pendingBatch(t)
	ctx := context.Background()

	for _, day := range []int{5, 25, 15} {
		_, err := f.svc.RecordLabTest(ctx, domain.RecordRequest{
			BatchID: idString(batch.ID), TestDate: testutil.Day(2024, time.March, day),
			TotalCarbonPercent: 80, HydrogenPercent: 2,
		})
		require.NoError(t, err)
	}

	items, err := f.svc.ListByBatch(ctx, idString(batch.ID))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, items[0].Authoritative)
	assert.True(t, testutil.Day(2024, time.March, 25).Equal(items[0].TestDate))
	assert.False(t, items[1].Authoritative)
}
