package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	"github.com/railzwaylabs/biochar/internal/monitoringperiod/repository"
	recordsrepo "github.com/railzwaylabs/biochar/internal/records/repository"
	dbtest "github.com/railzwaylabs/biochar/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func newService(t *testing.T) (domain.Service, *dbtest.Fixtures) {
	t.Helper()
	db := dbtest.NewDB(t)
	genID := dbtest.NewSnowflake(t)
	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       genID,
		Clock:       clock.Fixed(dbtest.Day(2024, time.October, 1)),
		Repo:        repository.Provide(),
		RecordsRepo: recordsrepo.Provide(),
	})
	return svc, dbtest.NewFixtures(t, db, genID)
}

func TestCreatePeriod(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	facility := fx.Facility("Q1")

	period, err := svc.Create(ctx, domain.CreateRequest{
		FacilityID: snowflake.ID(facility.ID).String(),
		StartDate:  time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
		EndDate:    dbtest.Day(2024, time.March, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, dbtest.Day(2024, time.January, 1), period.StartDate)
	assert.Nil(t, period.CalculatedAt)
	assert.Nil(t, period.NetCORCsTCO2e)
	assert.Empty(t, period.Warnings)
	assert.False(t, period.Stale)
	assert.EqualValues(t, 1, period.Version)

	got, err := svc.Get(ctx, period.ID)
	require.NoError(t, err)
	assert.Equal(t, period.ID, got.ID)
}

func TestCreatePeriodSingleDay(t *testing.T) {
	svc, fx := newService(t)
	facility := fx.Facility("DAY")

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		FacilityID: snowflake.ID(facility.ID).String(),
		StartDate:  dbtest.Day(2024, time.May, 1),
		EndDate:    dbtest.Day(2024, time.May, 1),
	})
	assert.NoError(t, err)
}

func TestCreatePeriodRejectsOverlap(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	facility := fx.Facility("OVER")
	neighbour := fx.Facility("NEXT")
	fx.Period(facility.ID, dbtest.Day(2024, time.January, 1), dbtest.Day(2024, time.March, 31))

	cases := []struct {
		name       string
		facilityID int64
		start, end time.Time
		err        error
	}{
		{"shares last day", facility.ID, dbtest.Day(2024, time.March, 31), dbtest.Day(2024, time.June, 30), domain.ErrOverlap},
		{"contains existing", facility.ID, dbtest.Day(2023, time.December, 1), dbtest.Day(2024, time.April, 30), domain.ErrOverlap},
		{"adjacent", facility.ID, dbtest.Day(2024, time.April, 1), dbtest.Day(2024, time.June, 30), nil},
		{"other facility", neighbour.ID, dbtest.Day(2024, time.January, 1), dbtest.Day(2024, time.March, 31), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, domain.CreateRequest{
				FacilityID: snowflake.ID(tc.facilityID).String(),
				StartDate:  tc.start,
				EndDate:    tc.end,
			})
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestCreatePeriodValidation(t *testing.T) {
	svc, fx := newService(t)
	ctx := context.Background()
	facility := fx.Facility("BAD")

	_, err := svc.Create(ctx, domain.CreateRequest{
		FacilityID: snowflake.ID(facility.ID).String(),
		StartDate:  dbtest.Day(2024, time.March, 31),
		EndDate:    dbtest.Day(2024, time.January, 1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = svc.Create(ctx, domain.CreateRequest{
		FacilityID: snowflake.ID(facility.ID).String(),
		EndDate:    dbtest.Day(2024, time.January, 1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = svc.Create(ctx, domain.CreateRequest{
		FacilityID: "12345",
		StartDate:  dbtest.Day(2024, time.January, 1),
		EndDate:    dbtest.Day(2024, time.March, 31),
	})
	assert.ErrorIs(t, err, domain.ErrFacilityNotFound)

	_, err = svc.Get(ctx, "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByFacilityReportsStale(t *testing.T) {
	svc, fx := newService(t)
	facility := fx.Facility("LIST")
	saved := fx.SavedPeriod(facility.ID, dbtest.Day(2024, time.January, 1), dbtest.Day(2024, time.March, 31), 12)
	fx.Period(facility.ID, dbtest.Day(2024, time.April, 1), dbtest.Day(2024, time.June, 30))
	require.NoError(t, fx.DB.Model(&domain.MonitoringPeriod{}).Where("id = ?", saved.ID).
		Update("inputs_changed_at", fx.Now.Add(time.Hour)).Error)

	items, err := svc.ListByFacility(context.Background(), snowflake.ID(facility.ID).String())
	require.NoError(t, err)
	require.Len(t, items, 2)

	byID := map[string]domain.Response{}
	for _, item := range items {
		byID[item.ID] = item
	}
	first := byID[snowflake.ID(saved.ID).String()]
	assert.True(t, first.Stale)
	require.NotNil(t, first.NetCORCsTCO2e)
	assert.InDelta(t, 12.0, *first.NetCORCsTCO2e, 1e-9)
	require.NotNil(t, first.MethodologyVersion)
	assert.Equal(t, "puro-biochar-2022.v1", *first.MethodologyVersion)
}

func TestGetReturnsSavedWarnings(t *testing.T) {
	svc, fx := newService(t)
	facility := fx.Facility("WARN")
	saved := fx.SavedPeriod(facility.ID, dbtest.Day(2024, time.January, 1), dbtest.Day(2024, time.March, 31), 12)
	require.NoError(t, fx.DB.Model(&domain.MonitoringPeriod{}).Where("id = ?", saved.ID).
		Update("warnings", datatypes.JSON(`[{"code":"missing_leakage_assessment","message":"no leakage assessment on or before period end"}]`)).Error)

	got, err := svc.Get(context.Background(), snowflake.ID(saved.ID).String())
	require.NoError(t, err)
	require.Len(t, got.Warnings, 1)
	assert.Equal(t, "missing_leakage_assessment", got.Warnings[0].Code)
}

func TestUndecodableWarningsFailTheRead(t *testing.T) {
	svc, fx := newService(t)
	facility := fx.Facility("CORRUPT")
	saved := fx.SavedPeriod(facility.ID, dbtest.Day(2024, time.January, 1), dbtest.Day(2024, time.March, 31), 12)
	require.NoError(t, fx.DB.Model(&domain.MonitoringPeriod{}).Where("id = ?", saved.ID).
		Update("warnings", datatypes.JSON(`[{"code":`)).Error)

	_, err := svc.Get(context.Background(), snowflake.ID(saved.ID).String())
	assert.Error(t, err)

	_, err = svc.ListByFacility(context.Background(), snowflake.ID(facility.ID).String())
	assert.Error(t, err)
}
