package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/config"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	periodrepo "github.com/railzwaylabs/biochar/internal/monitoringperiod/repository"
	"github.com/railzwaylabs/biochar/internal/recalc"
	"github.com/railzwaylabs/biochar/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job recalc.Job) (*recalc.Task, error) {
	args := m.Called(ctx, job)
	task, _ := args.Get(0).(*recalc.Task)
	return task, args.Error(1)
}

func TestSweepEnqueuesOnlyStaleSavedPeriods(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db, testutil.NewSnowflake(t))
	facility := fx.Facility("SWEEP")

	stale := fx.SavedPeriod(facility.ID, testutil.Day(2024, time.January, 1), testutil.Day(2024, time.March, 31), 10)
	fresh := fx.SavedPeriod(facility.ID, testutil.Day(2024, time.April, 1), testutil.Day(2024, time.June, 30), 10)
	fx.Period(facility.ID, testutil.Day(2024, time.July, 1), testutil.Day(2024, time.September, 30))

	changed := fx.Now.Add(time.Hour)
	require.NoError(t, db.Model(&perioddomain.MonitoringPeriod{}).Where("id = ?", stale.ID).Update("inputs_changed_at", changed).Error)
	earlier := fx.Now.Add(-time.Hour)
	require.NoError(t, db.Model(&perioddomain.MonitoringPeriod{}).Where("id = ?", fresh.ID).Update("inputs_changed_at", earlier).Error)

	queue := &mockEnqueuer{}
	queue.On("Enqueue", mock.Anything, recalc.Job{MonitoringPeriodID: stale.ID, Reason: recalc.ReasonStaleSweep}).Return(&recalc.Task{}, nil).Once()

	s, err := newScheduler(db, zap.NewNop(), clock.Fixed(changed), config.SchedulerConfig{SweepBatchSize: 10}, periodrepo.Provide(), queue, nil)
	require.NoError(t, err)

	queued, err := s.SweepStalePeriods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, queued)
	queue.AssertExpectations(t)
}

func TestSweepContinuesPastRejectedJobs(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db, testutil.NewSnowflake(t))
	facility := fx.Facility("FULL")

	var ids []int64
	for _, month := range []time.Month{time.January, time.April} {
		p := fx.SavedPeriod(facility.ID, testutil.Day(2024, month, 1), testutil.Day(2024, month+2, 28), 10)
		require.NoError(t, db.Model(&perioddomain.MonitoringPeriod{}).Where("id = ?", p.ID).Update("inputs_changed_at", fx.Now.Add(time.Minute)).Error)
		ids = append(ids, p.ID)
	}

	queue := &mockEnqueuer{}
	queue.On("Enqueue", mock.Anything, recalc.Job{MonitoringPeriodID: ids[0], Reason: recalc.ReasonStaleSweep}).Return(nil, errors.New("recalculation_queue_full"))
	queue.On("Enqueue", mock.Anything, recalc.Job{MonitoringPeriodID: ids[1], Reason: recalc.ReasonStaleSweep}).Return(&recalc.Task{}, nil)

	s, err := newScheduler(db, zap.NewNop(), clock.SystemClock{}, config.SchedulerConfig{}, periodrepo.Provide(), queue, nil)
	require.NoError(t, err)

	queued, err := s.SweepStalePeriods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, queued)
	queue.AssertExpectations(t)
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := newScheduler(nil, zap.NewNop(), clock.SystemClock{}, config.SchedulerConfig{StaleSweepSpec: "every now and then"}, nil, &mockEnqueuer{}, nil)
	assert.Error(t, err)
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	s, err := newScheduler(nil, zap.NewNop(), clock.SystemClock{}, config.SchedulerConfig{StaleSweepSpec: "@every 1h"}, nil, &mockEnqueuer{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunForever(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
