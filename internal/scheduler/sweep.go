package scheduler

import (
	"context"

	"github.com/railzwaylabs/biochar/internal/recalc"
	"go.uber.org/zap"
)

// SweepStalePeriods enqueues recalculation of saved periods whose inputs changed after they were
// calculated. It returns how many jobs were accepted.
func (s *Scheduler) SweepStalePeriods(ctx context.Context) (int, error) {
	startedAt := s.clock.Now(ctx)
	if s.metrics != nil {
		s.metrics.StaleSweeps.Inc()
	}

	ids, err := s.periodRepo.ListStale(ctx, s.db, s.cfg.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, id := range ids {
		if _, err := s.queue.Enqueue(ctx, recalc.Job{MonitoringPeriodID: id, Reason: recalc.ReasonStaleSweep}); err != nil {
			s.log.Warn("stale period not enqueued", zap.Int64("monitoring_period_id", id), zap.Error(err))
			continue
		}
		queued++
	}

	if len(ids) > 0 {
		s.log.Info("stale period sweep finished",
			zap.Int("stale", len(ids)),
			zap.Int("queued", queued),
			zap.Duration("took", s.clock.Now(ctx).Sub(startedAt)),
		)
	}
	return queued, nil
}
