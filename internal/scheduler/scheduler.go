// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/config"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	"github.com/railzwaylabs/biochar/internal/observability"
	"github.com/railzwaylabs/biochar/internal/recalc"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
)

// Enqueuer accepts recalculation jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job recalc.Job) (*recalc.Task, error)
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Config     config.Config
	PeriodRepo perioddomain.Repository
	Queue      *recalc.Queue
	Metrics    *observability.Metrics `optional:"true"`
}

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	cfg        config.SchedulerConfig
	periodRepo perioddomain.Repository
	queue      Enqueuer
	metrics    *observability.Metrics
	cron       *cron.Cron
}

func New(p Params) (*Scheduler, error) {
	return newScheduler(p.DB, p.Log, p.Clock, p.Config.Scheduler, p.PeriodRepo, p.Queue, p.Metrics)
}

func newScheduler(db *gorm.DB, log *zap.Logger, clk clock.Clock, cfg config.SchedulerConfig, periodRepo perioddomain.Repository, queue Enqueuer, metrics *observability.Metrics) (*Scheduler, error) {
	s := &Scheduler{
		db:         db,
		log:        log.Named("scheduler"),
		clock:      clk,
		cfg:        cfg,
		periodRepo: periodRepo,
		queue:      queue,
		metrics:    metrics,
		cron:       cron.New(cron.WithLocation(time.UTC)),
	}

	spec := cfg.StaleSweepSpec
	if spec == "" {
		spec = "@every 5m"
	}
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.SweepStalePeriods(context.Background()); err != nil {
			s.log.Warn("stale period sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule stale sweep %q: %w", spec, err)
	}
	return s, nil
}

// RunForever runs the cron schedule until ctx is cancelled, then waits for running jobs.
func (s *Scheduler) RunForever(ctx context.Context) {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
