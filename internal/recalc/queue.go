// Package recalc recomputes saved monitoring periods in the background on a bounded worker pool.
package recalc

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/config"
	"github.com/railzwaylabs/biochar/internal/observability"
	"github.com/railzwaylabs/biochar/internal/recalc/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Runner recomputes and saves one monitoring period.
type Runner interface {
	Recalculate(ctx context.Context, periodID int64) error
}

type Job struct {
	MonitoringPeriodID int64
	Reason             string
}

// Task is a handle on an enqueued job.
type Task struct {
	ID       string
	PeriodID int64

	done chan struct{}
	err  error
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the job finishes or ctx ends, returning the job's error.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Config  config.Config
	Repo    domain.Repository
	Runner  Runner
	Metrics *observability.Metrics `optional:"true"`
}

type Queue struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	runner  Runner
	metrics *observability.Metrics

	workers    int
	jobTimeout time.Duration
	jobs       chan *Task

	mu      sync.Mutex
	pending map[int64]*Task
	closed  bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func New(p Params) *Queue {
	workers := p.Config.Recalc.Workers
	if workers <= 0 {
		workers = 1
	}
	size := p.Config.Recalc.QueueSize
	if size <= 0 {
		size = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		db:         p.DB,
		log:        p.Log.Named("recalc.queue"),
		clock:      p.Clock,
		repo:       p.Repo,
		runner:     p.Runner,
		metrics:    p.Metrics,
		workers:    workers,
		jobTimeout: p.Config.Recalc.JobTimeout,
		jobs:       make(chan *Task, size),
		pending:    make(map[int64]*Task),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.log.Info("recalculation workers started", zap.Int("workers", q.workers), zap.Int("capacity", cap(q.jobs)))
}

// Stop refuses new jobs, lets workers drain what is queued, and cancels in-flight jobs if ctx ends
// first.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-stopped
		return ctx.Err()
	}
}

// Enqueue records a task and hands it to the pool. A period that already has a job waiting is not
// queued twice; the waiting task is returned instead.
func (q *Queue) Enqueue(ctx context.Context, job Job) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, domain.ErrQueueClosed
	}
	if existing, ok := q.pending[job.MonitoringPeriodID]; ok {
		return existing, nil
	}

	record := &domain.RecalculationTask{
		ID:                 ulid.MustNew(ulid.Now(), rand.Reader).String(),
		MonitoringPeriodID: job.MonitoringPeriodID,
		Reason:             job.Reason,
		Status:             string(domain.TaskQueued),
		EnqueuedAt:         q.clock.Now(ctx),
	}
	if err := q.repo.Insert(ctx, q.db, record); err != nil {
		return nil, err
	}

	task := &Task{ID: record.ID, PeriodID: job.MonitoringPeriodID, done: make(chan struct{})}
	select {
	case q.jobs <- task:
	default:
		msg := domain.ErrQueueFull.Error()
		if err := q.repo.MarkFinished(ctx, q.db, record.ID, domain.TaskFailed, &msg, q.clock.Now(ctx)); err != nil {
			q.log.Warn("failed to mark rejected task", zap.String("task_id", record.ID), zap.Error(err))
		}
		q.observeFinished(domain.TaskFailed, 0)
		return nil, domain.ErrQueueFull
	}

	q.pending[job.MonitoringPeriodID] = task
	q.observeDepth()
	q.log.Debug("recalculation queued",
		zap.String("task_id", task.ID),
		zap.Int64("monitoring_period_id", job.MonitoringPeriodID),
		zap.String("reason", job.Reason),
	)
	return task, nil
}

func (q *Queue) Get(ctx context.Context, id string) (*domain.TaskResponse, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, domain.ErrTaskNotFound
	}
	record, err := q.repo.FindByID(ctx, q.db, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrTaskNotFound
	}
	return toResponse(record), nil
}

func (q *Queue) worker(n int) {
	defer q.wg.Done()
	for task := range q.jobs {
		q.mu.Lock()
		delete(q.pending, task.PeriodID)
		q.mu.Unlock()
		q.observeDepth()

		q.run(task)
	}
	q.log.Debug("recalculation worker stopped", zap.Int("worker", n))
}

func (q *Queue) run(task *Task) {
	defer close(task.done)

	ctx := q.ctx
	if q.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.jobTimeout)
		defer cancel()
	}

	started := time.Now()
	if err := q.repo.MarkRunning(ctx, q.db, task.ID, q.clock.Now(ctx)); err != nil {
		q.log.Warn("failed to mark task running", zap.String("task_id", task.ID), zap.Error(err))
	}

	task.err = q.runJob(ctx, task)

	status := domain.TaskSucceeded
	var errText *string
	if task.err != nil {
		status = domain.TaskFailed
		msg := task.err.Error()
		errText = &msg
		q.log.Warn("recalculation failed",
			zap.String("task_id", task.ID),
			zap.Int64("monitoring_period_id", task.PeriodID),
			zap.Error(task.err),
		)
	} else {
		q.log.Info("recalculation finished",
			zap.String("task_id", task.ID),
			zap.Int64("monitoring_period_id", task.PeriodID),
			zap.Duration("took", time.Since(started)),
		)
	}

	finishCtx := context.WithoutCancel(ctx)
	if err := q.repo.MarkFinished(finishCtx, q.db, task.ID, status, errText, q.clock.Now(finishCtx)); err != nil {
		q.log.Warn("failed to record task result", zap.String("task_id", task.ID), zap.Error(err))
	}
	q.observeFinished(status, time.Since(started))
}

func (q *Queue) runJob(ctx context.Context, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("recalculation panicked", zap.String("task_id", task.ID), zap.Any("panic", r))
			err = errors.New("recalculation panicked")
		}
	}()
	return q.runner.Recalculate(ctx, task.PeriodID)
}

func (q *Queue) observeDepth() {
	if q.metrics == nil {
		return
	}
	q.metrics.RecalcQueueDepth.Set(float64(len(q.jobs)))
}

func (q *Queue) observeFinished(status domain.TaskStatus, took time.Duration) {
	if q.metrics == nil {
		return
	}
	q.metrics.RecalcJobs.WithLabelValues(string(status)).Inc()
	if took > 0 {
		q.metrics.RecalcJobDuration.Observe(took.Seconds())
	}
}

func toResponse(t *domain.RecalculationTask) *domain.TaskResponse {
	return &domain.TaskResponse{
		ID:                 t.ID,
		MonitoringPeriodID: formatID(t.MonitoringPeriodID),
		Reason:             t.Reason,
		Status:             domain.TaskStatus(t.Status),
		Attempts:           t.Attempts,
		Error:              t.Error,
		EnqueuedAt:         t.EnqueuedAt,
		StartedAt:          t.StartedAt,
		FinishedAt:         t.FinishedAt,
	}
}
