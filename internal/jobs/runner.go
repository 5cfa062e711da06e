// Package jobs runs queued processing jobs and the nightly period rollover on a gocron scheduler.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taxengine/internal/config"
	"taxengine/internal/model"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Queue is the job lifecycle the runner drives
type Queue interface {
	Pending(ctx context.Context, limit int) ([]model.ProcessingJob, error)
	Begin(ctx context.Context, job *model.ProcessingJob) (bool, error)
	Progress(ctx context.Context, job *model.ProcessingJob, percent int) error
	Finish(ctx context.Context, job *model.ProcessingJob, runErr error) error
	Stale(ctx context.Context, cutoff time.Time, limit int) ([]model.ProcessingJob, error)
}

const (
	sweepEvery = time.Minute
	// slack past the run timeout before a silent job counts as abandoned
	staleGrace = time.Minute
)

// ErrAbandoned is the failure recorded for running jobs nobody finished,
// e.g. after a crash between Begin and Finish or a lost Finish write
var ErrAbandoned = errors.New("job stopped reporting and was abandoned; start it again to retry")

// Roller inserts upcoming accounting periods
type Roller interface {
	Rollover(ctx context.Context) (int, error)
}

// Observer receives job and rollover outcomes, normally the Prometheus collectors
type Observer interface {
	ObserveJob(kind, status string, took time.Duration)
	ObserveRollover(inserted int)
}

type nopObserver struct{}

func (nopObserver) ObserveJob(string, string, time.Duration) {}
func (nopObserver) ObserveRollover(int)                      {}

// Runner polls for queued jobs and runs them one at a time per poll
type Runner struct {
	queue      Queue
	roller     Roller
	processors map[string]Processor
	fallback   Processor
	observer   Observer
	batchSize  int
	poll       time.Duration
	rolloverAt string
	timeout    time.Duration
	now        func() time.Time

	scheduler *gocron.Scheduler
	logger    *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRunner(queue Queue, roller Roller, cfg config.JobsConfig, logger *zap.Logger) *Runner {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 10
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		queue:      queue,
		roller:     roller,
		processors: map[string]Processor{},
		fallback:   DefaultProcessor(),
		observer:   nopObserver{},
		batchSize:  batch,
		poll:       poll,
		rolloverAt: cfg.RolloverAtUTC,
		timeout:    timeout,
		now:        time.Now,
		scheduler:  gocron.NewScheduler(time.UTC),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Register sets the processor for a job kind
func (r *Runner) Register(kind string, p Processor) {
	r.processors[kind] = p
}

// SetFallback replaces the processor used for unregistered kinds
func (r *Runner) SetFallback(p Processor) {
	r.fallback = p
}

// SetObserver attaches metrics
func (r *Runner) SetObserver(o Observer) {
	if o != nil {
		r.observer = o
	}
}

// Start schedules the poller and the nightly rollover
func (r *Runner) Start() error {
	if _, err := r.scheduler.Every(r.poll).SingletonMode().Do(func() {
		r.RunOnce(r.ctx)
	}); err != nil {
		return fmt.Errorf("schedule job poller: %w", err)
	}

	// the first sweep runs at start and picks up jobs orphaned by a previous process
	if _, err := r.scheduler.Every(sweepEvery).SingletonMode().Do(func() {
		r.Sweep(r.ctx)
	}); err != nil {
		return fmt.Errorf("schedule stale job sweep: %w", err)
	}

	if r.roller != nil && r.rolloverAt != "" {
		if _, err := r.scheduler.Every(1).Day().At(r.rolloverAt).SingletonMode().Do(func() {
			r.Rollover(r.ctx)
		}); err != nil {
			return fmt.Errorf("schedule period rollover at %q: %w", r.rolloverAt, err)
		}
	}

	r.scheduler.StartAsync()
	r.logger.Info("job runner started",
		zap.Duration("poll", r.poll),
		zap.String("rolloverAtUTC", r.rolloverAt),
	)
	return nil
}

// Stop cancels running work and waits for the scheduler to stop
func (r *Runner) Stop() {
	r.cancel()
	r.scheduler.Stop()
	r.logger.Info("job runner stopped")
}

// RunOnce takes up to one batch of queued jobs and runs them. It returns how many it ran.
func (r *Runner) RunOnce(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, err := r.queue.Pending(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("failed to list queued jobs", zap.Error(err))
		return 0
	}

	ran := 0
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		job := &pending[i]
		ok, err := r.queue.Begin(ctx, job)
		if err != nil {
			r.logger.Error("failed to claim job", zap.String("job", job.UUID.String()), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		r.run(ctx, job)
		ran++
	}
	return ran
}

func (r *Runner) run(ctx context.Context, job *model.ProcessingJob) {
	start := time.Now()
	log := r.logger.With(zap.String("job", job.UUID.String()), zap.String("kind", job.Kind))

	p, ok := r.processors[job.Kind]
	if !ok {
		p = r.fallback
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	runErr := r.process(runCtx, p, job)
	cancel()

	// the terminal state is written even when the runner is shutting down
	finishCtx, cancelFinish := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelFinish()
	if err := r.queue.Finish(finishCtx, job, runErr); err != nil {
		log.Error("failed to record job result", zap.Error(err))
		return
	}

	r.observer.ObserveJob(job.Kind, job.Status, time.Since(start))
	if runErr != nil {
		log.Warn("job failed", zap.Error(runErr))
		return
	}
	log.Info("job succeeded", zap.Duration("took", time.Since(start)))
}

// Sweep fails running jobs that have been silent for longer than a run may
// take, which frees the claim step for a retry. It returns how many it failed.
func (r *Runner) Sweep(ctx context.Context) int {
	// holding mu means no job of this runner is mid-run
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-(r.timeout + staleGrace))
	stale, err := r.queue.Stale(ctx, cutoff, r.batchSize)
	if err != nil {
		r.logger.Error("failed to list stale jobs", zap.Error(err))
		return 0
	}

	failed := 0
	for i := range stale {
		job := &stale[i]
		if err := r.queue.Finish(ctx, job, ErrAbandoned); err != nil {
			r.logger.Error("failed to fail stale job", zap.String("job", job.UUID.String()), zap.Error(err))
			continue
		}
		r.observer.ObserveJob(job.Kind, job.Status, 0)
		r.logger.Warn("failed abandoned job",
			zap.String("job", job.UUID.String()),
			zap.String("kind", job.Kind),
			zap.Time("lastUpdate", job.UpdatedAt),
		)
		failed++
	}
	return failed
}

// process runs p and turns a panic into a job failure
func (r *Runner) process(ctx context.Context, p Processor, job *model.ProcessingJob) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("processor panic: %v", rec)
		}
	}()
	return p.Process(ctx, job, func(percent int) error {
		return r.queue.Progress(ctx, job, percent)
	})
}

// Rollover runs the period rollover once
func (r *Runner) Rollover(ctx context.Context) int {
	if r.roller == nil {
		return 0
	}
	n, err := r.roller.Rollover(ctx)
	if err != nil {
		r.logger.Error("period rollover failed", zap.Int("inserted", n), zap.Error(err))
	} else {
		r.logger.Info("period rollover finished", zap.Int("inserted", n))
	}
	r.observer.ObserveRollover(n)
	return n
}
