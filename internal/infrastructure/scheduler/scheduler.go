// Package scheduler runs the platform's periodic background jobs on cron
// specs. Each job runs at most once at a time; an overlapping tick is skipped.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus is the outcome of one job execution
type JobStatus string

const (
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
	JobStatusSkipped JobStatus = "SKIPPED"
)

// Job is a named periodic task
type Job struct {
	Name string
	// Spec is a standard five field cron expression or a descriptor such as "@every 1m"
	Spec string
	// Timeout bounds one execution; zero means no limit
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler dispatches registered jobs on their cron specs
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	jobs      map[string]*guardedJob
	isRunning bool
}

// NewScheduler creates a stopped scheduler
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	adapter := cronLogger{s: logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*guardedJob),
	}
}

// Register adds a job. Names must be unique.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return ErrInvalidJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	g := &guardedJob{job: job, scheduler: s}
	if _, err := s.cron.AddJob(job.Spec, g); err != nil {
		return fmt.Errorf("%w %q for %s: %v", ErrInvalidCronSpec, job.Spec, job.Name, err)
	}
	s.jobs[job.Name] = g
	return nil
}

// Start begins dispatching
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.cron.Start()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.logger.Info("Scheduler started", zap.Strings("jobs", names))
}

// Stop halts dispatching, cancels running jobs and waits for them to return
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	s.cancel()
	stopped := s.cron.Stop()

	select {
	case <-stopped.Done():
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow executes a registered job immediately in the caller's goroutine.
// It returns ErrJobRunning when the job is already executing.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	g, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	_, err := g.execute(ctx)
	return err
}

// guardedJob keeps a job from overlapping with itself, whether started by a
// cron tick or by RunNow.
type guardedJob struct {
	job       Job
	scheduler *Scheduler
	running   sync.Mutex
}

// Run implements cron.Job
func (g *guardedJob) Run() {
	_, _ = g.execute(g.scheduler.ctx)
}

func (g *guardedJob) execute(ctx context.Context) (JobStatus, error) {
	log := g.scheduler.logger.With(zap.String("job", g.job.Name))

	if !g.running.TryLock() {
		log.Warn("Job skipped, previous run still in progress")
		return JobStatusSkipped, ErrJobRunning
	}
	defer g.running.Unlock()

	if g.job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.job.Timeout)
		defer cancel()
	}

	started := time.Now()
	err := g.job.Run(ctx)
	elapsed := time.Since(started)

	if err != nil {
		log.Error("Job failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return JobStatusFailed, err
	}
	log.Debug("Job completed", zap.Duration("elapsed", elapsed))
	return JobStatusSuccess, nil
}

// cronLogger routes robfig/cron's own logging into zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
