// Package scheduler runs named jobs on cron schedules with bounded-grace shutdown.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"wallet-sync/internal/observability"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Job is a named unit of scheduled work.
type Job struct {
	Name     string
	Schedule cron.Schedule
	Run      func(ctx context.Context) error

	// RunOnStart runs the job once immediately when the scheduler starts.
	RunOnStart bool
}

// Every returns a schedule that fires d after the previous run completes.
// Delays below one second are rounded up to one second.
func Every(d time.Duration) cron.Schedule {
	return cron.Every(d)
}

// ParseCron parses a standard five-field cron spec (e.g. "0 2 * * *").
func ParseCron(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	return sched, nil
}

// Scheduler owns a fixed set of jobs. Each job runs in its own loop and the
// next fire time is computed after the previous run finishes, so a job
// never overlaps itself.
type Scheduler struct {
	jobs   []Job
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	started   bool
	stopOnce  sync.Once
	stopCh    chan struct{}
	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
}

// Options for creating a Scheduler.
type Options struct {
	Jobs   []Job
	Logger *zap.Logger
	Now    func() time.Time
}

// New creates a new Scheduler.
func New(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		jobs:   opts.Jobs,
		logger: logger,
		now:    now,
		stopCh: make(chan struct{}),
	}
}

// Start launches one loop per job and returns immediately.
// Jobs receive a context derived from ctx that Stop cancels once its grace
// period has expired.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	for _, job := range s.jobs {
		if job.Name == "" || job.Schedule == nil || job.Run == nil {
			return fmt.Errorf("invalid job %q: name, schedule and run are required", job.Name)
		}
	}

	s.started = true
	s.runCtx, s.cancelRun = context.WithCancel(ctx)

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(job)
		s.logger.Info("job scheduled",
			zap.String("job", job.Name),
			zap.Time("next_run", job.Schedule.Next(s.now())),
			zap.Bool("run_on_start", job.RunOnStart),
		)
	}
	return nil
}

// Stop prevents new runs and waits for in-flight runs until ctx is done.
// If ctx expires first, the run context is cancelled and ctx.Err() is returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancelRun()
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancelRun()
		s.logger.Warn("scheduler grace period expired, cancelling in-flight jobs")
		return ctx.Err()
	}
}

func (s *Scheduler) loop(job Job) {
	defer s.wg.Done()

	if job.RunOnStart && !s.stopping() {
		s.run(job)
	}

	for {
		now := s.now()
		next := job.Schedule.Next(now)
		if next.IsZero() {
			s.logger.Warn("job has no next run time", zap.String("job", job.Name))
			return
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-s.runCtx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if s.stopping() {
			return
		}
		s.run(job)
	}
}

func (s *Scheduler) stopping() bool {
	select {
	case <-s.stopCh:
		return true
	case <-s.runCtx.Done():
		return true
	default:
		return false
	}
}

// run executes a job once. Errors and panics are logged and never end the loop.
func (s *Scheduler) run(job Job) {
	start := time.Now()
	logger := s.logger.With(zap.String("job", job.Name))

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		return job.Run(s.runCtx)
	}()

	elapsed := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
		logger.Error("job failed", zap.Duration("duration", elapsed), zap.Error(err))
	} else {
		logger.Debug("job completed", zap.Duration("duration", elapsed))
	}
	observability.RecordJobRun(job.Name, status, elapsed.Seconds())
}
