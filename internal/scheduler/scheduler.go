// Package scheduler triggers the pipeline jobs on their cron cadence and
// on demand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/common/retry"

	"github.com/go-co-op/gocron"
)

var (
	ErrUnknownJob     = errors.New("UNKNOWN_JOB")
	ErrAlreadyRunning = errors.New("JOB_ALREADY_RUNNING")
)

// JobFunc runs one job invocation and returns its result (run summary or
// quality report).
type JobFunc func(ctx context.Context) (interface{}, error)

// Job describes one registered job.
type Job struct {
	Name     string
	Cron     string
	Policy   retry.Policy
	Timeout  time.Duration
	Run      JobFunc
	inFlight sync.Mutex
}

// Scheduler wraps a gocron scheduler running in UTC. A job never overlaps
// itself, whether started by the cadence or by RunNow.
type Scheduler struct {
	cron   *gocron.Scheduler
	jobs   map[string]*Job
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	logger logger.Logger
}

func New(log logger.Logger) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron,
		jobs:   make(map[string]*Job),
		ctx:    ctx,
		cancel: cancel,
		logger: log.WithFields(map[string]interface{}{"component": "scheduler"}),
	}
}

// Register adds a job on a standard five-field cron expression.
func (s *Scheduler) Register(job *Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job name and run function are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}

	if _, err := s.cron.Cron(job.Cron).Tag(job.Name).Do(func() { s.scheduled(job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Cron, err)
	}
	s.jobs[job.Name] = job

	s.logger.Info("job registered", map[string]interface{}{
		"job":        job.Name,
		"cron":       job.Cron,
		"maxRetries": job.Policy.MaxRetries,
		"retryDelay": job.Policy.Delay.String(),
	})
	return nil
}

// Start runs the cadence until Stop or until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.StartAsync()
	s.logger.Info("scheduler started", nil)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.ctx.Done():
		}
	}()
}

// Stop halts the cadence and cancels in-flight scheduled runs.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.cron.IsRunning() {
		s.cron.Stop()
		s.logger.Info("scheduler stopped", nil)
	}
}

// NextRun returns when the named job is next due.
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	jobs, err := s.cron.FindJobsByTag(name)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return jobs[0].NextRun(), nil
}

// RunNow runs the named job once, without retries, and returns its result.
func (s *Scheduler) RunNow(ctx context.Context, name string) (interface{}, error) {
	job, err := s.job(name)
	if err != nil {
		return nil, err
	}
	if !job.inFlight.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
	}
	defer job.inFlight.Unlock()

	s.logger.Info("manual run triggered", map[string]interface{}{"job": name})
	return s.invoke(ctx, job)
}

func (s *Scheduler) job(name string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return job, nil
}

// scheduled is the cadence entry point: the run is retried under the job's
// policy while its error is retryable.
func (s *Scheduler) scheduled(job *Job) {
	if !job.inFlight.TryLock() {
		s.logger.Warn("previous run still in progress, skipping", map[string]interface{}{"job": job.Name})
		return
	}
	defer job.inFlight.Unlock()

	start := time.Now()
	err := retry.Do(s.ctx, job.Policy, s.logger, job.Name, func(ctx context.Context) error {
		_, err := s.invoke(ctx, job)
		return err
	})
	if err != nil {
		s.logger.Error("scheduled run failed", map[string]interface{}{
			"job":        job.Name,
			"error":      err,
			"durationMs": time.Since(start).Milliseconds(),
		})
		return
	}
	s.logger.Info("scheduled run finished", map[string]interface{}{
		"job":        job.Name,
		"durationMs": time.Since(start).Milliseconds(),
	})
}

func (s *Scheduler) invoke(ctx context.Context, job *Job) (interface{}, error) {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	return job.Run(ctx)
}
