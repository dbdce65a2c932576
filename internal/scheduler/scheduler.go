// Package scheduler fires registered jobs on cron expressions in a fixed time zone.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one recurring task.
type Job struct {
	// ID identifies the job. Registering an existing ID replaces the earlier entry.
	ID string
	// Spec is a standard five-field cron expression, or a descriptor such as "@weekly".
	Spec string
	Run  func(ctx context.Context)
}

// Scheduler wraps cron.Cron with ID-keyed registration.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
}

// New creates a stopped Scheduler that evaluates specs in loc.
func New(loc *time.Location, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.Named("scheduler")
	cronLogger := zapLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Register adds job, replacing any job registered under the same ID.
func (s *Scheduler) Register(job Job) error {
	if job.ID == "" {
		return errors.New("job id is required")
	}
	if job.Run == nil {
		return fmt.Errorf("job %s: run func is required", job.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entryID, err := s.cron.AddFunc(job.Spec, func() { job.Run(s.ctx) })
	if err != nil {
		return fmt.Errorf("job %s: parse schedule %q: %w", job.ID, job.Spec, err)
	}
	if previous, ok := s.entries[job.ID]; ok {
		s.cron.Remove(previous)
		s.logger.Info("replaced scheduled job", zap.String("job_id", job.ID))
	}
	s.entries[job.ID] = entryID
	s.logger.Info("scheduled job", zap.String("job_id", job.ID), zap.String("spec", job.Spec))
	return nil
}

// Next returns the next fire time of the job with id.
func (s *Scheduler) Next(id string) (time.Time, bool) {
	s.mu.Lock()
	entryID, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(entryID)
	if !entry.Valid() {
		return time.Time{}, false
	}
	if entry.Next.IsZero() {
		return entry.Schedule.Next(time.Now().In(s.cron.Location())), true
	}
	return entry.Next, true
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling, cancels the context handed to jobs and waits for running jobs
// until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

// zapLogger adapts zap to cron.Logger.
type zapLogger struct {
	logger *zap.Logger
}

func (l zapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l zapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
