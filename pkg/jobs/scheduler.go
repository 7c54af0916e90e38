package jobs

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is one execution of scheduled work.
type Task func(context.Context) error

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Location *time.Location
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Scheduler runs a task on a cron schedule. Runs never overlap; a tick that arrives while
// the previous run is still going is skipped.
type Scheduler struct {
	name     string
	spec     string
	schedule cron.Schedule
	task     Task
	timeout  time.Duration
	location *time.Location
	logger   *zap.Logger

	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
}

var standardParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a five-field cron expression or a descriptor such as "@every 10m".
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	sched, err := standardParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return sched, nil
}

// NewScheduler builds a scheduler for task.
func NewScheduler(name, spec string, task Task, cfg SchedulerConfig) (*Scheduler, error) {
	sched, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Scheduler{
		name:     name,
		spec:     strings.TrimSpace(spec),
		schedule: sched,
		task:     task,
		timeout:  cfg.Timeout,
		location: cfg.Location,
		logger:   cfg.Logger,
	}, nil
}

// Start registers the task with the cron runner. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	cl := cronLogger{logger: s.logger.With(zap.String("scheduler", s.name))}
	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		_ = s.RunOnce(s.ctx)
	}))
	s.cron.Start()
	s.started = true
	s.logger.Sugar().Infow("scheduler started", "scheduler", s.name, "schedule", s.spec, "next", s.Next(time.Now()))
}

// Stop cancels any in-flight run and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.cron.Stop()
	s.started = false
	s.mu.Unlock()
	<-done.Done()
	s.logger.Sugar().Infow("scheduler stopped", "scheduler", s.name)
}

// Next returns the first activation after t in the scheduler's zone.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// RunOnce executes the task immediately with the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	err := s.task(ctx)
	elapsed := time.Since(started)
	if err != nil {
		s.logger.Sugar().Warnw("scheduled run failed", "scheduler", s.name, "duration", elapsed, "error", err)
		return err
	}
	s.logger.Sugar().Debugw("scheduled run complete", "scheduler", s.name, "duration", elapsed)
	return nil
}

// cronLogger routes cron runner diagnostics to zap.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
