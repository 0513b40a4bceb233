// Package scheduler pre-generates daily challenges on a cron schedule so
// users find today's challenge waiting instead of generated on demand.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/HendryAvila/bizcoach/internal/logger"
)

// Pregenerator creates today's challenge for every known user.
// *coach.Service satisfies it.
type Pregenerator interface {
	PregenerateAll(ctx context.Context) (int, error)
}

// parser accepts standard five-field expressions
// (minute hour day-of-month month day-of-week).
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate reports whether spec is a usable cron expression.
func Validate(spec string) error {
	if _, err := parser.Parse(strings.TrimSpace(spec)); err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Scheduler runs the pregeneration job.
type Scheduler struct {
	spec    string
	loc     *time.Location
	job     Pregenerator
	log     *logger.Logger
	timeout time.Duration

	cron *cron.Cron

	mu      sync.Mutex
	lastRun time.Time
	lastN   int
	lastErr error
}

// New creates a Scheduler. The schedule is interpreted in loc.
func New(spec string, loc *time.Location, job Pregenerator, log *logger.Logger) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if err := Validate(spec); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Scheduler{
		spec:    spec,
		loc:     loc,
		job:     job,
		log:     log.With("component", "scheduler"),
		timeout: 10 * time.Minute,
	}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("scheduler: add job: %w", err)
	}
	return s, nil
}

// Start begins running the job in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "schedule", s.spec, "next", s.Next(time.Now()))
}

// Stop halts the scheduler and waits for a running job to finish or ctx
// to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

// Next returns the next run time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	sched, err := parser.Parse(s.spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(t.In(s.loc))
}

// RunOnce runs the job immediately. Failures are logged, never fatal.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.job.PregenerateAll(ctx)

	s.mu.Lock()
	s.lastRun, s.lastN, s.lastErr = start, n, err
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("pregeneration failed", "served", n, "error", err)
		return
	}
	s.log.Info("pregeneration complete", "served", n, "took", time.Since(start).Round(time.Millisecond))
}

// Status is the outcome of the most recent run.
type Status struct {
	Schedule string    `json:"schedule"`
	LastRun  time.Time `json:"last_run,omitempty"`
	Served   int       `json:"served"`
	Error    string    `json:"error,omitempty"`
	NextRun  time.Time `json:"next_run"`
}

// Status reports the last run and the next one.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Schedule: s.spec, LastRun: s.lastRun, Served: s.lastN, NextRun: s.Next(time.Now())}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}
