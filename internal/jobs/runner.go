// Package jobs runs the recurring background work: the daily renewal
// reminder sweep and the system log cleanup.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"

	"github.com/subsmanager/backend/internal/logging"
)

var (
	ErrAlreadyStarted = errors.New("job runner already started")
	ErrDuplicateJob   = errors.New("job already registered")
	ErrJobNotFound    = errors.New("job not registered")
	ErrJobRunning     = errors.New("job is already running")
)

type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// JobFunc is one unit of scheduled work. A returned error is logged and
// reported; it never stops the schedule.
type JobFunc func(ctx context.Context) error

type job struct {
	name   string
	fn     JobFunc
	state  atomic.Int32
	logger *slog.Logger
}

// Run implements cron.Job.
func (j *job) Run() {
	_ = j.run(context.Background())
}

func (j *job) run(ctx context.Context) (err error) {
	if !j.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		j.logger.Warn("previous run still in progress, skipping")
		return ErrJobRunning
	}
	defer j.state.Store(int32(StateIdle))

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
			sentry.CurrentHub().Recover(r)
			j.logger.Error("job panicked", "error", err, "latency_ms", time.Since(start).Milliseconds())
		}
	}()

	if err = j.fn(ctx); err != nil {
		sentry.CaptureException(err)
		j.logger.Error("job failed", "error", err, "latency_ms", time.Since(start).Milliseconds())
		return err
	}
	j.logger.Info("job completed", "latency_ms", time.Since(start).Milliseconds())
	return nil
}

// Runner owns the process-wide schedule. Jobs are registered before or after
// Start; Stop waits for in-flight runs.
type Runner struct {
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	jobs    map[string]*job
	started bool
}

func NewRunner(loc *time.Location, logger *slog.Logger) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := logging.NewCronLogger(logger)
	return &Runner{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

// Register schedules fn under a standard five-field cron spec.
func (r *Runner) Register(name, spec string, fn JobFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	j := &job{name: name, fn: fn, logger: r.logger.With("job", name, "action", name)}
	if _, err := r.cron.AddJob(spec, j); err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	r.jobs[name] = j
	r.logger.Info("job registered", "job", name, "schedule", spec)
	return nil
}

func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}
	r.cron.Start()
	r.started = true
	r.logger.Info("job runner started", "jobs", len(r.jobs))
	return nil
}

// Stop halts the schedule and waits for running jobs until ctx is done.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	r.mu.Unlock()

	select {
	case <-r.cron.Stop().Done():
		r.logger.Info("job runner stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// RunNow runs a registered job synchronously, outside its schedule.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	j, err := r.lookup(name)
	if err != nil {
		return err
	}
	return j.run(ctx)
}

func (r *Runner) State(name string) State {
	j, err := r.lookup(name)
	if err != nil {
		return StateIdle
	}
	return State(j.state.Load())
}

// Next is the next scheduled run of the job, zero before Start.
func (r *Runner) Next(name string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[name]
	if !ok {
		return time.Time{}
	}
	for _, e := range r.cron.Entries() {
		if e.Job == cron.Job(j) {
			return e.Next
		}
	}
	return time.Time{}
}

func (r *Runner) lookup(name string) (*job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return j, nil
}
