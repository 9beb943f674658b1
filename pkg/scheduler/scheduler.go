// Package scheduler runs named periodic tasks under one root context.
//
// A task never overlaps with itself: a tick that fires while the previous run
// is still active is skipped. Each run carries a generation number so a task
// can discard results that went stale while it was fetching.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	applogger "Jarvis/pkg/logger"
)

// TaskFunc is one run of a task.
type TaskFunc func(ctx context.Context, run Run) error

// Run identifies a single execution of a task.
type Run struct {
	Task       string
	Generation uint64
	StartedAt  time.Time
}

// Stats is a snapshot of a task's counters.
type Stats struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Runs     uint64        `json:"runs"`
	Skipped  uint64        `json:"skipped"`
	Failures uint64        `json:"failures"`
	LastRun  time.Time     `json:"last_run"`
	LastErr  string        `json:"last_error,omitempty"`
}

type task struct {
	name     string
	interval time.Duration
	fn       TaskFunc
	trigger  chan struct{}

	running    atomic.Bool
	generation atomic.Uint64

	mu       sync.Mutex
	runs     uint64
	skipped  uint64
	failures uint64
	lastRun  time.Time
	lastErr  string
}

// Scheduler owns the tasks and their goroutines.
type Scheduler struct {
	log   *applogger.Logger
	mu    sync.Mutex
	tasks map[string]*task
	order []string

	cancel  context.CancelFunc
	loops   sync.WaitGroup
	runs    sync.WaitGroup
	started bool
}

var (
	ErrDuplicateTask = errors.New("scheduler: task already registered")
	ErrUnknownTask   = errors.New("scheduler: unknown task")
	ErrStarted       = errors.New("scheduler: already started")
)

func New(l *applogger.Logger) *Scheduler {
	if l == nil {
		l = applogger.Nop()
	}
	return &Scheduler{log: l, tasks: make(map[string]*task)}
}

// Add registers a task. Tasks must be added before Start.
func (s *Scheduler) Add(name string, interval time.Duration, fn TaskFunc) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: task %s interval must be positive", name)
	}
	if fn == nil {
		return fmt.Errorf("scheduler: task %s has no func", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	if _, ok := s.tasks[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}
	s.tasks[name] = &task{name: name, interval: interval, fn: fn, trigger: make(chan struct{}, 1)}
	s.order = append(s.order, name)
	return nil
}

// Start runs every task once immediately and then on its interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	s.started = true

	root, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, name := range s.order {
		t := s.tasks[name]
		s.loops.Add(1)
		go s.loop(root, t)
	}
	s.log.Info("scheduler started", applogger.Int("tasks", len(s.order)))
	return nil
}

// Trigger requests an out-of-band run. It is dropped when one is pending.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	select {
	case t.trigger <- struct{}{}:
	default:
	}
	return nil
}

// Stop cancels the root context and waits for loops and in-flight runs.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.loops.Wait()
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Stats returns counters for every task in registration order.
func (s *Scheduler) Stats() []Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Stats, 0, len(s.order))
	for _, name := range s.order {
		t := s.tasks[name]
		t.mu.Lock()
		out = append(out, Stats{
			Name:     t.name,
			Interval: t.interval,
			Runs:     t.runs,
			Skipped:  t.skipped,
			Failures: t.failures,
			LastRun:  t.lastRun,
			LastErr:  t.lastErr,
		})
		t.mu.Unlock()
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	defer s.loops.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	s.dispatch(ctx, t)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx, t)
		case <-t.trigger:
			s.dispatch(ctx, t)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, t *task) {
	if ctx.Err() != nil {
		return
	}
	if !t.running.CompareAndSwap(false, true) {
		t.mu.Lock()
		t.skipped++
		t.mu.Unlock()
		s.log.Debug("task still running, tick skipped", applogger.String("task", t.name))
		return
	}
	run := Run{Task: t.name, Generation: t.generation.Add(1), StartedAt: time.Now()}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer t.running.Store(false)
		err := s.execute(ctx, t, run)

		t.mu.Lock()
		t.runs++
		t.lastRun = run.StartedAt
		t.lastErr = ""
		if err != nil {
			t.failures++
			t.lastErr = err.Error()
		}
		t.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("task failed",
				applogger.String("task", t.name),
				applogger.Any("generation", run.Generation),
				applogger.Error(err))
		}
	}()
}

func (s *Scheduler) execute(ctx context.Context, t *task, run Run) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.name, r)
		}
	}()
	return t.fn(ctx, run)
}
