// Package jobs runs submitted closures on a fixed pool of worker goroutines.
//
// The queue is unbounded so a running job can always resubmit itself without
// blocking its worker. There is no ordering, priority or cancellation: every
// accepted job runs exactly once.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-vox/internal/logger"
)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("jobs: system closed")

// Func is a unit of work.
type Func func()

type job struct {
	label string
	fn    Func
}

// System is a worker pool with an unbounded FIFO queue.
type System struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []job
	head   int
	closed bool

	// active counts queued plus running jobs; idle is closed when it reaches zero.
	active int
	idle   chan struct{}

	workers int
	group   errgroup.Group

	submitted atomic.Uint64
	completed atomic.Uint64
	panics    atomic.Uint64
}

// New starts a pool with the given number of workers.
// A non-positive count uses one worker per CPU, minus one for the owning thread.
func New(workers int) *System {
	if workers <= 0 {
		workers = max(runtime.NumCPU()-1, 1)
	}
	s := &System{
		workers: workers,
		idle:    make(chan struct{}),
	}
	close(s.idle)
	s.cond = sync.NewCond(&s.mu)

	for i := range workers {
		s.group.Go(func() error {
			s.work(i)
			return nil
		})
	}
	logger.Named("jobs").Info("job system started", zap.Int("workers", workers))
	return s
}

// Workers returns the number of worker goroutines.
func (s *System) Workers() int {
	return s.workers
}

// Submit queues fn for execution. label appears in logs if the job panics.
func (s *System) Submit(label string, fn Func) error {
	if fn == nil {
		panic("jobs: Submit with nil func")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("submit %q: %w", label, ErrClosed)
	}
	if s.active == 0 {
		s.idle = make(chan struct{})
	}
	s.active++
	s.queue = append(s.queue, job{label: label, fn: fn})
	s.mu.Unlock()

	s.submitted.Add(1)
	s.cond.Signal()
	return nil
}

// Pending returns the number of queued and running jobs.
func (s *System) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stats returns lifetime counters.
func (s *System) Stats() (submitted, completed, panics uint64) {
	return s.submitted.Load(), s.completed.Load(), s.panics.Load()
}

// WaitIdle blocks until no job is queued or running, or ctx is done.
// Jobs submitted by running jobs keep the system busy.
func (s *System) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, runs what is already queued and waits for the
// workers to exit.
func (s *System) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()

	_ = s.group.Wait()
	logger.Named("jobs").Info("job system stopped",
		zap.Uint64("submitted", s.submitted.Load()),
		zap.Uint64("completed", s.completed.Load()),
	)
}

func (s *System) next() (job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.head == len(s.queue) && !s.closed {
		s.cond.Wait()
	}
	if s.head == len(s.queue) {
		return job{}, false
	}
	j := s.queue[s.head]
	s.queue[s.head] = job{}
	s.head++
	if s.head == len(s.queue) {
		s.queue = s.queue[:0]
		s.head = 0
	}
	return j, true
}

func (s *System) finish() {
	s.completed.Add(1)
	s.mu.Lock()
	s.active--
	if s.active == 0 {
		close(s.idle)
	}
	s.mu.Unlock()
}

func (s *System) work(id int) {
	for {
		j, ok := s.next()
		if !ok {
			return
		}
		s.run(id, j)
		s.finish()
	}
}

func (s *System) run(id int, j job) {
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			logger.Named("jobs").Error("job panicked",
				zap.String("label", j.label),
				zap.Int("worker", id),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	j.fn()
}
