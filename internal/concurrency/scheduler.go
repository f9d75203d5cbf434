// File: internal/concurrency/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-baton cooperative scheduler with adaptive idle backoff.

package concurrency

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/momentics/hioload-arena/api"
)

const (
	minIdleBackoff = time.Microsecond
	// DefaultMaxIdleBackoff caps the sleep taken after a pass in which every
	// task only yielded.
	DefaultMaxIdleBackoff = time.Millisecond
)

type task struct {
	fn      func()
	resume  chan struct{}
	started bool
	exiting bool
}

// Scheduler runs tasks one at a time in FIFO order.
type Scheduler struct {
	mu       sync.Mutex
	ready    *queue.Queue // *task
	current  *task
	stopping bool
	activity bool

	parked  chan struct{}
	running int32
	yields  uint64

	maxBackoff time.Duration
	log        *zap.Logger
}

var (
	_ api.Yielder  = (*Scheduler)(nil)
	_ api.Unwinder = (*Scheduler)(nil)
)

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithMaxIdleBackoff caps the idle sleep. Zero disables idle sleeping.
func WithMaxIdleBackoff(d time.Duration) Option {
	return func(s *Scheduler) {
		s.maxBackoff = d
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// NewScheduler creates an empty scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		ready:      queue.New(),
		parked:     make(chan struct{}),
		maxBackoff: DefaultMaxIdleBackoff,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Go enqueues fn as a new task. It may be called from inside a task or from
// any goroutine before or during Run. Tasks queued after shutdown began are
// discarded without running.
func (s *Scheduler) Go(fn func()) {
	t := &task{fn: fn, resume: make(chan struct{})}
	s.mu.Lock()
	s.ready.Add(t)
	s.activity = true
	s.mu.Unlock()
}

// Unwinding reports whether the calling task is being torn down by a
// stopping Run. It is false outside a task.
func (s *Scheduler) Unwinding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.exiting
}

// Yield suspends the calling task until the scheduler resumes it. It must be
// called from a task started by this scheduler.
//
// Once Run's context is done a resumed task is unwound with runtime.Goexit so
// that its deferred cleanup runs. Deferred cleanup cannot wait on I/O: Yield
// from an unwinding task returns immediately and Unwinding reports true, so
// blocked operations can fail instead of spinning.
func (s *Scheduler) Yield() {
	s.mu.Lock()
	t := s.current
	if t == nil {
		s.mu.Unlock()
		panic("concurrency: Yield called outside a scheduled task")
	}
	if t.exiting {
		s.mu.Unlock()
		return
	}
	s.ready.Add(t)
	s.mu.Unlock()

	atomic.AddUint64(&s.yields, 1)
	s.parked <- struct{}{}
	<-t.resume

	s.mu.Lock()
	stopping := s.stopping
	if stopping {
		t.exiting = true
	}
	s.mu.Unlock()
	if stopping {
		runtime.Goexit()
	}
}

// Yields returns the total number of suspensions so far.
func (s *Scheduler) Yields() uint64 {
	return atomic.LoadUint64(&s.yields)
}

// Len returns the number of tasks waiting for the baton.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.Length()
}

// Run drives tasks until none are left, returning nil, or until ctx is done.
// After ctx is done every suspended task is resumed once to unwind, never
// started tasks are dropped, and Run returns ctx.Err() once the queue drains.
func (s *Scheduler) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrAlreadyRunning
	}
	defer atomic.StoreInt32(&s.running, 0)

	backoff := minIdleBackoff
	passLeft, passResumed := 0, 0
	var passYields uint64

	for {
		if !s.isStopping() && ctx.Err() != nil {
			s.mu.Lock()
			s.stopping = true
			pending := s.ready.Length()
			s.mu.Unlock()
			s.log.Debug("scheduler stopping, unwinding tasks", zap.Int("pending", pending))
		}

		if passLeft == 0 {
			s.mu.Lock()
			passLeft = s.ready.Length()
			s.activity = false
			s.mu.Unlock()
			passResumed = 0
			passYields = s.Yields()
		}

		t, ok := s.next()
		if !ok {
			if s.isStopping() {
				return ctx.Err()
			}
			return nil
		}
		passLeft--
		if t != nil {
			passResumed++
			if !t.started {
				t.started = true
				go s.runTask(t)
			} else {
				t.resume <- struct{}{}
			}
			<-s.parked
			s.mu.Lock()
			s.current = nil
			s.mu.Unlock()
		}

		if passLeft > 0 || s.isStopping() || s.maxBackoff <= 0 {
			continue
		}
		s.mu.Lock()
		idle := !s.activity && passResumed > 0 && s.Yields()-passYields == uint64(passResumed)
		s.mu.Unlock()
		if !idle {
			backoff = minIdleBackoff
			continue
		}
		if !sleepCtx(ctx, backoff) {
			continue
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

// next pops the next task and makes it current. A nil task with ok set means
// a never-started task was dropped during shutdown.
func (s *Scheduler) next() (*task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready.Length() == 0 {
		return nil, false
	}
	t := s.ready.Remove().(*task)
	if s.stopping && !t.started {
		return nil, true
	}
	s.current = t
	return t, true
}

func (s *Scheduler) runTask(t *task) {
	defer func() {
		s.mu.Lock()
		s.activity = true
		s.mu.Unlock()
		s.parked <- struct{}{}
	}()
	t.fn()
}

func (s *Scheduler) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// sleepCtx sleeps for d unless ctx is done first; it reports whether the
// full sleep elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
