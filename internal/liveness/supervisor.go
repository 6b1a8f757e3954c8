// Package liveness provides the inactivity watchdog of a search operation.
//
// A Supervisor is armed when an operation starts and re-armed every time a
// merge changes the aggregate. If no re-arm happens within the budget it
// expires: Expired() is closed and the expiry callback runs, both exactly
// once. Expiry is terminal; a new operation needs a new Supervisor.
package liveness

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultBudget is the inactivity window after which an operation is aborted.
const DefaultBudget = 17500 * time.Millisecond

// Supervisor is the inactivity watchdog. It is safe for concurrent use; the
// deadline fires on a timer goroutine.
type Supervisor struct {
	mu sync.Mutex

	state State

	// gen identifies the current arm. A timer that fires with an older
	// generation was superseded and is ignored.
	gen uint64

	timer    Timer
	deadline time.Time

	expired  chan struct{}
	onExpire func()

	clock  Clock
	budget time.Duration
	logger *slog.Logger
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithBudget sets the inactivity window. Non-positive values are ignored.
func WithBudget(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.budget = d
		}
	}
}

// WithClock sets the clock used to schedule the deadline.
func WithClock(c Clock) Option {
	return func(s *Supervisor) {
		s.clock = c
	}
}

// WithOnExpire sets a callback run once, on the timer goroutine, when the
// supervisor expires.
func WithOnExpire(f func()) Option {
	return func(s *Supervisor) {
		s.onExpire = f
	}
}

// WithLogger sets the logger for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// New creates an idle Supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		state:   Idle,
		expired: make(chan struct{}),
		budget:  DefaultBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = SystemClock()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start arms the deadline. Calling it while armed re-arms.
func (s *Supervisor) Start() bool {
	return s.apply(EventStart)
}

// Touch re-arms the deadline after activity. It reports false when the
// supervisor is not armed.
func (s *Supervisor) Touch() bool {
	return s.apply(EventActivity)
}

// Stop disarms the deadline after the stream completed. It is safe to call
// in any state and more than once.
func (s *Supervisor) Stop() {
	s.apply(EventComplete)
}

// Reset disarms the deadline because the operation was abandoned.
func (s *Supervisor) Reset() {
	s.apply(EventReset)
}

// Expired returns a channel closed when the deadline passes.
func (s *Supervisor) Expired() <-chan struct{} {
	return s.expired
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Budget returns the inactivity window.
func (s *Supervisor) Budget() time.Duration {
	return s.budget
}

// Deadline returns when the current arm expires. The second return value is
// false unless the supervisor is armed.
func (s *Supervisor) Deadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Armed {
		return time.Time{}, false
	}
	return s.deadline, true
}

// apply runs one transition and reports whether the state accepted e.
func (s *Supervisor) apply(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state
	to, arm := Next(from, e)
	if from == to && !arm {
		return false
	}
	s.state = to

	s.disarm()
	if arm {
		s.arm()
	}

	if from != to {
		s.logger.Debug("liveness transition",
			"from", from.String(),
			"to", to.String(),
			"event", e.String(),
		)
	}
	return true
}

// arm schedules a new deadline. The caller holds mu.
func (s *Supervisor) arm() {
	s.gen++
	gen := s.gen
	s.deadline = s.clock.Now().Add(s.budget)
	s.timer = s.clock.AfterFunc(s.budget, func() {
		s.fire(gen)
	})
}

// disarm cancels the pending deadline. The caller holds mu.
func (s *Supervisor) disarm() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// fire handles a deadline for the arm identified by gen.
func (s *Supervisor) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != Armed {
		s.mu.Unlock()
		return
	}
	s.state = Expired
	s.timer = nil
	close(s.expired)
	cb := s.onExpire
	s.mu.Unlock()

	s.logger.Warn("operation inactive, deadline expired",
		"budget", s.budget,
	)
	if cb != nil {
		cb()
	}
}
