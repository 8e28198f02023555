// Package circuitbreaker stops calling a failing LM provider until it has had time to recover.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

type Option func(*CircuitBreaker)

// WithHalfOpenSuccesses sets how many consecutive probe successes close the circuit
func WithHalfOpenSuccesses(n int) Option {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.halfOpenMax = n
		}
	}
}

// WithStateChange registers a callback invoked on every transition.
// It runs with the breaker's lock released.
func WithStateChange(fn func(from, to State)) Option {
	return func(cb *CircuitBreaker) {
		cb.onChange = fn
	}
}

func withClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

type CircuitBreaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time

	maxFailures int
	timeout     time.Duration
	halfOpenMax int
	onChange    func(from, to State)
	now         func() time.Time
}

func New(maxFailures int, timeout time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		state:       StateClosed,
		maxFailures: maxFailures,
		timeout:     timeout,
		halfOpenMax: 3,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	if cb.state != StateOpen {
		cb.mu.Unlock()
		return nil
	}
	if cb.now().Sub(cb.lastFailure) <= cb.timeout {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	from := cb.transition(StateHalfOpen)
	cb.mu.Unlock()

	cb.notify(from, StateHalfOpen)
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	from := cb.state
	to := from

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		// a failed probe reopens immediately
		if from == StateHalfOpen || cb.failures >= cb.maxFailures {
			to = StateOpen
		}
	} else if from == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.halfOpenMax {
			to = StateClosed
		}
	} else {
		cb.failures = 0
	}

	if to != from {
		cb.transition(to)
	}
	cb.mu.Unlock()

	if to != from {
		cb.notify(from, to)
	}
}

// transition must be called with mu held
func (cb *CircuitBreaker) transition(to State) State {
	from := cb.state
	cb.state = to
	switch to {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes = 0
	}
	return from
}

func (cb *CircuitBreaker) notify(from, to State) {
	if cb.onChange != nil {
		cb.onChange(from, to)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
