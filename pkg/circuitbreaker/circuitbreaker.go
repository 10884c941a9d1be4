package circuitbreaker

import (
	"fmt"
	"sync"
	"time"
)

// State is the breaker lifecycle position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Settings configures a breaker. MaxRequests is the consecutive failure
// count that trips it, Timeout how long it stays open before probing.
type Settings struct {
	Name        string
	MaxRequests int
	Interval    time.Duration
	Timeout     time.Duration
}

// CircuitBreaker protects an upstream call from cascading failures.
// Failures accumulate until the breaker opens; after the timeout a
// single probe call decides whether it closes again.
type CircuitBreaker struct {
	settings Settings

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	return &CircuitBreaker{settings: settings, state: StateClosed}
}

// Execute runs fn unless the breaker is open. The upstream error is
// returned as-is so callers can inspect it.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// State reports the current position for health endpoints.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}
	if time.Since(cb.lastFailure) > cb.settings.Timeout {
		cb.state = StateHalfOpen
		return nil
	}
	return fmt.Errorf("circuit breaker %s is open", cb.settings.Name)
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == StateHalfOpen || cb.failures >= cb.settings.MaxRequests {
			cb.state = StateOpen
		}
		return
	}

	cb.failures = 0
	cb.state = StateClosed
}
