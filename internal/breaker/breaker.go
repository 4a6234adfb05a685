// Package breaker implements a per-source circuit breaker that stops calls
// to a consistently failing upstream for a cooldown period.
package breaker

import (
	"sync"
	"time"
)

// State is the externally visible breaker state.
type State string

const (
	// StateClosed indicates normal operation.
	StateClosed State = "CLOSED"
	// StateOpen indicates the breaker is rejecting calls.
	StateOpen State = "OPEN"
	// StateHalfOpen indicates the reset timeout has elapsed and one trial
	// call is permitted.
	StateHalfOpen State = "HALF_OPEN"
)

// CircuitBreaker tracks consecutive failures against one upstream source.
// Safe for concurrent use.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureCount     int
	lastFailureTime  time.Time
	failureThreshold int
	resetTimeout     time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// New creates a breaker that opens after failureThreshold consecutive
// failures and permits a trial call once resetTimeout has elapsed.
func New(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// CanExecute reports whether a call may proceed. It is true while CLOSED or
// HALF_OPEN; false only while strictly OPEN within the reset window.
// Read-only: no state transition happens here.
func (cb *CircuitBreaker) CanExecute() bool {
	return cb.State() != StateOpen
}

// State derives the current breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.failureCount < cb.failureThreshold {
		return StateClosed
	}
	if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		return StateHalfOpen
	}
	return StateOpen
}

// RecordSuccess resets the breaker to CLOSED.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.lastFailureTime = time.Time{}
}

// RecordFailure counts a failure and stamps the failure time.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()
}

// FailureCount returns the current consecutive failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}
