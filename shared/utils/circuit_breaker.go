package utils

import (
	"errors"
	"sync"
	"time"
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	// StateClosed allows requests to pass through
	StateClosed CircuitState = "closed"
	// StateOpen blocks requests
	StateOpen CircuitState = "open"
	// StateHalfOpen allows limited requests to test if service recovered
	StateHalfOpen CircuitState = "half-open"
)

var (
	// ErrCircuitOpen is returned when circuit breaker is open
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when too many requests in half-open state
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// CircuitBreaker implements the circuit breaker pattern for calls to
// external collaborators.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mutex       sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
	halfOpenReq int
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  1,
		state:        StateClosed,
	}
}

// Call executes the given function with circuit breaker protection
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mutex.Lock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = StateHalfOpen
			cb.halfOpenReq = 0
		} else {
			cb.mutex.Unlock()
			return ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen {
		if cb.halfOpenReq >= cb.halfOpenMax {
			cb.mutex.Unlock()
			return ErrTooManyRequests
		}
		cb.halfOpenReq++
	}

	cb.mutex.Unlock()

	err := fn()

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.failures >= cb.maxFailures || cb.state == StateHalfOpen {
			cb.state = StateOpen
		}
		return err
	}

	cb.failures = 0
	cb.state = StateClosed
	return nil
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}
