package llm

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Failing, reject calls
	CircuitHalfOpen                     // Testing recovery
)

// String returns a human-readable label for the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// StateListener is notified after every state transition. It is called with
// the breaker's lock held and must not call back into the breaker.
type StateListener func(from, to CircuitState)

// CircuitBreaker implements a per-provider circuit breaker pattern.
// When a provider fails consecutively beyond the threshold, the circuit
// opens and subsequent calls are rejected without hitting the provider.
// After a recovery timeout, the circuit transitions to half-open and
// lets exactly one probe call through to test recovery.
type CircuitBreaker struct {
	mu               sync.RWMutex
	state            CircuitState
	failureCount     int
	failureThreshold int           // consecutive failures to trip
	recoveryTimeout  time.Duration // how long to wait before probing
	openedAt         time.Time     // when the circuit opened
	probing          bool          // a half-open probe is in flight
	now              func() time.Time
	listener         StateListener
}

// NewCircuitBreaker creates a circuit breaker with the given thresholds.
// failureThreshold: number of consecutive failures before opening the circuit.
// recoveryTimeout: how long to wait before allowing a probe request.
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
	}
}

// OnStateChange installs a transition listener.
func (cb *CircuitBreaker) OnStateChange(l StateListener) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.listener = l
}

// Allow checks whether a request should be allowed through.
// In half-open only the first caller is admitted until it reports back.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) >= cb.recoveryTimeout {
			cb.transition(CircuitHalfOpen)
			cb.probing = true
			return true
		}
		return false
	case CircuitHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
	return false
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.probing = false
	if cb.state == CircuitHalfOpen {
		cb.transition(CircuitClosed)
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.probing = false

	if cb.state == CircuitHalfOpen {
		// Any failure in half-open immediately re-opens
		cb.openedAt = cb.now()
		cb.transition(CircuitOpen)
		return
	}

	if cb.state == CircuitClosed && cb.failureCount >= cb.failureThreshold {
		cb.openedAt = cb.now()
		cb.transition(CircuitOpen)
	}
}

// Release returns an admitted half-open probe without a verdict, e.g. when
// the caller cancelled. The next caller may probe instead.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forces the circuit back to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.probing = false
	cb.transition(CircuitClosed)
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	if from != to && cb.listener != nil {
		cb.listener(from, to)
	}
}
