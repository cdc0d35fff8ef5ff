package pool

import (
	"errors"
	"sync"
	"time"
)

// BreakerState represents the state of the reconnect circuit breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// ErrBreakerOpen is returned while the breaker refuses reconnect attempts.
var ErrBreakerOpen = errors.New("pool: reconnect breaker is open")

// Breaker gates reconnect attempts so a dead network is not hammered once
// per release. After failureThreshold consecutive failures it opens; after
// resetTimeout a single probe attempt is allowed, and successThreshold
// successes close it again.
type Breaker struct {
	mu               sync.Mutex
	state            BreakerState
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	resetTimeout     time.Duration
	lastFailure      time.Time
}

// NewBreaker creates a breaker in the closed state.
func NewBreaker(failureThreshold, successThreshold int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		state:            BreakerClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		resetTimeout:     resetTimeout,
	}
}

// Call executes fn if the breaker allows it and records the outcome.
func (b *Breaker) Call(fn func() error) error {
	b.mu.Lock()
	if b.state == BreakerOpen {
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.state = BreakerHalfOpen
			b.successes = 0
		} else {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.successes = 0
		b.lastFailure = time.Now()
		if b.failures >= b.failureThreshold || b.state == BreakerHalfOpen {
			b.state = BreakerOpen
		}
		return err
	}
	b.failures = 0
	b.successes++
	if b.state == BreakerHalfOpen && b.successes >= b.successThreshold {
		b.state = BreakerClosed
	}
	return nil
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
