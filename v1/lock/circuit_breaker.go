package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is wrapped in the error of an acquisition refused by an
// open CircuitBreaker. Such an acquisition never reached the store.
var ErrCircuitOpen = errors.New("jobgate: circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// CircuitBreaker decorates a LeaseStore so that an unhealthy store is not
// hammered by every scheduler tick. While open, acquisitions report
// Indeterminate without reaching the store.
type CircuitBreaker struct {
	store     LeaseStore
	mu        sync.Mutex
	state     state
	failures  int
	threshold int
	timeout   time.Duration
	lastFail  time.Time
	now       func() time.Time
}

// NewCircuitBreaker returns a breaker that opens after threshold consecutive
// failures and probes the store again once timeout has elapsed.
func NewCircuitBreaker(store LeaseStore, threshold int, timeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &CircuitBreaker{
		store:     store,
		threshold: threshold,
		timeout:   timeout,
		state:     stateClosed,
		now:       time.Now,
	}
}

// IsHealthy returns true if the circuit is closed or ready to probe.
func (cb *CircuitBreaker) IsHealthy() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == stateOpen {
		return cb.now().Sub(cb.lastFail) > cb.timeout
	}
	return true
}

// allow handles the transition from open to half-open. Only one probe is
// let through while half-open.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateClosed:
		return true
	case stateOpen:
		if cb.now().Sub(cb.lastFail) > cb.timeout {
			cb.state = stateHalfOpen
			return true
		}
		return false
	}
	return false
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = stateClosed
	cb.failures = 0
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.lastFail = cb.now()
	cb.failures++
	if cb.state == stateHalfOpen || cb.failures >= cb.threshold {
		cb.state = stateOpen
	}
}

// TryAcquire implements LeaseStore.TryAcquire.
func (cb *CircuitBreaker) TryAcquire(ctx context.Context, key, value string, ttl time.Duration) (Outcome, error) {
	if !cb.allow() {
		return Indeterminate, unavailable("acquire", key, ErrCircuitOpen)
	}
	out, err := cb.store.TryAcquire(ctx, key, value, ttl)
	if err != nil {
		cb.onFailure()
		return Indeterminate, err
	}
	cb.onSuccess()
	return out, nil
}

// Release implements LeaseStore.Release. Releases are always forwarded: a
// lease granted before the circuit opened still has to be deleted. Callers
// must not release after an acquisition refused with ErrCircuitOpen.
func (cb *CircuitBreaker) Release(ctx context.Context, key string) error {
	err := cb.store.Release(ctx, key)
	if err != nil {
		cb.onFailure()
		return err
	}
	return nil
}
