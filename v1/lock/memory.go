package lock

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// InMemory implements LeaseStore using local memory. It coordinates every
// gate sharing the same instance, which makes it suitable for tests and
// single-process deployments.
type InMemory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// InMemoryOption configures an InMemory store.
type InMemoryOption func(*InMemory)

// WithClock replaces time.Now, mainly so tests can move time forward.
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemory) {
		s.now = now
	}
}

// NewInMemory returns an empty in-memory lease store.
func NewInMemory(opts ...InMemoryOption) *InMemory {
	s := &InMemory{entries: make(map[string]entry), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TryAcquire implements LeaseStore.TryAcquire.
func (s *InMemory) TryAcquire(ctx context.Context, key, value string, ttl time.Duration) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Indeterminate, unavailable("acquire", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok {
		if e.expiresAt.IsZero() || now.Before(e.expiresAt) {
			return AlreadyHeld, nil
		}
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.entries[key] = e
	return Granted, nil
}

// Release implements LeaseStore.Release.
func (s *InMemory) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Get returns the value and remaining TTL of a live lease.
func (s *InMemory) Get(key string) (string, time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", 0, false
	}
	if e.expiresAt.IsZero() {
		return e.value, 0, true
	}
	remaining := e.expiresAt.Sub(s.now())
	if remaining <= 0 {
		delete(s.entries, key)
		return "", 0, false
	}
	return e.value, remaining, true
}
