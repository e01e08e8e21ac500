package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrStoreUnavailable wraps every failure that leaves the lease state unknown.
var ErrStoreUnavailable = errors.New("jobgate: lease store unavailable")

// Outcome is the result of a conditional create.
type Outcome int

const (
	// Indeterminate means the store could not be reached or answered with an
	// error; the lease may or may not exist.
	Indeterminate Outcome = iota
	// Granted means the caller created the lease.
	Granted
	// AlreadyHeld means the lease already existed and was left untouched.
	AlreadyHeld
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case AlreadyHeld:
		return "already_held"
	default:
		return "indeterminate"
	}
}

// LeaseStore is the store contract the gate relies on.
type LeaseStore interface {
	// TryAcquire atomically creates key with value and an expiry of ttl only
	// if key does not exist. A losing attempt leaves the existing TTL alone.
	// The error is non-nil if and only if the outcome is Indeterminate.
	TryAcquire(ctx context.Context, key, value string, ttl time.Duration) (Outcome, error)
	// Release deletes key. Deleting a missing key is not an error.
	Release(ctx context.Context, key string) error
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrStoreUnavailable, op, key, err)
}
