package lock

import (
	"context"
	"time"
)

// Disabled is a LeaseStore for deployments without a shared store. Every
// acquisition is granted, so every instance runs every job.
type Disabled struct{}

// TryAcquire implements LeaseStore.TryAcquire.
func (Disabled) TryAcquire(context.Context, string, string, time.Duration) (Outcome, error) {
	return Granted, nil
}

// Release implements LeaseStore.Release.
func (Disabled) Release(context.Context, string) error { return nil }
