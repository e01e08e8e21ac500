package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mirkobrombin/go-jobgate/v1/gate"
	"github.com/mirkobrombin/go-jobgate/v1/identity"
	"github.com/mirkobrombin/go-jobgate/v1/lock"
)

func TestAddRejectsInvalidJobs(t *testing.T) {
	s := New(gate.New(lock.NewInMemory(), nil), nil)
	noop := func(context.Context) error { return nil }
	if err := s.Add(identity.PushSOToBD, 0, noop); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if err := s.Add(identity.New("ROGUE", "", time.Minute), time.Second, noop); !errors.Is(err, gate.ErrUnknownIdentity) {
		t.Fatalf("expected ErrUnknownIdentity, got %v", err)
	}
}

func TestSchedulersShareOneExecutionPerLease(t *testing.T) {
	store := lock.NewInMemory()
	var runs atomic.Int32
	work := func(context.Context) error {
		runs.Add(1)
		time.Sleep(150 * time.Millisecond)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		s := New(gate.New(store, nil), nil)
		if err := s.AddJob(Job{ID: identity.FetchSOFromBD, Every: time.Hour, Work: work, RunFirst: true}); err != nil {
			t.Fatalf("add: %v", err)
		}
		go func() { errs <- s.Run(ctx) }()
	}
	for i := 0; i < 3; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("run: %v", err)
		}
	}
	if n := runs.Load(); n != 1 {
		t.Fatalf("expected one execution across instances, got %d", n)
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	s := New(gate.New(lock.NewInMemory(), nil), nil)
	var runs atomic.Int32
	if err := s.Add(identity.ScmPushOrderStatus, 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if runs.Load() < 2 {
		t.Fatalf("expected several ticks, got %d", runs.Load())
	}
}
