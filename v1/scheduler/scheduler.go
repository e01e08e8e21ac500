// Package scheduler fires gated jobs on fixed intervals. Each job ticks on
// its own goroutine; whether a tick actually runs the work is decided by the
// gate, so every instance of a fleet can run the same schedule.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mirkobrombin/go-jobgate/v1/gate"
	"github.com/mirkobrombin/go-jobgate/v1/identity"
)

// ErrInvalidInterval is returned when a job is added with a non-positive interval.
var ErrInvalidInterval = errors.New("jobgate: schedule interval must be positive")

// Job is a unit of work scheduled under an identity.
type Job struct {
	ID       identity.Identity
	Every    time.Duration
	Work     func(context.Context) error
	RunFirst bool
}

// Scheduler runs jobs through a gate.
type Scheduler struct {
	gate *gate.Gate
	log  *slog.Logger

	mu   sync.Mutex
	jobs []Job
}

// New returns a scheduler submitting every tick to g.
func New(g *gate.Gate, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{gate: g, log: log}
}

// Add schedules work for id every interval. Unknown identities are rejected
// here rather than on every tick.
func (s *Scheduler) Add(id identity.Identity, every time.Duration, work func(context.Context) error) error {
	return s.AddJob(Job{ID: id, Every: every, Work: work})
}

// AddJob schedules j.
func (s *Scheduler) AddJob(j Job) error {
	if j.Every <= 0 {
		return ErrInvalidInterval
	}
	if j.ID.IsZero() || !s.gate.Registry().Contains(j.ID) {
		return gate.ErrUnknownIdentity
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, j)
	s.mu.Unlock()
	return nil
}

// Run blocks until ctx is done, ticking every job independently. It only
// returns an error when a job turns out to be misconfigured.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		g.Go(func() error {
			return s.loop(ctx, j)
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j Job) error {
	ticker := time.NewTicker(j.Every)
	defer ticker.Stop()
	s.log.Info("jobgate: job scheduled", "job", j.ID, "every", j.Every)
	if j.RunFirst {
		if err := s.gate.Run(ctx, j.ID, j.Work); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.gate.Run(ctx, j.ID, j.Work); err != nil {
				return err
			}
		}
	}
}
