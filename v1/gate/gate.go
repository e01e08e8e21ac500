// Package gate runs a unit of work only on the instance that wins a
// time-bounded lease in a shared store, so that a job scheduled on many
// instances executes at most once per lease window.
//
// Store failures and work failures never reach the caller: a tick where the
// job did not run returns nothing, and the reason is available in logs,
// metrics and run events only. Only configuration mistakes (an identity
// unknown to the gate's registry) are returned as errors.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-jobgate/v1/events"
	"github.com/mirkobrombin/go-jobgate/v1/identity"
	"github.com/mirkobrombin/go-jobgate/v1/lock"
	"github.com/mirkobrombin/go-jobgate/v1/metrics"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-jobgate/v1/gate")

var (
	// ErrUnknownIdentity is returned when Run is called with an identity the
	// gate's registry does not know, including the zero identity.
	ErrUnknownIdentity = errors.New("jobgate: unknown identity")
	// ErrWorkFailed wraps errors and panics raised by a unit of work. It is
	// logged and reported in run events, never returned.
	ErrWorkFailed = errors.New("jobgate: work failed")
)

const defaultReleaseTimeout = 5 * time.Second

// Gate admits at most one concurrent execution per identity across every
// instance sharing the same lease store. It holds no state about
// outstanding leases; the store is the only source of truth.
//
// Release deletes the lease without checking who holds it. Work that
// outlives its lease can therefore remove the lease of the next holder.
type Gate struct {
	store          lock.LeaseStore
	reg            *identity.Registry
	log            *slog.Logger
	sink           events.Sink
	instance       string
	releaseTimeout time.Duration
	now            func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger, slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

// WithSink sets where run events are sent.
func WithSink(s events.Sink) Option {
	return func(g *Gate) {
		if s != nil {
			g.sink = s
		}
	}
}

// WithInstance names this process in logs and run events. Defaults to the
// host name.
func WithInstance(name string) Option {
	return func(g *Gate) {
		if name != "" {
			g.instance = name
		}
	}
}

// WithReleaseTimeout bounds the release call, which runs detached from the
// caller's context.
func WithReleaseTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.releaseTimeout = d
		}
	}
}

// WithClock replaces time.Now for run timing.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// New returns a gate over store for the identities in reg. A nil store
// yields a disabled gate that always grants; a nil registry means
// identity.Default.
func New(store lock.LeaseStore, reg *identity.Registry, opts ...Option) *Gate {
	if store == nil {
		store = lock.Disabled{}
	}
	if reg == nil {
		reg = identity.Default
	}
	g := &Gate{
		store:          store,
		reg:            reg,
		log:            slog.Default(),
		sink:           events.Nop{},
		releaseTimeout: defaultReleaseTimeout,
		now:            time.Now,
	}
	if host, err := os.Hostname(); err == nil {
		g.instance = host
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Registry returns the identities the gate accepts.
func (g *Gate) Registry() *identity.Registry { return g.reg }

// Run executes work if the lease for id is acquired and discards any result.
// The returned error is non-nil only for ErrUnknownIdentity.
func (g *Gate) Run(ctx context.Context, id identity.Identity, work func(context.Context) error) error {
	_, _, err := Do(ctx, g, id, func(ctx context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, work(ctx)
	}, struct{}{})
	return err
}

// RunKey resolves key through the registry and calls Run.
func (g *Gate) RunKey(ctx context.Context, key string, work func(context.Context) error) error {
	id, ok := g.reg.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownIdentity, key)
	}
	return g.Run(ctx, id, work)
}

// Do executes work with input if the lease for id is acquired. ok reports
// whether a result was produced: it is false both when another instance
// holds the lease and when work failed. err is non-nil only for
// ErrUnknownIdentity, in which case the store is never contacted.
func Do[In, Out any](ctx context.Context, g *Gate, id identity.Identity, work func(context.Context, In) (Out, error), input In) (out Out, ok bool, err error) {
	if id.IsZero() || !g.reg.Contains(id) {
		return out, false, fmt.Errorf("%w: %q", ErrUnknownIdentity, id.Key())
	}

	ctx, span := tracer.Start(ctx, "gate.Run", trace.WithAttributes(
		attribute.String("jobgate.job", id.Key()),
		attribute.String("jobgate.instance", g.instance),
	))
	r := &run{id: id, runID: uuid.NewString(), startedAt: g.now()}
	defer g.finish(ctx, span, r)

	acquired, acqErr := g.store.TryAcquire(ctx, id.Key(), id.Marker(), id.Lease())
	switch acquired {
	case lock.AlreadyHeld:
		r.outcome = events.OutcomeSkipped
		g.log.InfoContext(ctx, "jobgate: lease held elsewhere, skipping run", "job", id, "run_id", r.runID)
		return out, false, nil
	case lock.Granted:
		g.log.InfoContext(ctx, "jobgate: lease acquired", "job", id, "run_id", r.runID)
	default:
		r.outcome = events.OutcomeStoreError
		r.err = acqErr
		metrics.StoreErrorCounter.WithLabelValues(id.Key(), "acquire").Inc()
		g.log.ErrorContext(ctx, "jobgate: lease state unknown, skipping run", "job", id, "run_id", r.runID, "error", acqErr)
		// The key may have been written by a half-completed acquisition, so
		// it is released anyway. This can delete a lease another instance
		// acquired in the meantime. An open breaker never reached the store,
		// so there is nothing to clean up.
		if !errors.Is(acqErr, lock.ErrCircuitOpen) {
			g.release(ctx, id, r.runID)
		}
		return out, false, nil
	}
	defer g.release(ctx, id, r.runID)

	out, werr := invoke(ctx, id, work, input)
	if werr != nil {
		r.outcome = events.OutcomeFailed
		r.err = fmt.Errorf("%w: %s: %w", ErrWorkFailed, id.Key(), werr)
		g.log.ErrorContext(ctx, "jobgate: work failed", "job", id, "run_id", r.runID, "error", werr)
		var zero Out
		return zero, false, nil
	}
	r.outcome = events.OutcomeCompleted
	return out, true, nil
}

func invoke[In, Out any](ctx context.Context, id identity.Identity, work func(context.Context, In) (Out, error), input In) (out Out, err error) {
	running := metrics.RunningGauge.WithLabelValues(id.Key())
	running.Inc()
	start := time.Now()
	defer func() {
		running.Dec()
		metrics.WorkDuration.WithLabelValues(id.Key()).Observe(time.Since(start).Seconds())
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return work(ctx, input)
}

// release deletes the lease on a context that survives caller cancellation.
func (g *Gate) release(ctx context.Context, id identity.Identity, runID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.releaseTimeout)
	defer cancel()
	if err := g.store.Release(rctx, id.Key()); err != nil {
		metrics.StoreErrorCounter.WithLabelValues(id.Key(), "release").Inc()
		g.log.WarnContext(ctx, "jobgate: lease release failed, waiting for ttl", "job", id, "run_id", runID, "error", err)
		return
	}
	g.log.DebugContext(ctx, "jobgate: lease released", "job", id, "run_id", runID)
}

type run struct {
	id        identity.Identity
	runID     string
	startedAt time.Time
	outcome   string
	err       error
}

func (g *Gate) finish(ctx context.Context, span trace.Span, r *run) {
	defer span.End()
	metrics.RunCounter.WithLabelValues(r.id.Key(), r.outcome).Inc()
	span.SetAttributes(attribute.String("jobgate.outcome", r.outcome))
	e := events.RunEvent{
		RunID:     r.runID,
		Job:       r.id.Key(),
		Instance:  g.instance,
		Outcome:   r.outcome,
		StartedAt: r.startedAt,
		Duration:  g.now().Sub(r.startedAt),
	}
	if r.err != nil {
		span.RecordError(r.err)
		span.SetStatus(codes.Error, r.outcome)
		e.Error = r.err.Error()
	}
	if err := g.sink.Emit(context.WithoutCancel(ctx), e); err != nil {
		g.log.WarnContext(ctx, "jobgate: run event not delivered", "job", r.id, "run_id", r.runID, "error", err)
	}
}
