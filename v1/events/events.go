// Package events publishes a record of every gate invocation so operators
// can tell "skipped because another instance held the lease" apart from
// "ran and failed", which the gate's return value deliberately hides.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// Outcome values carried by RunEvent.Outcome.
const (
	OutcomeSkipped    = "skipped"
	OutcomeCompleted  = "completed"
	OutcomeFailed     = "failed"
	OutcomeStoreError = "store_error"
)

// RunEvent describes one gate invocation.
type RunEvent struct {
	RunID     string        `json:"run_id"`
	Job       string        `json:"job"`
	Instance  string        `json:"instance,omitempty"`
	Outcome   string        `json:"outcome"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Error     string        `json:"error,omitempty"`
}

// Encode returns the JSON wire form of the event.
func (e RunEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses the JSON wire form of an event.
func Decode(data []byte) (RunEvent, error) {
	var e RunEvent
	err := json.Unmarshal(data, &e)
	return e, err
}

// Sink receives run events.
type Sink interface {
	Emit(ctx context.Context, e RunEvent) error
}

// Nop discards every event.
type Nop struct{}

// Emit implements Sink.Emit.
func (Nop) Emit(context.Context, RunEvent) error { return nil }

// Logger writes events to a slog logger.
type Logger struct {
	Log *slog.Logger
}

// Emit implements Sink.Emit.
func (l Logger) Emit(ctx context.Context, e RunEvent) error {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "jobgate: run",
		"run_id", e.RunID,
		"job", e.Job,
		"instance", e.Instance,
		"outcome", e.Outcome,
		"duration", e.Duration,
		"error", e.Error,
	)
	return nil
}

// Multi fans an event out to several sinks and joins their errors.
type Multi []Sink

// Emit implements Sink.Emit.
func (m Multi) Emit(ctx context.Context, e RunEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
