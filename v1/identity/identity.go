// Package identity defines the closed set of job identities a gate can run.
// An identity names the lease key used in the shared store, the marker value
// written while the lease is held and how long the lease survives when it is
// never released.
package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrDuplicateIdentity is returned when two identities share a key.
	ErrDuplicateIdentity = errors.New("jobgate: duplicate identity key")
	// ErrInvalidIdentity is returned for an empty key or a non-positive lease.
	ErrInvalidIdentity = errors.New("jobgate: invalid identity")
)

// DefaultMarker is the value stored under a held lease key. Only its
// presence matters.
const DefaultMarker = "TRUE"

// Identity is an immutable job identity. The zero value is not a valid
// identity.
type Identity struct {
	key    string
	marker string
	lease  time.Duration
}

// New returns an identity for key. An empty marker falls back to DefaultMarker.
func New(key, marker string, lease time.Duration) Identity {
	if marker == "" {
		marker = DefaultMarker
	}
	return Identity{key: key, marker: marker, lease: lease}
}

// Key is the lease identifier in the store.
func (id Identity) Key() string { return id.key }

// Marker is the value written while the lease is held.
func (id Identity) Marker() string { return id.marker }

// Lease is the time after which an unreleased lease expires on its own.
func (id Identity) Lease() time.Duration { return id.lease }

// IsZero reports whether id is the zero value.
func (id Identity) IsZero() bool { return id == Identity{} }

func (id Identity) String() string { return id.key }

// LogValue implements slog.LogValuer.
func (id Identity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("key", id.key),
		slog.Duration("lease", id.lease),
	)
}

func (id Identity) check() error {
	if id.key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidIdentity)
	}
	if id.lease <= 0 {
		return fmt.Errorf("%w: %s: lease must be positive", ErrInvalidIdentity, id.key)
	}
	return nil
}
