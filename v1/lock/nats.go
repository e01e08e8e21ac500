package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	nats "github.com/nats-io/nats.go"

	gateerrors "github.com/mirkobrombin/go-jobgate/v1/errors"
)

const (
	leaseEntry           = "lease"
	defaultNATSOpTimeout = 5 * time.Second
)

// NATS implements LeaseStore on JetStream key-value buckets. JetStream
// applies TTLs per bucket, so every lease key gets its own bucket named
// "<prefix>_<key>" whose MaxAge is the lease duration of the first
// acquisition. kv.Create is the atomic conditional create.
type NATS struct {
	js      nats.JetStreamContext
	prefix  string
	storage nats.StorageType
	timeout time.Duration

	mu      sync.Mutex
	buckets map[string]nats.KeyValue
}

// NATSOption configures a NATS store.
type NATSOption func(*NATS)

// WithBucketPrefix changes the bucket name prefix, "jobgate" by default.
func WithBucketPrefix(prefix string) NATSOption {
	return func(n *NATS) {
		if prefix != "" {
			n.prefix = prefix
		}
	}
}

// WithFileStorage keeps leases on disk instead of in server memory.
func WithFileStorage() NATSOption {
	return func(n *NATS) {
		n.storage = nats.FileStorage
	}
}

// WithRequestTimeout bounds every JetStream request made by the store.
func WithRequestTimeout(d time.Duration) NATSOption {
	return func(n *NATS) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// NewNATS returns a lease store using the JetStream context of conn.
func NewNATS(conn *nats.Conn, opts ...NATSOption) (*NATS, error) {
	n := &NATS{
		prefix:  "jobgate",
		storage: nats.MemoryStorage,
		timeout: defaultNATSOpTimeout,
		buckets: make(map[string]nats.KeyValue),
	}
	for _, opt := range opts {
		opt(n)
	}
	js, err := conn.JetStream(nats.MaxWait(n.timeout))
	if err != nil {
		return nil, err
	}
	n.js = js
	return n, nil
}

func (n *NATS) bucket(key string, ttl time.Duration) (nats.KeyValue, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if kv, ok := n.buckets[key]; ok {
		return kv, nil
	}
	name := n.prefix + "_" + key
	kv, err := n.js.KeyValue(name)
	if errors.Is(err, nats.ErrBucketNotFound) {
		if ttl <= 0 {
			return nil, err
		}
		kv, err = n.js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:  name,
			History: 1,
			TTL:     ttl,
			Storage: n.storage,
		})
	}
	if err != nil {
		return nil, err
	}
	n.buckets[key] = kv
	return kv, nil
}

// TryAcquire implements LeaseStore.TryAcquire.
func (n *NATS) TryAcquire(ctx context.Context, key, value string, ttl time.Duration) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Indeterminate, unavailable("acquire", key, err)
	}
	kv, err := n.bucket(key, ttl)
	if err != nil {
		return Indeterminate, unavailable("acquire", key, classifyNATSErr(err))
	}
	if _, err := kv.Create(leaseEntry, []byte(value)); err != nil {
		if errors.Is(err, nats.ErrKeyExists) {
			return AlreadyHeld, nil
		}
		return Indeterminate, unavailable("acquire", key, classifyNATSErr(err))
	}
	return Granted, nil
}

// Release implements LeaseStore.Release.
func (n *NATS) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("release", key, err)
	}
	kv, err := n.bucket(key, 0)
	if errors.Is(err, nats.ErrBucketNotFound) {
		return nil
	}
	if err != nil {
		return unavailable("release", key, classifyNATSErr(err))
	}
	if err := kv.Delete(leaseEntry); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return unavailable("release", key, classifyNATSErr(err))
	}
	return nil
}

func classifyNATSErr(err error) error {
	switch {
	case errors.Is(err, nats.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", gateerrors.ErrTimeout, err)
	case errors.Is(err, nats.ErrConnectionClosed):
		return fmt.Errorf("%w: %w", gateerrors.ErrConnectionClosed, err)
	default:
		return err
	}
}
