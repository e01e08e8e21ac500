package lock

import (
	"context"
	stdErrors "errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	gateerrors "github.com/mirkobrombin/go-jobgate/v1/errors"
)

const defaultRedisOpTimeout = 5 * time.Second

// Redis implements LeaseStore using SET NX EX, a single atomic round trip.
type Redis struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithTimeout sets the operation timeout for Redis calls.
func WithTimeout(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithKeyPrefix namespaces every lease key, e.g. "jobgate:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis returns a new Redis lease store using the provided client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, timeout: defaultRedisOpTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TryAcquire implements LeaseStore.TryAcquire.
func (r *Redis) TryAcquire(ctx context.Context, key, value string, ttl time.Duration) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Indeterminate, unavailable("acquire", key, classifyRedisErr(err))
	}
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	ok, err := r.client.SetNX(cctx, r.prefix+key, value, ttl).Result()
	if err != nil {
		return Indeterminate, unavailable("acquire", key, classifyRedisErr(err))
	}
	if !ok {
		return AlreadyHeld, nil
	}
	return Granted, nil
}

// Release implements LeaseStore.Release.
func (r *Redis) Release(ctx context.Context, key string) error {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.client.Del(cctx, r.prefix+key).Err(); err != nil && err != redis.Nil {
		return unavailable("release", key, classifyRedisErr(err))
	}
	return nil
}

func classifyRedisErr(err error) error {
	switch {
	case stdErrors.Is(err, context.DeadlineExceeded):
		return gateerrors.ErrTimeout
	case stdErrors.Is(err, redis.ErrClosed):
		return gateerrors.ErrConnectionClosed
	default:
		return err
	}
}
