package presets

import (
	nats "github.com/nats-io/nats.go"
	redis "github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-jobgate/v1/gate"
	"github.com/mirkobrombin/go-jobgate/v1/identity"
	"github.com/mirkobrombin/go-jobgate/v1/lock"
)

// RedisOptions configures the connection to Redis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisGate creates a gate for the built-in catalog using Redis as the
// lease store. This is the usual production setup: every instance of the
// fleet points at the same Redis.
func NewRedisGate(opts RedisOptions, gateOpts ...gate.Option) *gate.Gate {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return gate.New(lock.NewRedis(client), identity.Default, gateOpts...)
}

// NewNATSGate creates a gate for the built-in catalog storing leases in
// JetStream key-value buckets reached through conn.
func NewNATSGate(conn *nats.Conn, gateOpts ...gate.Option) (*gate.Gate, error) {
	store, err := lock.NewNATS(conn)
	if err != nil {
		return nil, err
	}
	return gate.New(store, identity.Default, gateOpts...), nil
}

// NewInMemoryGate creates a gate for the built-in catalog that coordinates
// only callers inside this process. Useful for local development and tests.
func NewInMemoryGate(gateOpts ...gate.Option) *gate.Gate {
	return gate.New(lock.NewInMemory(), identity.Default, gateOpts...)
}

// NewDisabledGate creates a gate that always grants, for environments with
// no shared store.
func NewDisabledGate(gateOpts ...gate.Option) *gate.Gate {
	return gate.New(lock.Disabled{}, identity.Default, gateOpts...)
}
