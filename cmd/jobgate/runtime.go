package main

import (
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	nats "github.com/nats-io/nats.go"
	redis "github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-jobgate/v1/config"
	"github.com/mirkobrombin/go-jobgate/v1/events"
	"github.com/mirkobrombin/go-jobgate/v1/lock"
)

// runtime owns the connections behind the store and the event sink.
type runtime struct {
	store   lock.LeaseStore
	sink    events.Sink
	closers []func() error
}

func newRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{}
	var natsConn *nats.Conn
	connectNATS := func() (*nats.Conn, error) {
		if natsConn != nil {
			return natsConn, nil
		}
		conn, err := nats.Connect(cfg.Store.NATS.URL, nats.Name("jobgate-"+cfg.Instance))
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		natsConn = conn
		rt.closers = append(rt.closers, func() error { conn.Close(); return nil })
		return conn, nil
	}

	switch cfg.Store.Backend {
	case config.BackendMemory:
		rt.store = lock.NewInMemory()
	case config.BackendDisabled:
		rt.store = lock.Disabled{}
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		rt.closers = append(rt.closers, client.Close)
		rt.store = lock.NewRedis(client,
			lock.WithTimeout(cfg.Store.Timeout),
			lock.WithKeyPrefix(cfg.Store.Redis.KeyPrefix),
		)
	case config.BackendNATS:
		conn, err := connectNATS()
		if err != nil {
			rt.Close()
			return nil, err
		}
		opts := []lock.NATSOption{
			lock.WithBucketPrefix(cfg.Store.NATS.BucketPrefix),
			lock.WithRequestTimeout(cfg.Store.Timeout),
		}
		if cfg.Store.NATS.FileStorage {
			opts = append(opts, lock.WithFileStorage())
		}
		store, err := lock.NewNATS(conn, opts...)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("jetstream: %w", err)
		}
		rt.store = store
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.Store.Backend)
	}
	if cfg.Store.Breaker.Threshold > 0 {
		rt.store = lock.NewCircuitBreaker(rt.store, cfg.Store.Breaker.Threshold, cfg.Store.Breaker.Cooldown)
	}

	switch cfg.Events.Backend {
	case "", config.EventsNone:
		rt.sink = events.Nop{}
	case config.EventsLog:
		rt.sink = events.Logger{Log: logger}
	case config.EventsKafka:
		kcfg := sarama.NewConfig()
		kcfg.ClientID = "jobgate"
		sink, err := events.NewKafkaSink(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic, kcfg)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		rt.closers = append(rt.closers, sink.Close)
		rt.sink = sink
	case config.EventsNATS:
		conn, err := connectNATS()
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.sink = events.NewNATSSink(conn, cfg.Events.SubjectPrefix)
	default:
		rt.Close()
		return nil, fmt.Errorf("%w: unknown events backend %q", config.ErrInvalidConfig, cfg.Events.Backend)
	}
	return rt, nil
}

// Close releases connections in reverse order of creation.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i]()
	}
	rt.closers = nil
}
