// Package config loads the YAML configuration of the jobgate binary.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mirkobrombin/go-jobgate/v1/identity"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendNATS     = "nats"
	BackendDisabled = "disabled"
)

// Event sink backends.
const (
	EventsNone  = "none"
	EventsLog   = "log"
	EventsKafka = "kafka"
	EventsNATS  = "nats"
)

var ErrInvalidConfig = errors.New("jobgate: invalid config")

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

type NATSConfig struct {
	URL          string `yaml:"url"`
	BucketPrefix string `yaml:"bucketPrefix"`
	FileStorage  bool   `yaml:"fileStorage"`
}

// BreakerConfig enables the circuit breaker when Threshold is positive.
type BreakerConfig struct {
	Threshold int           `yaml:"threshold"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

type StoreConfig struct {
	Backend string        `yaml:"backend"`
	Timeout time.Duration `yaml:"timeout"`
	Redis   RedisConfig   `yaml:"redis"`
	NATS    NATSConfig    `yaml:"nats"`
	Breaker BreakerConfig `yaml:"breaker"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type EventsConfig struct {
	Backend       string      `yaml:"backend"`
	Kafka         KafkaConfig `yaml:"kafka"`
	SubjectPrefix string      `yaml:"subjectPrefix"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type TracingConfig struct {
	Stdout bool `yaml:"stdout"`
}

// JobConfig declares one identity and how often it is scheduled.
type JobConfig struct {
	Key      string        `yaml:"key"`
	Marker   string        `yaml:"marker"`
	Lease    time.Duration `yaml:"lease"`
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	Instance       string        `yaml:"instance"`
	ReleaseTimeout time.Duration `yaml:"releaseTimeout"`
	Store          StoreConfig   `yaml:"store"`
	Events         EventsConfig  `yaml:"events"`
	Metrics        MetricsConfig `yaml:"metrics"`
	Tracing        TracingConfig `yaml:"tracing"`
	Jobs           []JobConfig   `yaml:"jobs"`
}

// Default returns a configuration running the built-in catalog every minute
// against an in-memory store.
func Default() *Config {
	cfg := &Config{
		ReleaseTimeout: 5 * time.Second,
		Store: StoreConfig{
			Backend: BackendMemory,
			Timeout: 5 * time.Second,
			Redis:   RedisConfig{Addr: "localhost:6379"},
			NATS:    NATSConfig{URL: "nats://localhost:4222", BucketPrefix: "jobgate"},
			Breaker: BreakerConfig{Cooldown: 30 * time.Second},
		},
		Events:  EventsConfig{Backend: EventsLog, Kafka: KafkaConfig{Topic: "jobgate-runs"}, SubjectPrefix: "jobgate.runs"},
		Metrics: MetricsConfig{Addr: ":2112"},
	}
	for _, id := range identity.Catalog() {
		cfg.Jobs = append(cfg.Jobs, JobConfig{
			Key:      id.Key(),
			Marker:   id.Marker(),
			Lease:    id.Lease(),
			Interval: time.Minute,
		})
	}
	return cfg
}

// Load reads path on top of Default and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backends, intervals and the identity list. Duplicate job
// keys surface as identity.ErrDuplicateIdentity.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendRedis, BackendNATS, BackendDisabled:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	switch c.Events.Backend {
	case "", EventsNone, EventsLog, EventsNATS:
	case EventsKafka:
		if len(c.Events.Kafka.Brokers) == 0 || c.Events.Kafka.Topic == "" {
			return fmt.Errorf("%w: kafka events need brokers and a topic", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown events backend %q", ErrInvalidConfig, c.Events.Backend)
	}
	if c.Events.Backend == EventsNATS && c.Store.NATS.URL == "" {
		return fmt.Errorf("%w: nats events need store.nats.url", ErrInvalidConfig)
	}
	for _, j := range c.Jobs {
		if j.Interval <= 0 {
			return fmt.Errorf("%w: job %s: interval must be positive", ErrInvalidConfig, j.Key)
		}
	}
	_, err := c.Registry()
	return err
}

// Registry builds the identity registry declared by Jobs.
func (c *Config) Registry() (*identity.Registry, error) {
	ids := make([]identity.Identity, 0, len(c.Jobs))
	for _, j := range c.Jobs {
		ids = append(ids, identity.New(j.Key, j.Marker, j.Lease))
	}
	return identity.NewRegistry(ids...)
}
