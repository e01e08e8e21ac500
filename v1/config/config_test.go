package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mirkobrombin/go-jobgate/v1/identity"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobgate.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if reg.Len() != len(identity.Catalog()) {
		t.Fatalf("expected catalog jobs, got %d", reg.Len())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
instance: node-a
store:
  backend: redis
  timeout: 2s
  redis:
    addr: redis:6379
    keyPrefix: "jobgate:"
  breaker:
    threshold: 3
    cooldown: 10s
events:
  backend: kafka
  kafka:
    brokers: [kafka:9092]
jobs:
  - key: SYN_LOCAL_ORDER_TO_TPL
    lease: 10m
    interval: 30s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Instance != "node-a" || cfg.Store.Backend != BackendRedis || cfg.Store.Timeout != 2*time.Second {
		t.Fatalf("unexpected store config %+v", cfg.Store)
	}
	if cfg.Store.Redis.Addr != "redis:6379" || cfg.Store.Redis.KeyPrefix != "jobgate:" {
		t.Fatalf("unexpected redis config %+v", cfg.Store.Redis)
	}
	if cfg.Store.Breaker.Threshold != 3 || cfg.Store.Breaker.Cooldown != 10*time.Second {
		t.Fatalf("unexpected breaker config %+v", cfg.Store.Breaker)
	}
	if cfg.Events.Kafka.Topic != "jobgate-runs" {
		t.Fatalf("default topic lost: %q", cfg.Events.Kafka.Topic)
	}
	if len(cfg.Jobs) != 1 {
		t.Fatalf("expected jobs to be replaced, got %d", len(cfg.Jobs))
	}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	id, ok := reg.Lookup("SYN_LOCAL_ORDER_TO_TPL")
	if !ok || id.Marker() != identity.DefaultMarker || id.Lease() != 10*time.Minute {
		t.Fatalf("unexpected identity %v ok %v", id, ok)
	}
}

func TestLoadRejectsDuplicateJobKeys(t *testing.T) {
	path := writeConfig(t, `
jobs:
  - key: PUSH_SO_TO_BD
    lease: 10m
    interval: 1m
  - key: PUSH_SO_TO_BD
    lease: 5m
    interval: 1m
`)
	if _, err := Load(path); !errors.Is(err, identity.ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"backend":  "store:\n  backend: etcd\n",
		"events":   "events:\n  backend: smoke-signals\n",
		"kafka":    "events:\n  backend: kafka\n",
		"interval": "jobs:\n  - key: A\n    lease: 1m\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
	if _, err := Load(writeConfig(t, "jobs:\n  - key: A\n    interval: 1m\n")); !errors.Is(err, identity.ErrInvalidIdentity) {
		t.Fatalf("missing lease: expected ErrInvalidIdentity, got %v", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	if _, err := Load(writeConfig(t, "stroe:\n  backend: redis\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
