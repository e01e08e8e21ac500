package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mirkobrombin/go-jobgate/v1/config"
	"github.com/mirkobrombin/go-jobgate/v1/gate"
	"github.com/mirkobrombin/go-jobgate/v1/metrics"
	"github.com/mirkobrombin/go-jobgate/v1/scheduler"
)

var (
	configPath = flag.String("config", "", "path to the YAML config file (built-in defaults when empty)")
	backend    = flag.String("backend", "", "override store.backend: memory|redis|nats|disabled")
	instance   = flag.String("instance", "", "override the instance name")
	trace      = flag.Bool("trace", false, "export spans to stdout")
	debug      = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		slog.Error("jobgate exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *instance != "" {
		cfg.Instance = *instance
	}
	if *trace {
		cfg.Tracing.Stdout = true
	}
	// Duplicate job keys abort startup here, before any gate call is served.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	reg, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("invalid job identities: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Stdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		otel.SetTracerProvider(tp)
	}

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer rt.Close()

	promReg := metrics.NewRegistry()
	metrics.RegisterGateMetrics(promReg)
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	g := gate.New(rt.store, reg,
		gate.WithLogger(logger),
		gate.WithSink(rt.sink),
		gate.WithInstance(cfg.Instance),
		gate.WithReleaseTimeout(cfg.ReleaseTimeout),
	)
	sched := scheduler.New(g, logger)
	for _, j := range cfg.Jobs {
		id, _ := reg.Lookup(j.Key)
		if err := sched.AddJob(scheduler.Job{ID: id, Every: j.Interval, Work: demoWork(logger, j.Key), RunFirst: true}); err != nil {
			return fmt.Errorf("schedule %s: %w", j.Key, err)
		}
	}

	logger.Info("jobgate started", "instance", cfg.Instance, "backend", cfg.Store.Backend, "jobs", len(cfg.Jobs))
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	logger.Info("jobgate stopped")
	return nil
}

// demoWork stands in for a real job body: it sleeps for a random while so
// that overlapping instances are visible in the logs.
func demoWork(logger *slog.Logger, key string) func(context.Context) error {
	return func(ctx context.Context) error {
		d := time.Duration(500+rand.Intn(1500)) * time.Millisecond
		logger.Info("job body running", "job", key, "for", d)
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
		return nil
	}
}
