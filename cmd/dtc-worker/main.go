// Package main serves code resolution and extraction over NATS
// request/reply for services that do not call the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/wessley-dtc/engine/oem"
	"github.com/WessleyAI/wessley-dtc/engine/resolve"
	"github.com/WessleyAI/wessley-dtc/pkg/fn"
	"github.com/WessleyAI/wessley-dtc/pkg/metrics"
	"github.com/WessleyAI/wessley-dtc/pkg/natsutil"
)

// Subjects served by the worker.
const (
	SubjectResolve = "dtc.resolve"
	SubjectExtract = "dtc.extract"
	// SubjectResolved carries a resolve.View for every answered resolution.
	SubjectResolved = "dtc.resolved"
	queueGroup      = "dtc-worker"
)

// Config holds all environment-based configuration.
type Config struct {
	NATSURL        string
	Store          oem.Config
	HandlerTimeout time.Duration
	MetricsPort    string
}

func loadConfig() Config {
	cache, err := strconv.Atoi(os.Getenv("OEM_CACHE_SIZE"))
	if err != nil {
		cache = 1024
	}
	timeout, err := time.ParseDuration(os.Getenv("HANDLER_TIMEOUT"))
	if err != nil || timeout <= 0 {
		timeout = nats.DefaultTimeout
	}
	return Config{
		NATSURL:        envOr("NATS_URL", nats.DefaultURL),
		HandlerTimeout: timeout,
		MetricsPort:    envOr("METRICS_PORT", "9091"),
		Store: oem.Config{
			Driver:        envOr("OEM_STORE_DRIVER", "sqlite"),
			DSN:           envOr("OEM_STORE_DSN", "file:oem.db"),
			Neo4jURL:      envOr("NEO4J_URL", "neo4j://localhost:7687"),
			Neo4jUser:     envOr("NEO4J_USER", "neo4j"),
			Neo4jPass:     envOr("NEO4J_PASS", "password"),
			Neo4jDatabase: os.Getenv("NEO4J_DATABASE"),
			CacheSize:     cache,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func metricsMux(reg *metrics.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", reg.Handler())
	return mux
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	if err := run(loadConfig(), logger); err != nil {
		logger.Error("worker exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := fn.Retry(ctx, fn.StartupRetry, func(ctx context.Context) fn.Result[oem.Store] {
		return fn.FromPair[oem.Store](oem.Open(ctx, cfg.Store, logger))
	}).Unwrap()
	if err != nil {
		return fmt.Errorf("open manufacturer store: %w", err)
	}
	defer store.Close()

	reg := metrics.New()
	resolver, err := resolve.New(store, resolve.WithMetrics(reg), resolve.WithLogger(logger))
	if err != nil {
		return err
	}

	// --- Metrics ---
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metricsMux(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	nc, err := fn.Retry(ctx, fn.StartupRetry, func(context.Context) fn.Result[*nats.Conn] {
		return fn.FromPair[*nats.Conn](nats.Connect(cfg.NATSURL,
			nats.Name("dtc-worker"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				logger.Info("nats reconnected", "url", c.ConnectedUrl())
			}),
		))
	}).Unwrap()
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	announce := func(ctx context.Context, v resolve.View) error {
		return natsutil.Publish(ctx, nc, SubjectResolved, v)
	}
	if _, err := natsutil.Respond(nc, SubjectResolve, queueGroup, cfg.HandlerTimeout, resolveHandler(resolver, announce, logger)); err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectResolve, err)
	}
	if _, err := natsutil.Respond(nc, SubjectExtract, queueGroup, cfg.HandlerTimeout, extractHandler); err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectExtract, err)
	}
	logger.Info("dtc worker serving", "nats", cfg.NATSURL, "store", cfg.Store.Driver)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}
