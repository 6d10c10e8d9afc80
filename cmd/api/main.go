// Package main implements the diagnosis API server.
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

	"github.com/WessleyAI/wessley-dtc/engine/diagnose"
	"github.com/WessleyAI/wessley-dtc/engine/llm"
	"github.com/WessleyAI/wessley-dtc/engine/oem"
	"github.com/WessleyAI/wessley-dtc/engine/resolve"
	"github.com/WessleyAI/wessley-dtc/pkg/fn"
	"github.com/WessleyAI/wessley-dtc/pkg/metrics"
	"github.com/WessleyAI/wessley-dtc/pkg/mid"
	"github.com/WessleyAI/wessley-dtc/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	CORSOrigin  string
	Store       oem.Config
	LLMProvider string
	GeminiKey   string
	GeminiModel string
	OllamaURL   string
	OllamaModel string
	LLMTimeout  time.Duration
	RateRPS     float64
	RateBurst   int
	// TrustedProxies lists proxies whose X-Forwarded-For is honoured.
	TrustedProxies string
}

func loadConfig() Config {
	return Config{
		Port:       envOr("PORT", "8080"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
		Store: oem.Config{
			Driver:        envOr("OEM_STORE_DRIVER", "sqlite"),
			DSN:           envOr("OEM_STORE_DSN", "file:oem.db"),
			Neo4jURL:      envOr("NEO4J_URL", "neo4j://localhost:7687"),
			Neo4jUser:     envOr("NEO4J_USER", "neo4j"),
			Neo4jPass:     envOr("NEO4J_PASS", "password"),
			Neo4jDatabase: os.Getenv("NEO4J_DATABASE"),
			CacheSize:     envInt("OEM_CACHE_SIZE", 1024),
		},
		LLMProvider:    envOr("LLM_PROVIDER", "gemini"),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    envOr("GEMINI_MODEL", llm.DefaultGeminiModel),
		OllamaURL:      envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:    envOr("OLLAMA_MODEL", llm.DefaultOllamaModel),
		LLMTimeout:     envDuration("LLM_TIMEOUT", diagnose.DefaultTimeout),
		RateRPS:        envFloat("RATE_LIMIT_RPS", 1),
		RateBurst:      envInt("RATE_LIMIT_BURST", 5),
		TrustedProxies: os.Getenv("TRUSTED_PROXIES"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// a missing .env is normal outside local development
	_ = godotenv.Load()
	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func newGenerator(ctx context.Context, cfg Config) (llm.Generator, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return llm.NewGemini(ctx, llm.GeminiConfig{APIKey: cfg.GeminiKey, Model: cfg.GeminiModel})
	case "ollama":
		return llm.NewOllama(cfg.OllamaURL, cfg.OllamaModel, nil), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	// --- Manufacturer store ---
	store, err := fn.Retry(ctx, fn.StartupRetry, func(ctx context.Context) fn.Result[oem.Store] {
		s, err := oem.Open(ctx, cfg.Store, logger)
		if err != nil {
			logger.Warn("manufacturer store not reachable yet", "driver", cfg.Store.Driver, "err", err)
		}
		return fn.FromPair(s, err)
	}).Unwrap()
	if err != nil {
		return fmt.Errorf("open manufacturer store: %w", err)
	}
	defer store.Close()

	resolver, err := resolve.New(store, resolve.WithMetrics(reg), resolve.WithLogger(logger))
	if err != nil {
		return err
	}

	// --- Generative model ---
	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	breaker := resilience.NewBreaker(resilience.BreakerOpts{
		OnStateChange: func(from, to resilience.State) {
			reg.BreakerState.Set(float64(to))
			logger.Warn("model breaker state changed", "from", from.String(), "to", to.String())
		},
	})
	svc := diagnose.New(resolver, llm.Observed(gen, reg), diagnose.Options{
		Timeout: cfg.LLMTimeout,
		Breaker: breaker,
		Metrics: reg,
		Logger:  logger,
	})

	// --- HTTP server ---
	api := &server{resolver: resolver, diagnoser: svc, logger: logger}
	proxies, err := mid.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	limiter := resilience.NewKeyedLimiter(resilience.LimiterOpts{Rate: cfg.RateRPS, Burst: cfg.RateBurst})
	handler := mid.Chain(api.routes(reg.Handler()),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.OTel("wessley-dtc-api"),
		mid.CORS(cfg.CORSOrigin),
		mid.RateLimit(limiter, proxies, func(*http.Request) { reg.RateLimited.Inc() }),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "store", cfg.Store.Driver, "llm", gen.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
