// Package metrics exposes the service's Prometheus collectors. Each binary
// builds one Registry and serves it on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wessley_dtc"

// ModelBuckets cover a generative call, which runs for seconds rather than
// milliseconds.
var ModelBuckets = []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60}

// Registry owns the collectors for one process.
type Registry struct {
	reg *prometheus.Registry

	// Diagnoses counts diagnosis requests by outcome reason ("ok" on success).
	Diagnoses *prometheus.CounterVec
	// Lookups counts resolver outcomes by code kind and status.
	Lookups *prometheus.CounterVec
	// ModelLatency observes generative calls by provider and result.
	ModelLatency *prometheus.HistogramVec
	// BreakerState is 0 closed, 1 open, 2 half-open.
	BreakerState prometheus.Gauge
	// RateLimited counts requests rejected by the HTTP rate limiter.
	RateLimited prometheus.Counter
}

// New creates a Registry with the Go and process collectors attached.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Diagnoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnoses_total",
			Help:      "Diagnosis requests by outcome.",
		}, []string{"outcome"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Code definition lookups by classified kind and status.",
		}, []string{"kind", "status"}),
		ModelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Generative model call latency.",
			Buckets:   ModelBuckets,
		}, []string{"provider", "result"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_breaker_state",
			Help:      "Model circuit breaker state (0 closed, 1 open, 2 half-open).",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Diagnoses, r.Lookups, r.ModelLatency, r.BreakerState, r.RateLimited,
	)
	return r
}

// ObserveModel records one generative call that started at start.
func (r *Registry) ObserveModel(provider string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ModelLatency.WithLabelValues(provider, result).Observe(time.Since(start).Seconds())
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
