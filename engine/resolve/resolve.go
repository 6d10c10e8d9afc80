// Package resolve turns a raw code and optional make into a verified
// definition or a precise reason why none exists.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/WessleyAI/wessley-dtc/engine/dtc"
	"github.com/WessleyAI/wessley-dtc/engine/oem"
	"github.com/WessleyAI/wessley-dtc/pkg/metrics"
)

// ErrStorage wraps manufacturer store failures. It is never reported as a
// not-found outcome.
var ErrStorage = errors.New("resolve: manufacturer store unavailable")

// Resolver classifies codes and looks them up. It holds no per-call state.
type Resolver struct {
	store   oem.Store
	sources []dtc.Source
	metrics *metrics.Registry
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSources replaces the generic reference sources.
func WithSources(srcs ...dtc.Source) Option {
	return func(r *Resolver) { r.sources = srcs }
}

// WithMetrics counts outcomes on m.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver over store and the embedded generic reference.
func New(store oem.Store, opts ...Option) (*Resolver, error) {
	r := &Resolver{store: store, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	if r.sources == nil {
		srcs, err := dtc.Sources()
		if err != nil {
			return nil, fmt.Errorf("resolve: load generic reference: %w", err)
		}
		r.sources = srcs
	}
	return r, nil
}

// Resolve classifies rawCode and looks it up. make_ is only consulted for
// manufacturer codes. The error is non-nil only for store failures and
// wraps ErrStorage.
func (r *Resolver) Resolve(ctx context.Context, rawCode, make_ string) (Outcome, error) {
	code := dtc.Classify(rawCode)
	ctx, span := otel.Tracer("wessley-dtc/engine/resolve").Start(ctx, "resolve.Resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("dtc.code", code.Normalized),
		attribute.String("dtc.kind", string(code.Kind)),
	)

	out, err := r.resolve(ctx, code, make_)
	status := "error"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("manufacturer lookup failed", "code", code.Normalized, "make", make_, "err", err)
	} else {
		status = statusLabel(out)
	}
	span.SetAttributes(attribute.String("dtc.status", status))
	if r.metrics != nil {
		r.metrics.Lookups.WithLabelValues(string(code.Kind), status).Inc()
	}
	return out, err
}

func (r *Resolver) resolve(ctx context.Context, code dtc.Code, make_ string) (Outcome, error) {
	switch code.Kind {
	case dtc.KindGeneric:
		if d, ok := dtc.LookupIn(r.sources, code.Normalized); ok {
			return Found{Code: code, Definition: d}, nil
		}
		return GenericNotFound{Code: code}, nil
	case dtc.KindManufacturerHex:
		m := oem.NormalizeMake(make_)
		if m == "" {
			return NeedsMake{Code: code}, nil
		}
		if r.store == nil {
			return nil, fmt.Errorf("%w: no store configured", ErrStorage)
		}
		d, err := r.store.Lookup(ctx, m, code.Normalized)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		if d == nil {
			return ManufacturerAbsent{Code: code, Make: m}, nil
		}
		return Found{Code: code, Definition: *d}, nil
	default:
		return Unrecognized{Code: code}, nil
	}
}

func statusLabel(o Outcome) string {
	switch o.(type) {
	case Found:
		return StatusFound
	case NeedsMake:
		return "needs_make"
	default:
		return StatusNotFound
	}
}
