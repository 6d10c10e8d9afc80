package diagnose

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/WessleyAI/wessley-dtc/engine/domain"
	"github.com/WessleyAI/wessley-dtc/engine/dtc"
	"github.com/WessleyAI/wessley-dtc/engine/llm"
	"github.com/WessleyAI/wessley-dtc/engine/resolve"
	"github.com/WessleyAI/wessley-dtc/pkg/fn"
	"github.com/WessleyAI/wessley-dtc/pkg/metrics"
	"github.com/WessleyAI/wessley-dtc/pkg/resilience"
)

// Resolver resolves one code for a make.
type Resolver interface {
	Resolve(ctx context.Context, rawCode, make_ string) (resolve.Outcome, error)
}

// Options configures a Service.
type Options struct {
	// Timeout bounds one generative call.
	Timeout time.Duration
	Breaker *resilience.Breaker
	Metrics *metrics.Registry
	Logger  *slog.Logger
}

// DefaultTimeout is the generative call timeout when none is set.
const DefaultTimeout = 60 * time.Second

// Service runs diagnoses.
type Service struct {
	resolver Resolver
	gen      llm.Generator
	opts     Options
	logger   *slog.Logger
	run      fn.Stage[*job, *job]
}

// job is the state of one Run.
type job struct {
	req      Request
	vehicle  domain.Vehicle
	lang     domain.Language
	symptoms string
	codes    []string
	defs     []dtc.Definition
	first    resolve.Outcome
	prompt   llm.Prompt
	raw      string
	out      *Diagnosis
}

// New creates a Service.
func New(r Resolver, gen llm.Generator, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Breaker == nil {
		opts.Breaker = resilience.NewBreaker(resilience.DefaultBreakerOpts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Service{resolver: r, gen: gen, opts: opts, logger: opts.Logger}
	s.run = fn.Pipeline(
		fn.TracedStage("diagnose.validate", s.validate),
		fn.TracedStage("diagnose.resolve", s.resolveCodes),
		fn.TracedStage("diagnose.prompt", fn.MapStage(s.buildPrompt)),
		fn.TracedStage("diagnose.generate", resilience.BreakerStage(opts.Breaker, s.generate)),
		fn.TracedStage("diagnose.parse", s.parse),
	)
	return s
}

// Run validates req, resolves its codes and asks the model for causes. Every
// failure is an *Error.
func (s *Service) Run(ctx context.Context, req Request) (*Diagnosis, error) {
	j, err := s.run(ctx, &job{req: req}).Unwrap()
	s.count(err)
	if err != nil {
		var de *Error
		if errors.As(err, &de) {
			return nil, de
		}
		// breaker rejection or cancellation between stages
		return nil, errGeneration("could not generate a diagnosis right now", err)
	}
	return j.out, nil
}

func (s *Service) count(err error) {
	if s.opts.Metrics == nil {
		return
	}
	outcome := "ok"
	var de *Error
	switch {
	case errors.As(err, &de):
		outcome = string(de.Reason)
	case err != nil:
		outcome = string(ReasonGeneration)
	}
	s.opts.Metrics.Diagnoses.WithLabelValues(outcome).Inc()
}

func (s *Service) validate(_ context.Context, j *job) fn.Result[*job] {
	j.vehicle = j.req.Vehicle.Trimmed()
	if err := domain.ValidateVehicle(j.vehicle); err != nil {
		if errors.Is(err, domain.ErrMissingField) {
			return fn.Err[*job](errMissingVehicle(err))
		}
		return fn.Err[*job](errInvalidYear(err))
	}
	j.symptoms = strings.TrimSpace(j.req.Symptoms)
	j.codes = SplitCodes(j.req.Code)
	if len(j.codes) == 0 && j.symptoms == "" {
		return fn.Err[*job](errMissingInput())
	}
	j.lang = domain.ResolveLanguage(j.req.Lang)
	return fn.Ok(j)
}

// resolveCodes resolves codes in input order. The first code without a
// verified definition fails the whole request.
func (s *Service) resolveCodes(ctx context.Context, j *job) fn.Result[*job] {
	seen := make(map[string]bool, len(j.codes))
	for _, raw := range j.codes {
		key := dtc.Normalize(raw)
		if seen[key] {
			continue
		}
		seen[key] = true

		out, err := s.resolver.Resolve(ctx, raw, j.vehicle.Make)
		if err != nil {
			s.logger.Error("code resolution failed", "code", raw, "make", j.vehicle.Make, "err", err)
			return fn.Err[*job](errStorage(err))
		}
		switch o := out.(type) {
		case resolve.Found:
			j.defs = append(j.defs, o.Definition)
			if j.first == nil {
				j.first = o
			}
		case resolve.NeedsMake:
			return fn.Err[*job](errNeedsMake(o.Code.Normalized))
		case resolve.ManufacturerAbsent:
			return fn.Err[*job](errManufacturerUnknown(o.Code.Normalized, o.Make))
		case resolve.GenericNotFound:
			return fn.Err[*job](errGenericUnknown(o.Code.Normalized))
		case resolve.Unrecognized:
			return fn.Err[*job](errBadFormat(strings.TrimSpace(raw)))
		}
	}
	return fn.Ok(j)
}

func (s *Service) buildPrompt(j *job) *job {
	codes := make([]string, 0, len(j.defs))
	for _, d := range j.defs {
		codes = append(codes, d.Code)
	}
	j.prompt = buildPrompt(j.vehicle, codes, j.defs, j.symptoms, j.lang)
	return j
}

func (s *Service) generate(ctx context.Context, j *job) fn.Result[*job] {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	raw, err := s.gen.Generate(ctx, j.prompt)
	if err != nil {
		s.logger.Error("model call failed", "provider", s.gen.Name(), "err", err)
		return fn.Err[*job](errGeneration("could not generate a diagnosis", err))
	}
	j.raw = raw
	return fn.Ok(j)
}

func (s *Service) parse(_ context.Context, j *job) fn.Result[*job] {
	mo, err := parseOutput(j.raw)
	if err != nil {
		s.logger.Warn("unusable model output", "provider", s.gen.Name(), "err", err, "bytes", len(j.raw))
		return fn.Err[*job](errGeneration("model returned an unusable response: "+snippet(j.raw, SnippetLen), err))
	}
	d := &Diagnosis{
		Vehicle:  j.vehicle,
		Input:    Input{Code: strings.TrimSpace(j.req.Code), Symptoms: j.symptoms},
		Causes:   mo.Causes,
		Language: j.lang.Code,
	}
	if len(j.defs) == 0 {
		d.SummaryTitle = strings.TrimSpace(mo.SummaryTitle)
		d.MentionedCodes = fn.Map(dtc.ExtractCodes(j.symptoms), dtc.ClassifyExtracted)
	} else {
		reassert(d, j.defs, j.first)
	}
	j.out = d
	return fn.Ok(j)
}

// reassert writes the verified definitions over the model's output. Whatever
// the model titled the codes is discarded.
func reassert(d *Diagnosis, defs []dtc.Definition, first resolve.Outcome) {
	primary := defs[0]
	d.CodeDefinition = &primary
	if len(defs) > 1 {
		d.CodeDefinitions = append([]dtc.Definition(nil), defs...)
	}
	d.SummaryTitle = primary.Code + ": " + primary.Title
	view := resolve.Describe(first)
	d.Lookup = &view
}
