// Package llm talks to the generative model that writes diagnoses. Callers
// send one system and one user instruction and get the raw reply text back;
// interpreting it is the caller's job.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/WessleyAI/wessley-dtc/pkg/metrics"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Prompt is a single non-streaming request.
type Prompt struct {
	System string
	User   string
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	// Name identifies the provider in logs and metrics.
	Name() string
}

type observed struct {
	next Generator
	m    *metrics.Registry
}

// Observed records the latency of every call to g on m.
func Observed(g Generator, m *metrics.Registry) Generator {
	if m == nil {
		return g
	}
	return &observed{next: g, m: m}
}

func (o *observed) Name() string { return o.next.Name() }

func (o *observed) Generate(ctx context.Context, p Prompt) (string, error) {
	start := time.Now()
	out, err := o.next.Generate(ctx, p)
	o.m.ObserveModel(o.next.Name(), start, err)
	return out, err
}
