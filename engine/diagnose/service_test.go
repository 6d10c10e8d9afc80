package diagnose

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WessleyAI/wessley-dtc/engine/domain"
	"github.com/WessleyAI/wessley-dtc/engine/dtc"
	"github.com/WessleyAI/wessley-dtc/engine/llm"
	"github.com/WessleyAI/wessley-dtc/engine/oem"
	"github.com/WessleyAI/wessley-dtc/engine/resolve"
	"github.com/WessleyAI/wessley-dtc/pkg/metrics"
	"github.com/WessleyAI/wessley-dtc/pkg/resilience"
)

const goodOutput = `{
  "summary_title": "Engine misfire",
  "causes": [
    {"title": "Worn spark plugs", "why": "Most common", "severity": "High", "difficulty": "Easy",
     "confirm": ["a", "b", "c"], "fix": ["d", "e", "f"]},
    {"title": "Ignition coil", "why": "Common on this engine", "severity": "medium", "difficulty": "moderate",
     "confirm": ["a", "b", "c"], "fix": ["d", "e", "f"]}
  ]
}`

type fakeGen struct {
	out     string
	err     error
	prompts []llm.Prompt
}

func (f *fakeGen) Name() string { return "fake" }
func (f *fakeGen) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	f.prompts = append(f.prompts, p)
	return f.out, f.err
}

type memStore struct {
	defs map[string]dtc.Definition
	err  error
}

func (m *memStore) Lookup(_ context.Context, make_, code string) (*dtc.Definition, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.defs[make_+"/"+code]
	if !ok {
		return nil, nil
	}
	return &d, nil
}
func (m *memStore) Insert(context.Context, oem.Entry) (bool, error) { return false, nil }
func (m *memStore) Close() error                                    { return nil }

type countingResolver struct {
	next  Resolver
	codes []string
}

func (c *countingResolver) Resolve(ctx context.Context, raw, make_ string) (resolve.Outcome, error) {
	c.codes = append(c.codes, raw)
	return c.next.Resolve(ctx, raw, make_)
}

func newService(t *testing.T, gen *fakeGen, store oem.Store) (*Service, *countingResolver) {
	t.Helper()
	if store == nil {
		store = &memStore{defs: map[string]dtc.Definition{
			"BMW/480A12": *oem.Entry{Make: "BMW", Code: "480A12", Title: "Rear brake pad wear sensor: wear limit reached / circuit open"}.Definition(),
		}}
	}
	r, err := resolve.New(store)
	require.NoError(t, err)
	cr := &countingResolver{next: r}
	return New(cr, gen, Options{Timeout: time.Second}), cr
}

func vehicle() domain.Vehicle {
	return domain.Vehicle{Year: "2016", Make: "BMW", Model: "328i"}
}

func requireDiagErr(t *testing.T, err error) *Error {
	t.Helper()
	var de *Error
	require.True(t, errors.As(err, &de), "expected *Error, got %T: %v", err, err)
	return de
}

func TestRunGenericCode(t *testing.T) {
	gen := &fakeGen{out: goodOutput}
	s, _ := newService(t, gen, nil)

	d, err := s.Run(context.Background(), Request{Code: "p0300", Vehicle: vehicle(), Lang: "es"})
	require.NoError(t, err)
	require.Len(t, d.Causes, 2)
	assert.Equal(t, "high", d.Causes[0].Severity)
	assert.Equal(t, "easy", d.Causes[0].Difficulty)
	require.NotNil(t, d.CodeDefinition)
	assert.Equal(t, "Random/Multiple Cylinder Misfire Detected", d.CodeDefinition.Title)
	assert.Equal(t, "P0300: Random/Multiple Cylinder Misfire Detected", d.SummaryTitle)
	assert.Nil(t, d.CodeDefinitions)
	require.NotNil(t, d.Lookup)
	assert.Equal(t, resolve.StatusFound, d.Lookup.Status)
	assert.Equal(t, "es", d.Language)
	assert.Equal(t, "p0300", d.Input.Code)

	require.Len(t, gen.prompts, 1)
	p := gen.prompts[0]
	assert.Contains(t, p.User, "Vehicle: 2016 BMW 328i")
	assert.Contains(t, p.User, "P0300: Random/Multiple Cylinder Misfire Detected")
	assert.Contains(t, p.User, "do not redefine")
	assert.Contains(t, p.User, "Spanish")
	assert.NotEmpty(t, p.System)
}

func TestRunVerifiedTitleSurvivesModelOverride(t *testing.T) {
	gen := &fakeGen{out: `Sure! Here you go:
{"summary_title": "P0300: Fuel pump failure", "code_definition": {"code": "P0300", "title": "Fuel pump failure"},
 "causes": [{"title": "Fuel pump", "why": "x", "severity": "low", "difficulty": "easy", "confirm": ["a","b","c"], "fix": ["a","b","c"]}]}
Let me know if you need more.`}
	s, _ := newService(t, gen, nil)

	d, err := s.Run(context.Background(), Request{Code: "P0300", Vehicle: vehicle()})
	require.NoError(t, err)
	assert.Equal(t, "Random/Multiple Cylinder Misfire Detected", d.CodeDefinition.Title)
	assert.Equal(t, "P0300: Random/Multiple Cylinder Misfire Detected", d.SummaryTitle)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "Fuel pump failure")
}

func TestRunManufacturerCode(t *testing.T) {
	gen := &fakeGen{out: goodOutput}
	s, _ := newService(t, gen, nil)

	d, err := s.Run(context.Background(), Request{Code: "480a12", Vehicle: vehicle()})
	require.NoError(t, err)
	assert.Equal(t, "Rear brake pad wear sensor: wear limit reached / circuit open", d.CodeDefinition.Title)
	assert.Equal(t, "BMW", d.Lookup.Make)
	assert.Contains(t, gen.prompts[0].User, "(BMW manufacturer code)")
}

func TestRunMultipleCodes(t *testing.T) {
	gen := &fakeGen{out: goodOutput}
	s, cr := newService(t, gen, nil)

	d, err := s.Run(context.Background(), Request{Code: "P0171, ,p0300,P0171,480A12", Vehicle: vehicle()})
	require.NoError(t, err)
	assert.Equal(t, []string{"P0171", "p0300", "480A12"}, cr.codes)
	require.Len(t, d.CodeDefinitions, 3)
	assert.Equal(t, "P0171", d.CodeDefinition.Code)
	assert.Equal(t, "P0171: System Too Lean (Bank 1)", d.SummaryTitle)
	assert.Contains(t, gen.prompts[0].User, "Trouble codes: P0171, P0300, 480A12")
}

func TestRunResolutionFailures(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		make_    string
		status   int
		reason   Reason
		next     string
		wantMake string
	}{
		{"manufacturer absent", "480A12", "Toyota", http.StatusNotFound, ReasonManufacturerUnknown, "", "TOYOTA"},
		{"generic absent", "P3FFF", "BMW", http.StatusNotFound, ReasonGenericUnknown, NextTrySymptoms, ""},
		{"bad format", "XYZZY", "BMW", http.StatusBadRequest, ReasonBadFormat, NextCheckFormat, ""},
		{"first failure aborts batch", "P0300, XYZZY, 480A12", "BMW", http.StatusBadRequest, ReasonBadFormat, NextCheckFormat, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGen{out: goodOutput}
			s, _ := newService(t, gen, nil)
			v := vehicle()
			v.Make = tt.make_
			_, err := s.Run(context.Background(), Request{Code: tt.code, Vehicle: v})
			de := requireDiagErr(t, err)
			assert.Equal(t, tt.status, de.Status)
			assert.Equal(t, tt.reason, de.Reason)
			assert.Equal(t, tt.next, de.Next)
			assert.Equal(t, tt.wantMake, de.Make)
			assert.Empty(t, gen.prompts, "model must not be called")
		})
	}
}

type stubResolver struct{ out resolve.Outcome }

func (s stubResolver) Resolve(context.Context, string, string) (resolve.Outcome, error) {
	return s.out, nil
}

func TestRunNeedsMake(t *testing.T) {
	gen := &fakeGen{out: goodOutput}
	s := New(stubResolver{out: resolve.NeedsMake{Code: dtc.Classify("480a12")}}, gen, Options{})
	_, err := s.Run(context.Background(), Request{Code: "480a12", Vehicle: vehicle()})
	de := requireDiagErr(t, err)
	assert.Equal(t, http.StatusBadRequest, de.Status)
	assert.Equal(t, ReasonNeedsMake, de.Reason)
	assert.Equal(t, NextChooseMake, de.Next)
	assert.Equal(t, "480A12", de.Code)
	assert.Empty(t, gen.prompts)
}

func TestRunStorageFailure(t *testing.T) {
	gen := &fakeGen{out: goodOutput}
	s, _ := newService(t, gen, &memStore{err: errors.New("dial tcp: refused")})

	_, err := s.Run(context.Background(), Request{Code: "2A82", Vehicle: vehicle()})
	de := requireDiagErr(t, err)
	assert.Equal(t, http.StatusInternalServerError, de.Status)
	assert.Equal(t, ReasonStorage, de.Reason)
	assert.ErrorIs(t, err, resolve.ErrStorage)
	assert.NotContains(t, de.Message, "refused")
	assert.Empty(t, gen.prompts)
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		reason Reason
	}{
		{"empty code and symptoms", Request{Code: " ", Symptoms: "", Vehicle: vehicle()}, ReasonMissingInput},
		{"missing model", Request{Code: "P0300", Vehicle: domain.Vehicle{Year: "2016", Make: "BMW"}}, ReasonMissingVehicle},
		{"missing year", Request{Code: "P0300", Vehicle: domain.Vehicle{Make: "BMW", Model: "328i"}}, ReasonMissingVehicle},
		{"bad year", Request{Code: "P0300", Vehicle: domain.Vehicle{Year: "sixteen", Make: "BMW", Model: "328i"}}, ReasonMissingVehicle},
		{"year out of range", Request{Code: "P0300", Vehicle: domain.Vehicle{Year: "1950", Make: "BMW", Model: "328i"}}, ReasonMissingVehicle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGen{out: goodOutput}
			s, cr := newService(t, gen, nil)
			_, err := s.Run(context.Background(), tt.req)
			de := requireDiagErr(t, err)
			assert.Equal(t, http.StatusBadRequest, de.Status)
			assert.Equal(t, tt.reason, de.Reason)
			assert.Empty(t, cr.codes, "resolver must not be called")
			assert.Empty(t, gen.prompts, "model must not be called")
		})
	}
}

func TestRunSymptomsOnly(t *testing.T) {
	gen := &fakeGen{out: goodOutput}
	s, cr := newService(t, gen, nil)

	d, err := s.Run(context.Background(), Request{
		Symptoms: "rough idle, my scanner said p0171 and P0999",
		Vehicle:  vehicle(),
		Lang:     "klingon",
	})
	require.NoError(t, err)
	assert.Empty(t, cr.codes)
	assert.Nil(t, d.CodeDefinition)
	assert.Nil(t, d.Lookup)
	assert.Equal(t, "Engine misfire", d.SummaryTitle)
	assert.Equal(t, "en", d.Language)
	assert.Equal(t, []dtc.Extracted{
		{Code: "P0171", Title: "System Too Lean (Bank 1)", Found: true},
		{Code: "P0999", Title: "Unknown Powertrain Code"},
	}, d.MentionedCodes)

	p := gen.prompts[0].User
	assert.NotContains(t, p, "Verified code definitions")
	assert.NotContains(t, p, "System Too Lean")
	assert.Contains(t, p, "Owner's complaint: rough idle")
}

func TestRunGenerationFailures(t *testing.T) {
	long := strings.Repeat("x", 1000)
	tests := []struct {
		name        string
		gen         *fakeGen
		wantSnippet bool
	}{
		{"network", &fakeGen{err: errors.New("connection reset")}, false},
		{"not json", &fakeGen{out: "I cannot help with that " + long}, true},
		{"no causes", &fakeGen{out: `{"causes": []}`}, true},
		{"untitled cause", &fakeGen{out: `{"causes": [{"why": "x"}]}`}, true},
		{"broken braces", &fakeGen{out: `{"causes": [{"title": "x"}`}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newService(t, tt.gen, nil)
			d, err := s.Run(context.Background(), Request{Code: "P0300", Vehicle: vehicle()})
			assert.Nil(t, d)
			de := requireDiagErr(t, err)
			assert.Equal(t, http.StatusInternalServerError, de.Status)
			assert.Equal(t, ReasonGeneration, de.Reason)
			assert.Empty(t, de.Code)
			assert.Empty(t, de.Next)
			if tt.wantSnippet {
				assert.Contains(t, de.Message, "unusable response")
				assert.LessOrEqual(t, len(de.Message), len("model returned an unusable response: ")+SnippetLen)
			} else {
				assert.NotContains(t, de.Message, "connection reset")
			}
		})
	}
}

func TestRunBreakerOpens(t *testing.T) {
	gen := &fakeGen{err: errors.New("503")}
	r, err := resolve.New(nil)
	require.NoError(t, err)
	m := metrics.New()
	s := New(r, gen, Options{
		Breaker: resilience.NewBreaker(resilience.BreakerOpts{FailThreshold: 2, Timeout: time.Hour}),
		Metrics: m,
	})
	req := Request{Code: "P0300", Vehicle: vehicle()}

	for i := 0; i < 3; i++ {
		_, err := s.Run(context.Background(), req)
		de := requireDiagErr(t, err)
		assert.Equal(t, ReasonGeneration, de.Reason)
	}
	assert.Len(t, gen.prompts, 2, "open breaker stops calls")
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Diagnoses.WithLabelValues(string(ReasonGeneration))))
}

func TestRunTimeout(t *testing.T) {
	r, err := resolve.New(nil)
	require.NoError(t, err)
	s := New(r, blockingGen{}, Options{Timeout: 10 * time.Millisecond})
	_, err = s.Run(context.Background(), Request{Code: "P0300", Vehicle: vehicle()})
	de := requireDiagErr(t, err)
	assert.ErrorIs(t, de, context.DeadlineExceeded)
}

type blockingGen struct{}

func (blockingGen) Name() string { return "blocking" }
func (blockingGen) Generate(ctx context.Context, _ llm.Prompt) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestSplitCodes(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"P0300", []string{"P0300"}},
		{" P0300 , P0171 ", []string{"P0300", "P0171"}},
		{",,", []string{",,"}},
		{"  ", nil},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitCodes(tt.raw), "raw %q", tt.raw)
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "abc", snippet("  abc  ", 10))
	assert.Len(t, snippet(strings.Repeat("é", 400), SnippetLen), SnippetLen)
	assert.Len(t, snippet(strings.Repeat("a", 400), SnippetLen), SnippetLen)
}

func TestParseOutputAmongProse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare", goodOutput},
		{"leading prose", "Sure! Here is the diagnosis:\n" + goodOutput},
		{"braces after", "Sure! Here is the diagnosis:\n" + goodOutput + "\nLet me know if you need {more} detail."},
		{"braces before", "Output {format: json}\n" + goodOutput},
		{"fenced", "```json\n" + goodOutput + "\n```"},
		{"braces in strings", `note: {"causes": [{"title": "Loose cap {gas}", "why": "seal \"}\" worn"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := parseOutput(tt.raw)
			require.NoError(t, err)
			require.NotEmpty(t, out.Causes)
		})
	}

	out, err := parseOutput(`x {"causes": [{"title": "Loose cap {gas}"}]} y`)
	require.NoError(t, err)
	assert.Equal(t, "Loose cap {gas}", out.Causes[0].Title)

	_, err = parseOutput("only {prose} here")
	assert.ErrorIs(t, err, errNotJSON)
	_, err = parseOutput(`{"causes": [{"title": "x"}`)
	assert.ErrorIs(t, err, errNotJSON)
}

func TestObjectSpans(t *testing.T) {
	assert.Equal(t, []string{`{a}`, `{"b": "}"}`}, objectSpans(`x {a} y {"b": "}"} z } {open`))
	assert.Empty(t, objectSpans("no braces"))
}
