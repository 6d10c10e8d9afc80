package fn

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestResult(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok should be ok")
	}
	if v, err := r.Unwrap(); v != 42 || err != nil {
		t.Fatalf("Unwrap = %d, %v", v, err)
	}

	e := Err[int](errors.New("fail"))
	if e.IsOk() {
		t.Fatal("Err should not be ok")
	}
	if _, err := e.Unwrap(); err == nil || err.Error() != "fail" {
		t.Fatalf("Unwrap error = %v", err)
	}

	if _, err := Err[int](nil).Unwrap(); err == nil {
		t.Fatal("Err(nil) must still carry an error")
	}
}

func TestFromPair(t *testing.T) {
	if v, err := FromPair("abc", nil).Unwrap(); v != "abc" || err != nil {
		t.Fatalf("got %q, %v", v, err)
	}
	boom := errors.New("boom")
	r := FromPair("ignored", boom)
	if _, err := r.Unwrap(); r.IsOk() || !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	var ran []string
	step := func(name string, fail bool) Stage[int, int] {
		return func(_ context.Context, n int) Result[int] {
			ran = append(ran, name)
			if fail {
				return Err[int](errors.New(name + " failed"))
			}
			return Ok(n + 1)
		}
	}

	p := Pipeline(step("a", false), step("b", true), step("c", false))
	_, err := p(context.Background(), 0).Unwrap()
	if err == nil || err.Error() != "b failed" {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(ran, ",") != "a,b" {
		t.Fatalf("ran = %v", ran)
	}
}

func TestPipelineHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Pipeline(
		func(_ context.Context, n int) Result[int] { calls++; cancel(); return Ok(n) },
		func(_ context.Context, n int) Result[int] { calls++; return Ok(n) },
	)
	_, err := p(ctx, 1).Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestTracedStage(t *testing.T) {
	double := TracedStage("double", MapStage(func(n int) int { return n * 2 }))
	v, err := Pipeline(double, double)(context.Background(), 2).Unwrap()
	if err != nil || v != 8 {
		t.Fatalf("got %d, %v", v, err)
	}

	failing := TracedStage("fail", func(context.Context, int) Result[int] { return Err[int](errors.New("nope")) })
	if failing(context.Background(), 1).IsOk() {
		t.Fatal("expected failure to pass through TracedStage")
	}
}

func TestSliceHelpers(t *testing.T) {
	got := Unique([]string{"P0300", "P0171", "P0300", "P0171", "P0420"})
	if strings.Join(got, ",") != "P0300,P0171,P0420" {
		t.Fatalf("Unique = %v", got)
	}
	if Unique([]string(nil)) != nil {
		t.Fatal("Unique(nil) should be nil")
	}

	byLen := UniqueBy([]string{"a", "bb", "c", "dd", "eee"}, func(s string) int { return len(s) })
	if strings.Join(byLen, ",") != "a,bb,eee" {
		t.Fatalf("UniqueBy = %v", byLen)
	}

	if got := Map([]int{1, 2}, func(n int) int { return n * 10 }); got[1] != 20 {
		t.Fatalf("Map = %v", got)
	}
}

func TestRetry(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}

	attempts := 0
	r := Retry(context.Background(), opts, func(context.Context) Result[string] {
		attempts++
		if attempts < 3 {
			return Err[string](errors.New("not yet"))
		}
		return Ok("up")
	})
	if v, err := r.Unwrap(); err != nil || v != "up" || attempts != 3 {
		t.Fatalf("got %q, %v after %d attempts", v, err, attempts)
	}

	attempts = 0
	r = Retry(context.Background(), opts, func(context.Context) Result[string] {
		attempts++
		return Err[string](errors.New("down"))
	})
	if r.IsOk() || attempts != 3 {
		t.Fatalf("expected 3 failed attempts, got %d", attempts)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := RetryOpts{MaxAttempts: 5, InitialWait: time.Hour}
	r := Retry(ctx, opts, func(context.Context) Result[int] { return Err[int](errors.New("down")) })
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
