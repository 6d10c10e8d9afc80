package oem

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

type readyState int32

const (
	stateUninitialized readyState = iota
	stateReady
)

// readiness runs a store's schema and seed step until it succeeds once.
// Concurrent first callers share one attempt; a failed attempt leaves the
// store uninitialized so the next call tries again.
type readiness struct {
	state   atomic.Int32
	group   singleflight.Group
	timeout time.Duration
}

func (r *readiness) ready() bool {
	return readyState(r.state.Load()) == stateReady
}

func (r *readiness) ensure(ctx context.Context, setup func(context.Context) error) error {
	if r.ready() {
		return nil
	}
	_, err, _ := r.group.Do("ensure", func() (any, error) {
		if r.ready() {
			return nil, nil
		}
		// a single caller's cancellation must not fail the others waiting here
		sctx := context.WithoutCancel(ctx)
		if r.timeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(sctx, r.timeout)
			defer cancel()
		}
		if err := setup(sctx); err != nil {
			return nil, err
		}
		r.state.Store(int32(stateReady))
		return nil, nil
	})
	return err
}
