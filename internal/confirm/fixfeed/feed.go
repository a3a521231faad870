// Package fixfeed implements the server-side PositionFixProvider. Devices
// push location reports over HTTP; the engine's fix requests block until a
// report fresh enough to count as evidence arrives or the deadline passes.
package fixfeed

import (
	"context"
	"sync"
	"time"

	derr "egress/pkg/domainerrors"

	"egress/internal/geo"
)

type waiter struct {
	notBefore time.Time
	ch        chan geo.Point
}

// Feed fans device-reported fixes out to pending fix requests, keyed by
// tracking session. A cached fix older than the request is never served as
// fresh evidence; stale positions are how clock-outs get fabricated.
type Feed struct {
	mu      sync.Mutex
	waiters map[string][]*waiter
	clock   func() time.Time
}

type Option func(*Feed)

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(f *Feed) {
		if clock != nil {
			f.clock = clock
		}
	}
}

func New(opts ...Option) *Feed {
	f := &Feed{
		waiters: make(map[string][]*waiter),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Report delivers a device fix to every request waiting on the tracking
// session, provided the fix was captured at or after the request began.
func (f *Feed) Report(trackingSessionID string, fix geo.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()

	remaining := f.waiters[trackingSessionID][:0]
	for _, w := range f.waiters[trackingSessionID] {
		if fix.CapturedAt.Before(w.notBefore) {
			remaining = append(remaining, w)
			continue
		}
		select {
		case w.ch <- fix:
		default:
			// Waiter already satisfied or gone.
		}
	}
	if len(remaining) == 0 {
		delete(f.waiters, trackingSessionID)
	} else {
		f.waiters[trackingSessionID] = remaining
	}
}

// RequestFix blocks until a sufficiently fresh fix arrives for the tracking
// session or ctx expires. The engine calls with a bounded deadline and treats
// the timeout as uncertain evidence.
func (f *Feed) RequestFix(ctx context.Context, trackingSessionID string) (geo.Point, error) {
	w := &waiter{
		// Small grace window: a fix captured moments before the request is
		// still current evidence for this check.
		notBefore: f.clock().Add(-10 * time.Second),
		ch:        make(chan geo.Point, 1),
	}

	f.mu.Lock()
	f.waiters[trackingSessionID] = append(f.waiters[trackingSessionID], w)
	f.mu.Unlock()

	defer f.remove(trackingSessionID, w)

	select {
	case fix := <-w.ch:
		return fix, nil
	case <-ctx.Done():
		return geo.Point{}, derr.Wrap(derr.CodeUnavailable, "position fix timed out", ctx.Err())
	}
}

func (f *Feed) remove(trackingSessionID string, target *waiter) {
	f.mu.Lock()
	defer f.mu.Unlock()

	waiters := f.waiters[trackingSessionID]
	for i, w := range waiters {
		if w == target {
			f.waiters[trackingSessionID] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(f.waiters[trackingSessionID]) == 0 {
		delete(f.waiters, trackingSessionID)
	}
}
