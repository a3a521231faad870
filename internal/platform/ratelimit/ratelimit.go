// Package ratelimit provides a per-key sliding window limiter, used to keep a
// misbehaving device from flooding the fix-upload endpoint.
package ratelimit

import (
	"sync"
	"time"
)

// Result describes the outcome of an Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// slidingWindow tracks request timestamps for one key. Sliding rather than
// fixed windows, so a burst straddling a window boundary cannot double the
// effective limit.
type slidingWindow struct {
	timestamps []time.Time
}

// SlidingWindow is an in-memory sliding window limiter. One process, one
// window per key; server-side hosts that scale out move the window into Redis
// behind the same Allow signature.
type SlidingWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*slidingWindow
	clock   func() time.Time
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *SlidingWindow) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewSlidingWindow(limit int, window time.Duration, opts ...Option) *SlidingWindow {
	s := &SlidingWindow{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*slidingWindow),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow checks whether one more request fits the key's window and records it
// if so.
func (s *SlidingWindow) Allow(key string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	sw := s.buckets[key]
	if sw == nil {
		sw = &slidingWindow{}
		s.buckets[key] = sw
	}
	sw.cleanup(now, s.window)

	if len(sw.timestamps)+1 > s.limit {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   sw.timestamps[0].Add(s.window),
			Limit:     s.limit,
		}
	}

	sw.timestamps = append(sw.timestamps, now)
	return Result{
		Allowed:   true,
		Remaining: s.limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(s.window),
		Limit:     s.limit,
	}
}

// Reset clears the window for a key.
func (s *SlidingWindow) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
}

// cleanup drops timestamps that have slid out of the window.
func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
