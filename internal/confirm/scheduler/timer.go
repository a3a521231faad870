// Package scheduler provides the in-process CheckScheduler used by the
// server-side host. Mobile hosts substitute their platform's notification or
// background-task scheduler behind the same port.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CheckFunc is invoked once per scheduled offset with the session id and the
// zero-based index of the check that came due.
type CheckFunc func(exitSessionID uuid.UUID, checkIndex int)

// Timer schedules checks on time.AfterFunc. Cancellation is best-effort: a
// timer that has already fired cannot be recalled, which is exactly the
// condition the engine's terminal-state guard exists for.
type Timer struct {
	mu      sync.Mutex
	fire    CheckFunc
	pending map[uuid.UUID][]*time.Timer
	stopped bool
}

func NewTimer(fire CheckFunc) *Timer {
	return &Timer{
		fire:    fire,
		pending: make(map[uuid.UUID][]*time.Timer),
	}
}

// ScheduleChecks arranges one callback per offset, measured from now. Offsets
// are expected ascending; the scheduler does not re-order them.
func (t *Timer) ScheduleChecks(_ context.Context, exitSessionID uuid.UUID, offsets []time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil
	}

	// Rescheduling replaces: stop anything still registered for this session
	// so old timers cannot fire alongside the new schedule.
	for _, timer := range t.pending[exitSessionID] {
		timer.Stop()
	}

	timers := make([]*time.Timer, 0, len(offsets))
	for i, offset := range offsets {
		index := i
		timers = append(timers, time.AfterFunc(offset, func() {
			t.fire(exitSessionID, index)
		}))
	}
	t.pending[exitSessionID] = timers
	return nil
}

// CancelChecks stops all timers still pending for the session.
func (t *Timer) CancelChecks(_ context.Context, exitSessionID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, timer := range t.pending[exitSessionID] {
		timer.Stop()
	}
	delete(t.pending, exitSessionID)
	return nil
}

// Stop cancels everything and refuses new work. Called on shutdown.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for _, timers := range t.pending {
		for _, timer := range timers {
			timer.Stop()
		}
	}
	t.pending = make(map[uuid.UUID][]*time.Timer)
}
