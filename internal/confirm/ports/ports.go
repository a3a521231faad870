// Package ports declares the collaborator contracts the confirmation engine
// consumes. Hosts supply the implementations; the engine never talks to a
// platform API directly.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"egress/internal/confirm/models"
	"egress/internal/geo"
)

// PositionFixProvider supplies a fresh position fix on demand. Implementations
// must honor ctx cancellation; the engine calls with a bounded deadline and
// treats any error as uncertain evidence, never as a fatal condition.
type PositionFixProvider interface {
	RequestFix(ctx context.Context, trackingSessionID string) (geo.Point, error)
}

// CheckScheduler arranges future invocations of the engine's OnCheckFired for
// a session, one per offset measured from now. Delivery timing is best-effort
// (OS power management may delay it); cancellation is best-effort too, so the
// engine keeps its own terminal-state guard.
type CheckScheduler interface {
	ScheduleChecks(ctx context.Context, exitSessionID uuid.UUID, offsets []time.Duration) error
	CancelChecks(ctx context.Context, exitSessionID uuid.UUID) error
}

// SessionStore persists exit-confirmation sessions and applies the resolution
// side effects on the underlying tracking/work session storage.
type SessionStore interface {
	// Persist writes the current snapshot of a session (insert or update).
	Persist(ctx context.Context, session *models.ExitSession) error
	// Load returns the active session for a tracking session, or
	// sentinel.ErrNotFound when none exists.
	Load(ctx context.Context, trackingSessionID string) (*models.ExitSession, error)
	// ListPending returns all sessions still pending, for reaping and for
	// resume-on-restart.
	ListPending(ctx context.Context) ([]*models.ExitSession, error)
	// Delete removes a session snapshot after it has reached a terminal
	// status and collaborators have been notified.
	Delete(ctx context.Context, trackingSessionID string) error

	// FinalizeClockOut closes the tracking session at the given timestamp,
	// which is the original exit-detection time.
	FinalizeClockOut(ctx context.Context, trackingSessionID string, at time.Time) error
	// CancelPendingExit clears the pending exit so the tracking session keeps
	// running as if no exit had been detected.
	CancelPendingExit(ctx context.Context, trackingSessionID string) error
	// MarkInconclusive leaves the tracking session open and flagged for
	// external reconciliation, with the reason recorded for observability.
	MarkInconclusive(ctx context.Context, trackingSessionID string, reason models.Reason) error
}

// EventSink receives session-resolved events. Fire-and-forget from the
// engine's point of view; sinks own their delivery semantics.
type EventSink interface {
	Publish(ctx context.Context, event models.ResolvedEvent) error
}
