package models

import (
	"time"

	"github.com/google/uuid"

	"egress/internal/geo"
)

// Status is the lifecycle state of an exit-confirmation attempt. Everything
// except StatusPending is terminal.
type Status string

const (
	StatusPending      Status = "pending"
	StatusConfirmed    Status = "confirmed"
	StatusCancelled    Status = "cancelled"
	StatusInconclusive Status = "inconclusive"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Reason distinguishes why a session reached its terminal status, mainly so
// the stale-timeout path stays observable as its own thing.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonFinalOutside   Reason = "final_check_outside"
	ReasonReturnedInside Reason = "returned_inside"
	ReasonReEntry        Reason = "re_entry"
	ReasonFinalUncertain Reason = "final_check_uncertain"
	ReasonStaleTimeout   Reason = "stale_timeout"
	ReasonManual         Reason = "manual"
	ReasonSuperseded     Reason = "superseded"
)

// ManualAction is what the user chose while a confirmation was still pending.
type ManualAction string

const (
	ManualClockOut ManualAction = "clock_out"
	ManualCancel   ManualAction = "cancel"
)

// ExitSession is one outstanding attempt to confirm that a worker really left
// a geofence. The fence is a snapshot taken at detection time; later edits to
// the location's fence do not retroactively change an in-flight confirmation.
type ExitSession struct {
	ID                 uuid.UUID          `json:"id"`
	TrackingSessionID  string             `json:"tracking_session_id"`
	Fence              geo.Fence          `json:"fence"`
	DetectedAt         time.Time          `json:"detected_at"`
	CheckIndex         int                `json:"check_index"`
	TotalChecks        int                `json:"total_checks"`
	LastClassification geo.Classification `json:"last_classification"`
	Status             Status             `json:"status"`
	Reason             Reason             `json:"reason"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewExitSession creates a pending session with no checks fired yet.
func NewExitSession(trackingSessionID string, fence geo.Fence, detectedAt time.Time, totalChecks int, now time.Time) *ExitSession {
	return &ExitSession{
		ID:                 uuid.New(),
		TrackingSessionID:  trackingSessionID,
		Fence:              fence,
		DetectedAt:         detectedAt,
		CheckIndex:         0,
		TotalChecks:        totalChecks,
		LastClassification: geo.ClassUnknown,
		Status:             StatusPending,
		Reason:             ReasonNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// FinalCheck reports whether the session is on its last scheduled check.
func (s *ExitSession) FinalCheck() bool {
	return s.CheckIndex == s.TotalChecks-1
}

// Outcome is the resolution of an exit session as published to event sinks.
type Outcome string

const (
	OutcomeConfirmed    Outcome = "confirmed"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomeInconclusive Outcome = "inconclusive"
)

// OutcomeForStatus maps a terminal status to its published outcome.
func OutcomeForStatus(s Status) Outcome {
	switch s {
	case StatusConfirmed:
		return OutcomeConfirmed
	case StatusCancelled:
		return OutcomeCancelled
	default:
		return OutcomeInconclusive
	}
}

// ResolvedEvent is emitted once per session when it reaches a terminal status.
// Fire-and-forget: consumers drive notifications and reporting off it.
type ResolvedEvent struct {
	ExitSessionID     uuid.UUID `json:"exit_session_id"`
	TrackingSessionID string    `json:"tracking_session_id"`
	Outcome           Outcome   `json:"outcome"`
	Reason            Reason    `json:"reason"`
	// ClockOutAt is set only for confirmed outcomes and carries the original
	// detection time, not the time of the verifying check.
	ClockOutAt *time.Time `json:"clock_out_at,omitempty"`
	ResolvedAt time.Time  `json:"resolved_at"`
}
