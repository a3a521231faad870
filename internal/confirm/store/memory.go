package store

import (
	"context"
	"sync"
	"time"

	"egress/internal/confirm/models"
	"egress/pkg/sentinel"
)

// TrackingOutcome records what the memory store was told about a tracking
// session. Tests use it to assert the engine applied the right side effect.
type TrackingOutcome struct {
	ClockedOutAt   *time.Time
	ExitCancelled  bool
	Inconclusive   bool
	InconcluReason models.Reason
}

// Memory is an in-memory SessionStore. It backs unit tests and single-process
// deployments; durable backends live in redis.go and postgres.go.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*models.ExitSession
	tracking map[string]*TrackingOutcome
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*models.ExitSession),
		tracking: make(map[string]*TrackingOutcome),
	}
}

func (m *Memory) Persist(_ context.Context, session *models.ExitSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.TrackingSessionID] = &copied
	return nil
}

func (m *Memory) Load(_ context.Context, trackingSessionID string) (*models.ExitSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[trackingSessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *Memory) ListPending(_ context.Context) ([]*models.ExitSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pending []*models.ExitSession
	for _, session := range m.sessions {
		if session.Status == models.StatusPending {
			copied := *session
			pending = append(pending, &copied)
		}
	}
	return pending, nil
}

func (m *Memory) Delete(_ context.Context, trackingSessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, trackingSessionID)
	return nil
}

func (m *Memory) FinalizeClockOut(_ context.Context, trackingSessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcome := m.outcomeLocked(trackingSessionID)
	outcome.ClockedOutAt = &at
	return nil
}

func (m *Memory) CancelPendingExit(_ context.Context, trackingSessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcome := m.outcomeLocked(trackingSessionID)
	outcome.ExitCancelled = true
	return nil
}

func (m *Memory) MarkInconclusive(_ context.Context, trackingSessionID string, reason models.Reason) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcome := m.outcomeLocked(trackingSessionID)
	outcome.Inconclusive = true
	outcome.InconcluReason = reason
	return nil
}

// Tracking returns the recorded side effects for a tracking session, or nil.
func (m *Memory) Tracking(trackingSessionID string) *TrackingOutcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	outcome, ok := m.tracking[trackingSessionID]
	if !ok {
		return nil
	}
	copied := *outcome
	return &copied
}

func (m *Memory) outcomeLocked(trackingSessionID string) *TrackingOutcome {
	outcome, ok := m.tracking[trackingSessionID]
	if !ok {
		outcome = &TrackingOutcome{}
		m.tracking[trackingSessionID] = outcome
	}
	return outcome
}
