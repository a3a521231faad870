// Package service holds the exit-confirmation state machine. The engine owns
// ExitSession lifecycles: it consumes geofence crossings, scheduled check
// callbacks, and manual resolutions, and decides whether a detected exit is
// confirmed, cancelled, or inconclusive.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"egress/internal/confirm/metrics"
	"egress/internal/confirm/models"
	"egress/internal/confirm/ports"
	"egress/internal/geo"
	derr "egress/pkg/domainerrors"
)

// Config tunes the confirmation cycle. Offsets are measured from the exit
// detection; their count is the number of verification checks per session.
type Config struct {
	CheckOffsets []time.Duration
	FixTimeout   time.Duration
	StaleTimeout time.Duration
}

// DefaultConfig mirrors the production tuning: three checks over five minutes,
// a five second fix budget, and a day before a silent session counts as stale.
func DefaultConfig() Config {
	return Config{
		CheckOffsets: []time.Duration{60 * time.Second, 180 * time.Second, 300 * time.Second},
		FixTimeout:   5 * time.Second,
		StaleTimeout: 24 * time.Hour,
	}
}

func (c Config) validate() error {
	if len(c.CheckOffsets) == 0 {
		return derr.New(derr.CodeBadRequest, "at least one check offset is required")
	}
	for i := 1; i < len(c.CheckOffsets); i++ {
		if c.CheckOffsets[i] <= c.CheckOffsets[i-1] {
			return derr.New(derr.CodeBadRequest, "check offsets must be strictly ascending")
		}
	}
	if c.FixTimeout <= 0 {
		return derr.New(derr.CodeBadRequest, "fix timeout must be positive")
	}
	if c.StaleTimeout <= 0 {
		return derr.New(derr.CodeBadRequest, "stale timeout must be positive")
	}
	return nil
}

// Engine is the exit-confirmation state machine. All public entry points
// serialize per tracking session; competing transitions on the same session
// resolve to exactly one winner and the losers no-op.
type Engine struct {
	cfg       Config
	fixes     ports.PositionFixProvider
	scheduler ports.CheckScheduler
	store     ports.SessionStore
	events    ports.EventSink
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     func() time.Time
	tracer    trace.Tracer

	locks *keyedMutex

	mu       sync.RWMutex
	active   map[string]*models.ExitSession
	byExitID map[uuid.UUID]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithMetrics attaches domain metrics. Nil is allowed and means no metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New builds an Engine. All collaborators are required; the host wires
// platform-specific implementations behind the ports.
func New(
	cfg Config,
	fixes ports.PositionFixProvider,
	checkScheduler ports.CheckScheduler,
	store ports.SessionStore,
	events ports.EventSink,
	logger *slog.Logger,
	opts ...Option,
) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		fixes:     fixes,
		scheduler: checkScheduler,
		store:     store,
		events:    events,
		logger:    logger,
		clock:     time.Now,
		tracer:    otel.Tracer("egress/confirm"),
		locks:     newKeyedMutex(),
		active:    make(map[string]*models.ExitSession),
		byExitID:  make(map[uuid.UUID]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// OnExitDetected starts a confirmation session for a reported geofence exit.
// A prior pending session for the same tracking session is superseded: its
// scheduled checks are cancelled and the new session takes its place. The
// returned error is retryable persistence/scheduling trouble; the session is
// live in memory either way.
func (e *Engine) OnExitDetected(ctx context.Context, trackingSessionID string, fence geo.Fence, detectedAt time.Time) (*models.ExitSession, error) {
	ctx, span := e.tracer.Start(ctx, "confirm.OnExitDetected")
	defer span.End()

	if trackingSessionID == "" {
		return nil, derr.New(derr.CodeBadRequest, "tracking session id is required")
	}
	if err := fence.Validate(); err != nil {
		return nil, err
	}
	if detectedAt.IsZero() {
		return nil, derr.New(derr.CodeBadRequest, "detection timestamp is required")
	}

	unlock := e.locks.lock(trackingSessionID)
	defer unlock()

	if prior := e.lookup(trackingSessionID); prior != nil && prior.Status == models.StatusPending {
		// Supersede: kill the old schedule, drop the old entity. The tracking
		// session store is untouched; the new session owns the outcome now.
		if err := e.scheduler.CancelChecks(ctx, prior.ID); err != nil {
			e.logger.WarnContext(ctx, "failed to cancel checks for superseded session",
				"tracking_session_id", trackingSessionID,
				"exit_session_id", prior.ID,
				"error", err.Error(),
			)
		}
		e.unregister(prior)
		if e.metrics != nil {
			e.metrics.SessionsSuperseded.Inc()
		}
		e.logger.InfoContext(ctx, "superseding pending exit session",
			"tracking_session_id", trackingSessionID,
			"exit_session_id", prior.ID,
		)
	}

	now := e.clock()
	session := models.NewExitSession(trackingSessionID, fence, detectedAt, len(e.cfg.CheckOffsets), now)
	e.register(session)

	var retryable error
	if err := e.store.Persist(ctx, session); err != nil {
		if e.metrics != nil {
			e.metrics.PersistFailures.Inc()
		}
		e.logger.ErrorContext(ctx, "failed to persist new exit session",
			"tracking_session_id", trackingSessionID,
			"error", err.Error(),
		)
		retryable = fmt.Errorf("persist exit session: %w", err)
	}

	if err := e.scheduler.ScheduleChecks(ctx, session.ID, e.cfg.CheckOffsets); err != nil {
		// The session stays pending; the reaper is the backstop if no check
		// ever fires.
		e.logger.ErrorContext(ctx, "failed to schedule verification checks",
			"tracking_session_id", trackingSessionID,
			"exit_session_id", session.ID,
			"error", err.Error(),
		)
		retryable = errors.Join(retryable, fmt.Errorf("schedule checks: %w", err))
	}

	if e.metrics != nil {
		e.metrics.SessionsStarted.Inc()
	}
	e.logger.InfoContext(ctx, "exit confirmation started",
		"tracking_session_id", trackingSessionID,
		"exit_session_id", session.ID,
		"fence_id", fence.ID,
		"total_checks", session.TotalChecks,
	)

	copied := *session
	return &copied, retryable
}

// OnCheckFired processes one scheduled verification check. Late or duplicate
// fires — a cancelled timer that slipped through, a check index the session
// has moved past — are silent no-ops.
func (e *Engine) OnCheckFired(ctx context.Context, exitSessionID uuid.UUID, checkIndex int) error {
	ctx, span := e.tracer.Start(ctx, "confirm.OnCheckFired")
	defer span.End()

	trackingSessionID, ok := e.trackingFor(exitSessionID)
	if !ok {
		return nil
	}

	unlock := e.locks.lock(trackingSessionID)
	defer unlock()

	session := e.lookup(trackingSessionID)
	if session == nil || session.Status.Terminal() || session.ID != exitSessionID {
		return nil
	}
	if checkIndex != session.CheckIndex {
		// A fire for an index the session already consumed (or skipped past
		// via supersede). Evidence from the wrong slot is no evidence.
		return nil
	}

	if e.metrics != nil {
		e.metrics.ChecksFired.Inc()
	}

	classification := e.acquireClassification(ctx, session)
	session.LastClassification = classification
	session.UpdatedAt = e.clock()

	switch {
	case classification == geo.ClassInside:
		// The user came back; the exit never really happened.
		return e.resolveLocked(ctx, session, models.StatusCancelled, models.ReasonReturnedInside)

	case session.FinalCheck() && classification == geo.ClassOutside:
		return e.resolveLocked(ctx, session, models.StatusConfirmed, models.ReasonFinalOutside)

	case session.FinalCheck():
		// Deliberate asymmetry: no confidence on the last check must never
		// turn into a clock-out.
		return e.resolveLocked(ctx, session, models.StatusInconclusive, models.ReasonFinalUncertain)

	default:
		session.CheckIndex++
		if err := e.store.Persist(ctx, session); err != nil {
			if e.metrics != nil {
				e.metrics.PersistFailures.Inc()
			}
			e.logger.ErrorContext(ctx, "failed to persist check progress",
				"tracking_session_id", trackingSessionID,
				"check_index", session.CheckIndex,
				"error", err.Error(),
			)
			return fmt.Errorf("persist exit session: %w", err)
		}
		return nil
	}
}

// OnReEntryDetected cancels a pending confirmation when the platform reports
// the user back inside the fence, independent of the check schedule. Safe to
// call repeatedly; only the first call transitions.
func (e *Engine) OnReEntryDetected(ctx context.Context, trackingSessionID string) error {
	ctx, span := e.tracer.Start(ctx, "confirm.OnReEntryDetected")
	defer span.End()

	unlock := e.locks.lock(trackingSessionID)
	defer unlock()

	session := e.lookup(trackingSessionID)
	if session == nil || session.Status.Terminal() {
		return nil
	}
	return e.resolveLocked(ctx, session, models.StatusCancelled, models.ReasonReEntry)
}

// OnManualResolution applies a user's explicit decision while a session is
// pending. A manual clock-out finalizes at the original detection time, same
// as the automatic path. No-op when nothing is pending.
func (e *Engine) OnManualResolution(ctx context.Context, trackingSessionID string, action models.ManualAction) error {
	ctx, span := e.tracer.Start(ctx, "confirm.OnManualResolution")
	defer span.End()

	if action != models.ManualClockOut && action != models.ManualCancel {
		return derr.New(derr.CodeBadRequest, "unknown manual resolution action")
	}

	unlock := e.locks.lock(trackingSessionID)
	defer unlock()

	session := e.lookup(trackingSessionID)
	if session == nil || session.Status.Terminal() {
		return nil
	}

	if action == models.ManualClockOut {
		return e.resolveLocked(ctx, session, models.StatusConfirmed, models.ReasonManual)
	}
	return e.resolveLocked(ctx, session, models.StatusCancelled, models.ReasonManual)
}

// ActiveSession returns a copy of the pending session for a tracking session,
// or sentinel.ErrNotFound via the store when the engine holds none.
func (e *Engine) ActiveSession(ctx context.Context, trackingSessionID string) (*models.ExitSession, error) {
	if session := e.lookup(trackingSessionID); session != nil {
		copied := *session
		return &copied, nil
	}
	return e.store.Load(ctx, trackingSessionID)
}

// Resume reloads pending sessions from the store after a restart and
// reschedules their checks. Offsets stay anchored to the original detection
// time; checks already consumed fire immediately and no-op on the stale-index
// guard, overdue ones fire as soon as the scheduler allows.
func (e *Engine) Resume(ctx context.Context) error {
	pending, err := e.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending sessions: %w", err)
	}

	now := e.clock()
	for _, session := range pending {
		unlock := e.locks.lock(session.TrackingSessionID)
		if e.lookup(session.TrackingSessionID) != nil {
			unlock()
			continue
		}
		e.register(session)

		offsets := make([]time.Duration, len(e.cfg.CheckOffsets))
		for i, offset := range e.cfg.CheckOffsets {
			due := session.DetectedAt.Add(offset)
			remaining := due.Sub(now)
			if remaining < 0 {
				remaining = 0
			}
			offsets[i] = remaining
		}
		if err := e.scheduler.ScheduleChecks(ctx, session.ID, offsets); err != nil {
			e.logger.ErrorContext(ctx, "failed to reschedule checks on resume",
				"tracking_session_id", session.TrackingSessionID,
				"error", err.Error(),
			)
		}
		unlock()

		e.logger.InfoContext(ctx, "resumed pending exit session",
			"tracking_session_id", session.TrackingSessionID,
			"exit_session_id", session.ID,
			"check_index", session.CheckIndex,
		)
	}
	return nil
}

// ReapStale force-resolves pending sessions older than the stale timeout as
// inconclusive with a distinct reason. Never confirms: a session with no fresh
// evidence for that long must stay open and flagged, not silently become a
// clock-out. Returns how many sessions were reaped.
func (e *Engine) ReapStale(ctx context.Context) (int, error) {
	pending, err := e.store.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending sessions: %w", err)
	}

	now := e.clock()
	reaped := 0
	var errs error
	for _, stored := range pending {
		if now.Sub(stored.DetectedAt) <= e.cfg.StaleTimeout {
			continue
		}

		unlock := e.locks.lock(stored.TrackingSessionID)
		session := e.lookup(stored.TrackingSessionID)
		if session == nil {
			// Not in memory (lost timers after a crash, or another writer's
			// session). Adopt the durable snapshot so it resolves cleanly.
			session = stored
			e.register(session)
		}
		// The snapshot may be outdated by the time the lock is held: a newer
		// session can have superseded it, or a persist failure can have left
		// an old snapshot behind while a fresh session runs in memory. Only
		// the live session's age counts.
		if session.Status.Terminal() || session.ID != stored.ID ||
			now.Sub(session.DetectedAt) <= e.cfg.StaleTimeout {
			unlock()
			continue
		}

		if err := e.resolveLocked(ctx, session, models.StatusInconclusive, models.ReasonStaleTimeout); err != nil {
			errs = errors.Join(errs, err)
		}
		if e.metrics != nil {
			e.metrics.SessionsReaped.Inc()
		}
		reaped++
		unlock()
	}
	return reaped, errs
}

// acquireClassification requests a fresh fix under the configured timeout and
// classifies it. Provider failure is not evidence of anything: it classifies
// as uncertain and the cycle continues.
func (e *Engine) acquireClassification(ctx context.Context, session *models.ExitSession) geo.Classification {
	fixCtx, cancel := context.WithTimeout(ctx, e.cfg.FixTimeout)
	defer cancel()

	start := e.clock()
	fix, err := e.fixes.RequestFix(fixCtx, session.TrackingSessionID)
	if e.metrics != nil {
		e.metrics.ObserveFixLatency(e.clock().Sub(start))
	}
	if err != nil {
		if e.metrics != nil {
			e.metrics.FixFailures.Inc()
		}
		e.logger.WarnContext(ctx, "position fix unavailable, treating check as uncertain",
			"tracking_session_id", session.TrackingSessionID,
			"check_index", session.CheckIndex,
			"error", err.Error(),
		)
		return geo.ClassUncertain
	}
	return geo.Classify(fix, session.Fence)
}

// resolveLocked terminates a session: cancels remaining checks, applies the
// tracking-session side effect, removes the snapshot, publishes the resolved
// event, and unregisters the session. Caller holds the per-session lock.
// Returned errors are retryable collaborator failures; the in-memory
// transition is already final.
func (e *Engine) resolveLocked(ctx context.Context, session *models.ExitSession, status models.Status, reason models.Reason) error {
	now := e.clock()
	session.Status = status
	session.Reason = reason
	session.UpdatedAt = now

	if err := e.scheduler.CancelChecks(ctx, session.ID); err != nil {
		e.logger.WarnContext(ctx, "failed to cancel remaining checks",
			"tracking_session_id", session.TrackingSessionID,
			"error", err.Error(),
		)
	}

	var errs error
	var clockOutAt *time.Time
	switch status {
	case models.StatusConfirmed:
		// The exit is presumed to have happened at the geofence crossing, not
		// at verification time.
		at := session.DetectedAt
		clockOutAt = &at
		if err := e.store.FinalizeClockOut(ctx, session.TrackingSessionID, at); err != nil {
			errs = errors.Join(errs, fmt.Errorf("finalize clock-out: %w", err))
		}
	case models.StatusCancelled:
		if err := e.store.CancelPendingExit(ctx, session.TrackingSessionID); err != nil {
			errs = errors.Join(errs, fmt.Errorf("cancel pending exit: %w", err))
		}
	case models.StatusInconclusive:
		if err := e.store.MarkInconclusive(ctx, session.TrackingSessionID, reason); err != nil {
			errs = errors.Join(errs, fmt.Errorf("mark inconclusive: %w", err))
		}
	}

	if err := e.store.Delete(ctx, session.TrackingSessionID); err != nil {
		errs = errors.Join(errs, fmt.Errorf("delete exit session: %w", err))
	}
	if errs != nil && e.metrics != nil {
		e.metrics.PersistFailures.Inc()
	}

	event := models.ResolvedEvent{
		ExitSessionID:     session.ID,
		TrackingSessionID: session.TrackingSessionID,
		Outcome:           models.OutcomeForStatus(status),
		Reason:            reason,
		ClockOutAt:        clockOutAt,
		ResolvedAt:        now,
	}
	if err := e.events.Publish(ctx, event); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish resolved event",
			"tracking_session_id", session.TrackingSessionID,
			"error", err.Error(),
		)
	}

	if e.metrics != nil {
		e.metrics.IncrementResolved(string(event.Outcome), string(reason))
	}
	e.logger.InfoContext(ctx, "exit session resolved",
		"tracking_session_id", session.TrackingSessionID,
		"exit_session_id", session.ID,
		"outcome", string(event.Outcome),
		"reason", string(reason),
	)

	e.unregister(session)
	return errs
}

func (e *Engine) register(session *models.ExitSession) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[session.TrackingSessionID] = session
	e.byExitID[session.ID] = session.TrackingSessionID
}

func (e *Engine) unregister(session *models.ExitSession) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, session.TrackingSessionID)
	delete(e.byExitID, session.ID)
}

func (e *Engine) lookup(trackingSessionID string) *models.ExitSession {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active[trackingSessionID]
}

func (e *Engine) trackingFor(exitSessionID uuid.UUID) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	trackingSessionID, ok := e.byExitID[exitSessionID]
	return trackingSessionID, ok
}
