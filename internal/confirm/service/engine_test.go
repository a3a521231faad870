package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"egress/internal/confirm/models"
	"egress/internal/confirm/ports/mocks"
	"egress/internal/confirm/store"
	"egress/internal/geo"
	derr "egress/pkg/domainerrors"
)

var testFence = geo.Fence{
	ID:           "fence-clinic",
	Latitude:     52.5200,
	Longitude:    13.4050,
	RadiusMeters: 100,
}

// fixAt returns a fix roughly the given number of meters north of the fence
// center with the given accuracy.
func fixAt(meters, accuracy float64, at time.Time) geo.Point {
	const metersPerDegreeLat = 111320.0
	return geo.NewPoint(testFence.Latitude+meters/metersPerDegreeLat, testFence.Longitude, accuracy, at)
}

// scriptedFixes pops pre-programmed fix results in order. An exhausted script
// returns an error, which the engine must treat as uncertain evidence.
type scriptedFixes struct {
	mu      sync.Mutex
	results []fixResult
}

type fixResult struct {
	fix geo.Point
	err error
}

func (s *scriptedFixes) push(fix geo.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, fixResult{fix: fix})
}

func (s *scriptedFixes) pushErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, fixResult{err: err})
}

func (s *scriptedFixes) RequestFix(_ context.Context, _ string) (geo.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return geo.Point{}, errors.New("no fix scripted")
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next.fix, next.err
}

// captureSink records published events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []models.ResolvedEvent
}

func (c *captureSink) Publish(_ context.Context, event models.ResolvedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) all() []models.ResolvedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ResolvedEvent(nil), c.events...)
}

type EngineSuite struct {
	suite.Suite
	ctx       context.Context
	ctrl      *gomock.Controller
	fixes     *scriptedFixes
	scheduler *mocks.MockCheckScheduler
	store     *store.Memory
	sink      *captureSink
	engine    *Engine
	now       time.Time
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.fixes = &scriptedFixes{}
	s.scheduler = mocks.NewMockCheckScheduler(s.ctrl)
	s.store = store.NewMemory()
	s.sink = &captureSink{}
	s.now = time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := New(
		Config{
			CheckOffsets: []time.Duration{time.Minute, 3 * time.Minute, 5 * time.Minute},
			FixTimeout:   time.Second,
			StaleTimeout: 24 * time.Hour,
		},
		s.fixes, s.scheduler, s.store, s.sink, logger,
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	s.engine = engine
}

func (s *EngineSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

// startSession runs OnExitDetected with the scheduler expecting one schedule
// call and returns the created session.
func (s *EngineSuite) startSession(trackingID string) *models.ExitSession {
	s.scheduler.EXPECT().
		ScheduleChecks(gomock.Any(), gomock.Any(), []time.Duration{time.Minute, 3 * time.Minute, 5 * time.Minute}).
		Return(nil)

	session, err := s.engine.OnExitDetected(s.ctx, trackingID, testFence, s.now.Add(-time.Minute))
	s.Require().NoError(err)
	s.Require().Equal(models.StatusPending, session.Status)
	s.Require().Equal(0, session.CheckIndex)
	return session
}

func (s *EngineSuite) expectCancel() {
	s.scheduler.EXPECT().CancelChecks(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func (s *EngineSuite) TestExitDetectedValidation() {
	_, err := s.engine.OnExitDetected(s.ctx, "", testFence, s.now)
	s.Require().True(derr.Is(err, derr.CodeBadRequest))

	badFence := testFence
	badFence.RadiusMeters = -5
	_, err = s.engine.OnExitDetected(s.ctx, "track-1", badFence, s.now)
	s.Require().True(derr.Is(err, derr.CodeBadRequest))

	_, err = s.engine.OnExitDetected(s.ctx, "track-1", testFence, time.Time{})
	s.Require().True(derr.Is(err, derr.CodeBadRequest))
}

func (s *EngineSuite) TestExitDetectedPersistsPendingSession() {
	session := s.startSession("track-1")

	stored, err := s.store.Load(s.ctx, "track-1")
	s.Require().NoError(err)
	s.Equal(session.ID, stored.ID)
	s.Equal(models.StatusPending, stored.Status)
	s.Equal(geo.ClassUnknown, stored.LastClassification)
	s.Equal(3, stored.TotalChecks)
}

func (s *EngineSuite) TestConfirmedAfterUncertainThenOutside() {
	detectedAt := s.now.Add(-time.Minute)
	session := s.startSession("track-1")
	s.expectCancel()

	// Check 0: uncertain (accuracy straddles the boundary).
	s.fixes.push(fixAt(150, 100, s.now))
	s.Require().NoError(s.engine.OnCheckFired(s.ctx, session.ID, 0))

	// Check 1: confidently outside.
	s.fixes.push(fixAt(150, 20, s.now))
	s.Require().NoError(s.engine.OnCheckFired(s.ctx, session.ID, 1))

	// Check 2 (final): confidently outside -> confirmed.
	s.fixes.push(fixAt(150, 20, s.now))
	s.Require().NoError(s.engine.OnCheckFired(s.ctx, session.ID, 2))

	tracking := s.store.Tracking("track-1")
	s.Require().NotNil(tracking)
	s.Require().NotNil(tracking.ClockedOutAt)
	// Clock-out lands at the original detection time, not the check time.
	s.True(detectedAt.Equal(*tracking.ClockedOutAt))

	events := s.sink.all()
	s.Require().Len(events, 1)
	s.Equal(models.OutcomeConfirmed, events[0].Outcome)
	s.Equal(models.ReasonFinalOutside, events[0].Reason)
	s.Require().NotNil(events[0].ClockOutAt)
	s.True(detectedAt.Equal(*events[0].ClockOutAt))

	// Snapshot is gone once resolved.
	_, err := s.store.Load(s.ctx, "track-1")
	s.Require().Error(err)
}

func (s *EngineSuite) TestFinalUncertainIsInconclusiveNotConfirmed() {
	session := s.startSession("track-1")
	s.expectCancel()

	s.fixes.push(fixAt(150, 20, s.now)) // outside
	s.fixes.push(fixAt(150, 20, s.now)) // outside
	s.fixes.push(fixAt(150, 100, s.now)) // final: uncertain

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.engine.OnCheckFired(s.ctx, session.ID, i))
	}

	tracking := s.store.Tracking("track-1")
	s.Require().NotNil(tracking)
	s.Nil(tracking.ClockedOutAt)
	s.True(tracking.Inconclusive)
	s.Equal(models.ReasonFinalUncertain, tracking.InconcluReason)

	events := s.sink.all()
	s.Require().Len(events, 1)
	s.Equal(models.OutcomeInconclusive, events[0].Outcome)
	s.Nil(events[0].ClockOutAt)
}

func (s *EngineSuite) TestAllUncertainIsInconclusive() {
	session := s.startSession("track-1")
	s.expectCancel()

	for i := 0; i < 3; i++ {
		s.fixes.push(fixAt(100, 80, s.now))
		s.Require().NoError(s.engine.OnCheckFired(s.ctx, session.ID, i))
	}

	events := s.sink.all()
	s.Require().Len(events, 1)
	s.Equal(models.OutcomeInconclusive, events[0].Outcome)
	s.Nil(s.store.Tracking("track-1").ClockedOutAt)
}

func (s *EngineSuite) TestInsideCancelsImmediately() {
	session := s.startSession("track-1")
	s.expectCancel()

	s.fixes.push(fixAt(150, 100, s.now)) // uncertain, advances
	s.Require().NoError(s.engine.OnCheckFired(s.ctx, session.ID, 0))

	s.fixes.push(fixAt(30, 20, s.now)) // confidently inside
	s.Require().NoError(s.engine.OnCheckFired(s.ctx, session.ID, 1))

	tracking := s.store.Tracking("track-1")
	s.Require().NotNil(tracking)
	s.True(tracking.ExitCancelled)
	s.Nil(tracking.ClockedOutAt)

	events := s.sink.all()
	s.Require().Len(events, 1)
	s.Equal(models.OutcomeCancelled, events[0].Outcome)
	s.Equal(models.ReasonReturnedInside, events[0].Reason)
}

func (s *EngineSuite) TestFixFailureCountsAsUncertain() {
	session := s.startSession("track-1")
	s.expectCancel()

	// Provider errors on every check; failure is not evidence, so the session
	// must end inconclusive rather than confirmed or errored out.
	for i := 0; i < 3; i++ {
		s.fixes.pushErr(errors.New("gps unavailable"))
		s.Require().NoError(s.engine.OnCheckFired(s.ctx, session.ID, i))
	}

	events := s.sink.all()
	s.Require().Len(events, 1)
	s.Equal(models.OutcomeInconclusive, events[0].Outcome)
}

func (s *EngineSuite) TestReEntryCancelsAndIsIdempotent() {
	session := s.startSession("track-1")
	s.expectCancel()

	s.Require().NoError(s.engine.OnReEntryDetected(s.ctx, "track-1"))
	// Second re-entry is a no-op: same final state, no extra event.
	s.Require().NoError(s.engine.OnReEntryDetected(s.ctx, "track-1"))

	events := s.sink.all()
	s.Require().Len(events, 1)
	s.Equal(models.OutcomeCancelled, events[0].Outcome)
	s.Equal(models.ReasonReEntry, events[0].Reason)

	// A late check fire after cancellation must not mutate or re-notify.
	s.Require().NoError(s.engine.OnCheckFired(s.ctx, session.ID, 1))
	s.Require().Len(s.sink.all(), 1)
	s.True(s.store.Tracking("track-1").ExitCancelled)
}

func (s *EngineSuite) TestStaleCheckIndexIsNoop() {
	session := s.startSession("track-1")

	s.fixes.push(fixAt(150, 100, s.now)) // uncertain, advances to index 1
	s.Require().NoError(s.engine.OnCheckFired(s.ctx, session.ID, 0))

	// Duplicate fire of index 0: no fix is consumed, nothing changes.
	s.Require().NoError(s.engine.OnCheckFired(s.ctx, session.ID, 0))

	current, err := s.engine.ActiveSession(s.ctx, "track-1")
	s.Require().NoError(err)
	s.Equal(1, current.CheckIndex)
	s.Equal(models.StatusPending, current.Status)
	s.Empty(s.sink.all())
}

func (s *EngineSuite) TestUnknownExitSessionIsNoop() {
	s.Require().NoError(s.engine.OnCheckFired(s.ctx, uuid.New(), 0))
	s.Empty(s.sink.all())
}

func (s *EngineSuite) TestNewExitSupersedesPending() {
	first := s.startSession("track-1")

	// The superseded session's schedule is cancelled; no resolution side
	// effect touches the tracking session store.
	s.scheduler.EXPECT().CancelChecks(gomock.Any(), first.ID).Return(nil)
	s.scheduler.EXPECT().
		ScheduleChecks(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)

	second, err := s.engine.OnExitDetected(s.ctx, "track-1", testFence, s.now)
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)
	s.Empty(s.sink.all())
	s.Nil(s.store.Tracking("track-1"))

	// A straggler check from the superseded session is ignored.
	s.Require().NoError(s.engine.OnCheckFired(s.ctx, first.ID, 0))

	current, err := s.engine.ActiveSession(s.ctx, "track-1")
	s.Require().NoError(err)
	s.Equal(second.ID, current.ID)
	s.Equal(0, current.CheckIndex)
}

func (s *EngineSuite) TestManualClockOut() {
	detectedAt := s.now.Add(-time.Minute)
	s.startSession("track-1")
	s.expectCancel()

	s.Require().NoError(s.engine.OnManualResolution(s.ctx, "track-1", models.ManualClockOut))

	tracking := s.store.Tracking("track-1")
	s.Require().NotNil(tracking)
	s.Require().NotNil(tracking.ClockedOutAt)
	s.True(detectedAt.Equal(*tracking.ClockedOutAt))

	events := s.sink.all()
	s.Require().Len(events, 1)
	s.Equal(models.OutcomeConfirmed, events[0].Outcome)
	s.Equal(models.ReasonManual, events[0].Reason)
}

func (s *EngineSuite) TestManualCancel() {
	s.startSession("track-1")
	s.expectCancel()

	s.Require().NoError(s.engine.OnManualResolution(s.ctx, "track-1", models.ManualCancel))

	s.True(s.store.Tracking("track-1").ExitCancelled)
	events := s.sink.all()
	s.Require().Len(events, 1)
	s.Equal(models.OutcomeCancelled, events[0].Outcome)
}

func (s *EngineSuite) TestManualResolutionWithoutSessionIsNoop() {
	s.Require().NoError(s.engine.OnManualResolution(s.ctx, "track-none", models.ManualCancel))
	s.Empty(s.sink.all())
}

func (s *EngineSuite) TestManualResolutionRejectsUnknownAction() {
	err := s.engine.OnManualResolution(s.ctx, "track-1", models.ManualAction("vanish"))
	s.Require().True(derr.Is(err, derr.CodeBadRequest))
}

func (s *EngineSuite) TestConcurrentReEntryAndCheckResolveOnce() {
	session := s.startSession("track-1")
	s.expectCancel()

	// Both transitions race; exactly one may win and emit an event.
	s.fixes.push(fixAt(30, 20, s.now)) // inside, would also cancel

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.engine.OnReEntryDetected(s.ctx, "track-1")
	}()
	go func() {
		defer wg.Done()
		_ = s.engine.OnCheckFired(s.ctx, session.ID, 0)
	}()
	wg.Wait()

	s.Require().Len(s.sink.all(), 1)
	s.Equal(models.OutcomeCancelled, s.sink.all()[0].Outcome)
}

func (s *EngineSuite) TestConfigValidation() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := New(Config{FixTimeout: time.Second, StaleTimeout: time.Hour},
		s.fixes, s.scheduler, s.store, s.sink, logger)
	s.Require().True(derr.Is(err, derr.CodeBadRequest))

	_, err = New(Config{
		CheckOffsets: []time.Duration{2 * time.Minute, time.Minute},
		FixTimeout:   time.Second,
		StaleTimeout: time.Hour,
	}, s.fixes, s.scheduler, s.store, s.sink, logger)
	s.Require().True(derr.Is(err, derr.CodeBadRequest))
}
