//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"egress/internal/confirm/models"
	"egress/internal/geo"
	"egress/pkg/sentinel"
	"egress/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
	ctx   context.Context
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(s.ctx, `TRUNCATE exit_sessions, work_sessions`)
	s.Require().NoError(err)
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) pgSession(trackingID string) *models.ExitSession {
	fence := geo.Fence{ID: "fence-7", Latitude: 48.1351, Longitude: 11.5820, RadiusMeters: 75}
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.NewExitSession(trackingID, fence, now.Add(-3*time.Minute), 3, now)
}

func (s *PostgresStoreSuite) TestPersistIsUpsert() {
	session := s.pgSession("track-pg-1")
	s.Require().NoError(s.store.Persist(s.ctx, session))

	session.CheckIndex = 2
	session.LastClassification = geo.ClassOutside
	s.Require().NoError(s.store.Persist(s.ctx, session))

	loaded, err := s.store.Load(s.ctx, "track-pg-1")
	s.Require().NoError(err)
	s.Equal(2, loaded.CheckIndex)
	s.Equal(geo.ClassOutside, loaded.LastClassification)
	s.Equal(session.Fence, loaded.Fence)
	s.True(session.DetectedAt.Equal(loaded.DetectedAt))
}

func (s *PostgresStoreSuite) TestLoadMissing() {
	_, err := s.store.Load(s.ctx, "nope")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListPendingOrdersByDetection() {
	older := s.pgSession("track-older")
	older.DetectedAt = older.DetectedAt.Add(-time.Hour)
	s.Require().NoError(s.store.Persist(s.ctx, older))

	newer := s.pgSession("track-newer")
	s.Require().NoError(s.store.Persist(s.ctx, newer))

	resolved := s.pgSession("track-resolved")
	resolved.Status = models.StatusInconclusive
	s.Require().NoError(s.store.Persist(s.ctx, resolved))

	listed, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal("track-older", listed[0].TrackingSessionID)
	s.Equal("track-newer", listed[1].TrackingSessionID)
}

func (s *PostgresStoreSuite) TestDelete() {
	session := s.pgSession("track-del")
	s.Require().NoError(s.store.Persist(s.ctx, session))
	s.Require().NoError(s.store.Delete(s.ctx, "track-del"))

	_, err := s.store.Load(s.ctx, "track-del")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestWorkSessionSideEffects() {
	at := time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC)
	s.Require().NoError(s.store.FinalizeClockOut(s.ctx, "track-a", at))

	var status, source string
	var clockOut time.Time
	err := s.pg.DB.QueryRowContext(s.ctx,
		`SELECT status, clock_out_at, clock_out_source FROM work_sessions WHERE tracking_session_id = $1`,
		"track-a").Scan(&status, &clockOut, &source)
	s.Require().NoError(err)
	s.Equal("clocked_out", status)
	s.Equal("geofence", source)
	s.True(at.Equal(clockOut))

	// Cancelling a pending exit reverts the row to active and clears fields.
	s.Require().NoError(s.store.CancelPendingExit(s.ctx, "track-a"))
	var clockOutNull *time.Time
	err = s.pg.DB.QueryRowContext(s.ctx,
		`SELECT status, clock_out_at FROM work_sessions WHERE tracking_session_id = $1`,
		"track-a").Scan(&status, &clockOutNull)
	s.Require().NoError(err)
	s.Equal("active", status)
	s.Nil(clockOutNull)

	s.Require().NoError(s.store.MarkInconclusive(s.ctx, "track-b", models.ReasonFinalUncertain))
	var reason string
	err = s.pg.DB.QueryRowContext(s.ctx,
		`SELECT status, inconclusive_reason FROM work_sessions WHERE tracking_session_id = $1`,
		"track-b").Scan(&status, &reason)
	s.Require().NoError(err)
	s.Equal("pending_review", status)
	s.Equal(string(models.ReasonFinalUncertain), reason)
}
