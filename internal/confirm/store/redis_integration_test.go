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

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *Redis
	ctx   context.Context
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) redisSession(trackingID string) *models.ExitSession {
	fence := geo.Fence{ID: "fence-1", Latitude: 52.52, Longitude: 13.405, RadiusMeters: 100}
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.NewExitSession(trackingID, fence, now.Add(-2*time.Minute), 3, now)
}

func (s *RedisStoreSuite) TestPersistLoadRoundTrip() {
	session := s.redisSession("track-redis-1")
	session.CheckIndex = 1
	session.LastClassification = geo.ClassUncertain
	s.Require().NoError(s.store.Persist(s.ctx, session))

	loaded, err := s.store.Load(s.ctx, "track-redis-1")
	s.Require().NoError(err)
	s.Equal(session.ID, loaded.ID)
	s.Equal(session.CheckIndex, loaded.CheckIndex)
	s.Equal(geo.ClassUncertain, loaded.LastClassification)
	s.Equal(session.Fence, loaded.Fence)
	s.True(session.DetectedAt.Equal(loaded.DetectedAt))
}

func (s *RedisStoreSuite) TestLoadMissing() {
	_, err := s.store.Load(s.ctx, "nope")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestPendingIndexFollowsStatus() {
	pending := s.redisSession("track-pending")
	s.Require().NoError(s.store.Persist(s.ctx, pending))

	resolved := s.redisSession("track-resolved")
	resolved.Status = models.StatusCancelled
	s.Require().NoError(s.store.Persist(s.ctx, resolved))

	listed, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal("track-pending", listed[0].TrackingSessionID)

	// Re-persisting the pending session as terminal removes it from the index.
	pending.Status = models.StatusConfirmed
	s.Require().NoError(s.store.Persist(s.ctx, pending))
	listed, err = s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Empty(listed)
}

func (s *RedisStoreSuite) TestDelete() {
	session := s.redisSession("track-del")
	s.Require().NoError(s.store.Persist(s.ctx, session))
	s.Require().NoError(s.store.Delete(s.ctx, "track-del"))

	_, err := s.store.Load(s.ctx, "track-del")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	listed, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Empty(listed)
}

func (s *RedisStoreSuite) TestTrackingSideEffects() {
	at := time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC)
	s.Require().NoError(s.store.FinalizeClockOut(s.ctx, "track-a", at))

	fields, err := s.redis.Client.HGetAll(s.ctx, trackingKey("track-a")).Result()
	s.Require().NoError(err)
	s.Equal("clocked_out", fields["status"])
	s.Equal(at.Format(time.RFC3339Nano), fields["clock_out_at"])

	s.Require().NoError(s.store.MarkInconclusive(s.ctx, "track-b", models.ReasonStaleTimeout))
	fields, err = s.redis.Client.HGetAll(s.ctx, trackingKey("track-b")).Result()
	s.Require().NoError(err)
	s.Equal("pending_review", fields["status"])
	s.Equal(string(models.ReasonStaleTimeout), fields["inconclusive_reason"])

	s.Require().NoError(s.store.CancelPendingExit(s.ctx, "track-a"))
	fields, err = s.redis.Client.HGetAll(s.ctx, trackingKey("track-a")).Result()
	s.Require().NoError(err)
	s.Equal("active", fields["status"])
}
