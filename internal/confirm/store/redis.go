package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"egress/internal/confirm/models"
	"egress/pkg/sentinel"
)

const (
	sessionKeyPrefix  = "exit:session:"
	trackingKeyPrefix = "exit:tracking:"
	pendingSetKey     = "exit:pending"
)

// Redis is a Redis-backed SessionStore for deployments that want durable
// snapshots without running Postgres. Sessions are JSON blobs keyed by
// tracking session, with a set indexing the pending ones for reaping.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func sessionKey(trackingSessionID string) string {
	return sessionKeyPrefix + trackingSessionID
}

func trackingKey(trackingSessionID string) string {
	return trackingKeyPrefix + trackingSessionID
}

func (r *Redis) Persist(ctx context.Context, session *models.ExitSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal exit session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.TrackingSessionID), payload, 0)
	if session.Status == models.StatusPending {
		pipe.SAdd(ctx, pendingSetKey, session.TrackingSessionID)
	} else {
		pipe.SRem(ctx, pendingSetKey, session.TrackingSessionID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist exit session: %w", err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, trackingSessionID string) (*models.ExitSession, error) {
	payload, err := r.client.Get(ctx, sessionKey(trackingSessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load exit session: %w", err)
	}

	var session models.ExitSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal exit session: %w", err)
	}
	return &session, nil
}

func (r *Redis) ListPending(ctx context.Context) ([]*models.ExitSession, error) {
	ids, err := r.client.SMembers(ctx, pendingSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending sessions: %w", err)
	}

	var pending []*models.ExitSession
	for _, id := range ids {
		session, err := r.Load(ctx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			// Index entry outlived the snapshot; self-heal.
			r.client.SRem(ctx, pendingSetKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.Status == models.StatusPending {
			pending = append(pending, session)
		}
	}
	return pending, nil
}

func (r *Redis) Delete(ctx context.Context, trackingSessionID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(trackingSessionID))
	pipe.SRem(ctx, pendingSetKey, trackingSessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete exit session: %w", err)
	}
	return nil
}

func (r *Redis) FinalizeClockOut(ctx context.Context, trackingSessionID string, at time.Time) error {
	err := r.client.HSet(ctx, trackingKey(trackingSessionID),
		"status", "clocked_out",
		"clock_out_at", at.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("finalize clock-out: %w", err)
	}
	return nil
}

func (r *Redis) CancelPendingExit(ctx context.Context, trackingSessionID string) error {
	err := r.client.HSet(ctx, trackingKey(trackingSessionID),
		"status", "active",
		"pending_exit", "cancelled",
	).Err()
	if err != nil {
		return fmt.Errorf("cancel pending exit: %w", err)
	}
	return nil
}

func (r *Redis) MarkInconclusive(ctx context.Context, trackingSessionID string, reason models.Reason) error {
	err := r.client.HSet(ctx, trackingKey(trackingSessionID),
		"status", "pending_review",
		"inconclusive_reason", string(reason),
	).Err()
	if err != nil {
		return fmt.Errorf("mark inconclusive: %w", err)
	}
	return nil
}
