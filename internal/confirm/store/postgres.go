package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"egress/internal/confirm/models"
	"egress/internal/geo"
	"egress/pkg/sentinel"
)

// Postgres is the durable SessionStore. Exit sessions are snapshotted one row
// per tracking session; resolution side effects land on the work_sessions
// table the rest of the backend reads.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the tables this store needs. Idempotent.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS exit_sessions (
		tracking_session_id TEXT PRIMARY KEY,
		id                  UUID        NOT NULL,
		fence               JSONB       NOT NULL,
		detected_at         TIMESTAMPTZ NOT NULL,
		check_index         INT         NOT NULL,
		total_checks        INT         NOT NULL,
		last_classification TEXT        NOT NULL,
		status              TEXT        NOT NULL,
		reason              TEXT        NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS exit_sessions_status_idx ON exit_sessions (status);

	CREATE TABLE IF NOT EXISTS work_sessions (
		tracking_session_id TEXT PRIMARY KEY,
		status              TEXT        NOT NULL DEFAULT 'active',
		clock_out_at        TIMESTAMPTZ,
		clock_out_source    TEXT,
		inconclusive_reason TEXT
	);`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure exit session schema: %w", err)
	}
	return nil
}

func (p *Postgres) Persist(ctx context.Context, session *models.ExitSession) error {
	fence, err := json.Marshal(session.Fence)
	if err != nil {
		return fmt.Errorf("marshal fence: %w", err)
	}
	const query = `
		INSERT INTO exit_sessions (
			tracking_session_id, id, fence, detected_at, check_index,
			total_checks, last_classification, status, reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tracking_session_id) DO UPDATE SET
			id = EXCLUDED.id,
			fence = EXCLUDED.fence,
			detected_at = EXCLUDED.detected_at,
			check_index = EXCLUDED.check_index,
			total_checks = EXCLUDED.total_checks,
			last_classification = EXCLUDED.last_classification,
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at
	`
	_, err = p.db.ExecContext(ctx, query,
		session.TrackingSessionID, session.ID, fence, session.DetectedAt,
		session.CheckIndex, session.TotalChecks, string(session.LastClassification),
		string(session.Status), string(session.Reason), session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("persist exit session: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, trackingSessionID string) (*models.ExitSession, error) {
	const query = `
		SELECT tracking_session_id, id, fence, detected_at, check_index,
		       total_checks, last_classification, status, reason, created_at, updated_at
		FROM exit_sessions
		WHERE tracking_session_id = $1
	`
	session, err := scanSession(p.db.QueryRowContext(ctx, query, trackingSessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load exit session: %w", err)
	}
	return session, nil
}

func (p *Postgres) ListPending(ctx context.Context) ([]*models.ExitSession, error) {
	const query = `
		SELECT tracking_session_id, id, fence, detected_at, check_index,
		       total_checks, last_classification, status, reason, created_at, updated_at
		FROM exit_sessions
		WHERE status = $1
		ORDER BY detected_at
	`
	rows, err := p.db.QueryContext(ctx, query, string(models.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending sessions: %w", err)
	}
	defer rows.Close()

	var pending []*models.ExitSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending session: %w", err)
		}
		pending = append(pending, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending sessions: %w", err)
	}
	return pending, nil
}

func (p *Postgres) Delete(ctx context.Context, trackingSessionID string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM exit_sessions WHERE tracking_session_id = $1`, trackingSessionID)
	if err != nil {
		return fmt.Errorf("delete exit session: %w", err)
	}
	return nil
}

func (p *Postgres) FinalizeClockOut(ctx context.Context, trackingSessionID string, at time.Time) error {
	const query = `
		INSERT INTO work_sessions (tracking_session_id, status, clock_out_at, clock_out_source)
		VALUES ($1, 'clocked_out', $2, 'geofence')
		ON CONFLICT (tracking_session_id) DO UPDATE SET
			status = 'clocked_out',
			clock_out_at = EXCLUDED.clock_out_at,
			clock_out_source = EXCLUDED.clock_out_source,
			inconclusive_reason = NULL
	`
	if _, err := p.db.ExecContext(ctx, query, trackingSessionID, at); err != nil {
		return fmt.Errorf("finalize clock-out: %w", err)
	}
	return nil
}

func (p *Postgres) CancelPendingExit(ctx context.Context, trackingSessionID string) error {
	const query = `
		INSERT INTO work_sessions (tracking_session_id, status)
		VALUES ($1, 'active')
		ON CONFLICT (tracking_session_id) DO UPDATE SET
			status = 'active',
			clock_out_at = NULL,
			clock_out_source = NULL,
			inconclusive_reason = NULL
	`
	if _, err := p.db.ExecContext(ctx, query, trackingSessionID); err != nil {
		return fmt.Errorf("cancel pending exit: %w", err)
	}
	return nil
}

func (p *Postgres) MarkInconclusive(ctx context.Context, trackingSessionID string, reason models.Reason) error {
	const query = `
		INSERT INTO work_sessions (tracking_session_id, status, inconclusive_reason)
		VALUES ($1, 'pending_review', $2)
		ON CONFLICT (tracking_session_id) DO UPDATE SET
			status = 'pending_review',
			inconclusive_reason = EXCLUDED.inconclusive_reason
	`
	if _, err := p.db.ExecContext(ctx, query, trackingSessionID, string(reason)); err != nil {
		return fmt.Errorf("mark inconclusive: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.ExitSession, error) {
	var (
		session        models.ExitSession
		fence          []byte
		classification string
		status         string
		reason         string
	)
	err := row.Scan(
		&session.TrackingSessionID, &session.ID, &fence, &session.DetectedAt,
		&session.CheckIndex, &session.TotalChecks, &classification,
		&status, &reason, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fence, &session.Fence); err != nil {
		return nil, fmt.Errorf("unmarshal fence: %w", err)
	}
	session.LastClassification = geo.Classification(classification)
	session.Status = models.Status(status)
	session.Reason = models.Reason(reason)
	return &session, nil
}
