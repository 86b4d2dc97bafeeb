package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

const defaultSessionTTL = 30 * time.Minute

// SessionRepository is the durable gate-session store. Sessions expire
// after ttl of inactivity; expired rows are treated as absent and removed
// lazily on read.
type SessionRepository struct {
	db  *sql.DB
	ttl time.Duration
}

func NewSessionRepository(db *sql.DB, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionRepository{db: db, ttl: ttl}
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.GateSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT state, updated_at
FROM gate_sessions
WHERE id = $1
`, id)

	var raw []byte
	var updatedAt time.Time
	if err := row.Scan(&raw, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if time.Since(updatedAt) > r.ttl {
		_ = r.Delete(ctx, id)
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id %s expired", id))
	}

	var session domain.GateSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, domain.WrapError(domain.ErrMalformedSession, "decode session", err)
	}
	return &session, nil
}

func (r *SessionRepository) Put(ctx context.Context, session *domain.GateSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO gate_sessions (id, state, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
`, session.ID, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM gate_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes idle sessions in bulk; the worker runs it on a
// timer.
func (r *SessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM gate_sessions WHERE updated_at < $1`, time.Now().UTC().Add(-r.ttl))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
