package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/recallkit/internal/session"
)

// SessionRepo implements session.Store. The full session document is
// stored as JSON; the indexed columns exist for lookups and the stale
// sweep.
type SessionRepo struct {
	db *sqlx.DB
}

// Save upserts a session.
func (r *SessionRepo) Save(ctx context.Context, s *session.StudySession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, learner_id, deck_id, status, data, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		s.ID, s.LearnerID, s.DeckID, string(s.Status), string(data),
		s.StartedAt.UTC().Format(time.RFC3339),
		s.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns a session by ID, or session.ErrNotFound.
func (r *SessionRepo) Load(ctx context.Context, id string) (*session.StudySession, error) {
	var data string
	err := r.db.GetContext(ctx, &data, `SELECT data FROM sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s session.StudySession
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &s, nil
}

// FindActive returns the learner's active session for a deck, or nil.
func (r *SessionRepo) FindActive(ctx context.Context, learnerID, deckID string) (*session.StudySession, error) {
	var data string
	err := r.db.GetContext(ctx, &data, `
		SELECT data FROM sessions
		WHERE learner_id = $1 AND deck_id = $2 AND status = $3
		LIMIT 1`,
		learnerID, deckID, string(session.StatusActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active session: %w", err)
	}

	var s session.StudySession
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

// ExpireStale marks active sessions with no activity since the cutoff as
// abandoned. Returns the number of sessions reclaimed. Abandoned sessions
// emit no completion event and never reach the progress rollups.
func (r *SessionRepo) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = $1,
		    data = json_set(data, '$.status', $1)
		WHERE status = $2 AND updated_at < $3`,
		string(session.StatusAbandoned), string(session.StatusActive),
		cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("expire stale sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
