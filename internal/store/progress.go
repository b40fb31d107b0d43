package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/recallkit/internal/event"
	"github.com/example/recallkit/internal/progress"
)

// ProgressRepo implements progress.Repo over the progress_snapshots and
// processed_sessions tables.
type ProgressRepo struct {
	db *sqlx.DB
}

type snapshotRow struct {
	LearnerID         string  `db:"learner_id"`
	TargetKind        string  `db:"target_kind"`
	TargetID          string  `db:"target_id"`
	CompletionPercent float64 `db:"completion_percent"`
	AccuracyRate      float64 `db:"accuracy_rate"`
	TimeSpentSeconds  int     `db:"time_spent_seconds"`
	CardsMastered     int     `db:"cards_mastered"`
	TotalSessions     int     `db:"total_sessions"`
	CurrentStreak     int     `db:"current_streak"`
	BestStreak        int     `db:"best_streak"`
	LastActivity      string  `db:"last_activity"`
	UpdatedAt         string  `db:"updated_at"`
}

func (r snapshotRow) toSnapshot() *progress.Snapshot {
	snap := &progress.Snapshot{
		LearnerID:         r.LearnerID,
		TargetKind:        event.TargetKind(r.TargetKind),
		TargetID:          r.TargetID,
		CompletionPercent: r.CompletionPercent,
		AccuracyRate:      r.AccuracyRate,
		TimeSpentSeconds:  r.TimeSpentSeconds,
		CardsMastered:     r.CardsMastered,
		TotalSessions:     r.TotalSessions,
		CurrentStreak:     r.CurrentStreak,
		BestStreak:        r.BestStreak,
	}
	if t, err := time.Parse(time.RFC3339, r.LastActivity); err == nil {
		snap.LastActivity = t
	}
	if t, err := time.Parse(time.RFC3339, r.UpdatedAt); err == nil {
		snap.UpdatedAt = t
	}
	return snap
}

// Get returns the snapshot for a learner/target pair, or nil if none exists.
func (r *ProgressRepo) Get(ctx context.Context, learnerID string, t event.Target) (*progress.Snapshot, error) {
	var row snapshotRow
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM progress_snapshots
		WHERE learner_id = $1 AND target_kind = $2 AND target_id = $3`,
		learnerID, string(t.Kind), t.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return row.toSnapshot(), nil
}

// Put upserts a snapshot.
func (r *ProgressRepo) Put(ctx context.Context, snap *progress.Snapshot) error {
	lastActivity := ""
	if !snap.LastActivity.IsZero() {
		lastActivity = snap.LastActivity.UTC().Format(time.RFC3339)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO progress_snapshots
			(learner_id, target_kind, target_id, completion_percent, accuracy_rate,
			 time_spent_seconds, cards_mastered, total_sessions, current_streak,
			 best_streak, last_activity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (learner_id, target_kind, target_id) DO UPDATE SET
			completion_percent = excluded.completion_percent,
			accuracy_rate = excluded.accuracy_rate,
			time_spent_seconds = excluded.time_spent_seconds,
			cards_mastered = excluded.cards_mastered,
			total_sessions = excluded.total_sessions,
			current_streak = excluded.current_streak,
			best_streak = excluded.best_streak,
			last_activity = excluded.last_activity,
			updated_at = excluded.updated_at`,
		snap.LearnerID, string(snap.TargetKind), snap.TargetID,
		snap.CompletionPercent, snap.AccuracyRate, snap.TimeSpentSeconds,
		snap.CardsMastered, snap.TotalSessions, snap.CurrentStreak,
		snap.BestStreak, lastActivity,
		snap.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// ListByLearner returns every snapshot for a learner.
func (r *ProgressRepo) ListByLearner(ctx context.Context, learnerID string) ([]*progress.Snapshot, error) {
	var rows []snapshotRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM progress_snapshots
		WHERE learner_id = $1
		ORDER BY target_kind, target_id`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	snaps := make([]*progress.Snapshot, len(rows))
	for i, row := range rows {
		snaps[i] = row.toSnapshot()
	}
	return snaps, nil
}

// WasProcessed reports whether a session's completion has already been
// applied to the rollups.
func (r *ProgressRepo) WasProcessed(ctx context.Context, sessionID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM processed_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("check processed: %w", err)
	}
	return count > 0, nil
}

// MarkProcessed records a session as applied. Safe to call twice.
func (r *ProgressRepo) MarkProcessed(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO processed_sessions (session_id, processed_at)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO NOTHING`,
		sessionID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}
