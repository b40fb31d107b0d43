package progress

import (
	"time"

	"github.com/example/recallkit/internal/event"
)

// Snapshot is the rollup for one learner and one aggregation target.
// It only changes when a session completes; nothing is written mid-session.
type Snapshot struct {
	LearnerID  string           `json:"learner_id" db:"learner_id"`
	TargetKind event.TargetKind `json:"target_kind" db:"target_kind"`
	TargetID   string           `json:"target_id" db:"target_id"`

	// CompletionPercent is mastered cards over total cards, 0-100.
	// Recomputed only for targets whose card counts are known.
	CompletionPercent float64 `json:"completion_percent" db:"completion_percent"`

	// AccuracyRate is the running average accuracy across sessions.
	AccuracyRate float64 `json:"accuracy_rate" db:"accuracy_rate"`

	TimeSpentSeconds int `json:"time_spent_seconds" db:"time_spent_seconds"`
	CardsMastered    int `json:"cards_mastered" db:"cards_mastered"`
	TotalSessions    int `json:"total_sessions" db:"total_sessions"`

	// CurrentStreak counts consecutive calendar days with at least one
	// completed session. BestStreak is the historical maximum.
	CurrentStreak int `json:"current_streak" db:"current_streak"`
	BestStreak    int `json:"best_streak" db:"best_streak"`

	LastActivity time.Time `json:"last_activity" db:"last_activity"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
