// Package session runs a single study encounter as a state machine: it
// fixes the card sequence at start, records answers strictly in order,
// feeds results to the spaced repetition engine, and emits one completion
// event with the session's analytics.
package session

import (
	"time"

	"github.com/example/recallkit/internal/selector"
)

// Status is the lifecycle state of a study session.
type Status string

const (
	StatusCreated   Status = "created"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"

	// StatusAbandoned marks sessions reclaimed by the stale-session sweep.
	// It is terminal and never set by Complete.
	StatusAbandoned Status = "abandoned"
)

// Answer records a single response to a scheduled card. Answers are
// append-only, one per scheduled card.
type Answer struct {
	CardID              string    `json:"card_id"`
	Quality             int       `json:"quality"`
	ResponseTimeSeconds float64   `json:"response_time_seconds"`
	Correct             bool      `json:"correct"`
	AnsweredAt          time.Time `json:"answered_at"`
}

// StudySession is a single study encounter. It is created by
// Manager.Start, mutated only through Manager calls, and becomes
// read-only history once completed or abandoned.
type StudySession struct {
	ID        string `json:"id"`
	LearnerID string `json:"learner_id"`
	DeckID    string `json:"deck_id"`

	// Optional rollup targets forwarded to the completion event.
	LessonID string `json:"lesson_id,omitempty"`
	CourseID string `json:"course_id,omitempty"`
	ClassID  string `json:"class_id,omitempty"`

	Mode selector.Mode `json:"mode"`

	// TargetCards and TargetTimeMinutes are optional session bounds.
	// TargetCards is an upper bound on selection, not a strict quota.
	TargetCards       *int `json:"target_cards,omitempty"`
	TargetTimeMinutes *int `json:"target_time_minutes,omitempty"`

	BreakRemindersEnabled bool `json:"break_reminders_enabled"`
	BreakDurationMinutes  int  `json:"break_duration_minutes"`

	// ScheduledCards is the ordered card sequence, fixed at creation.
	ScheduledCards []string `json:"scheduled_cards"`

	// Cursor is the index of the next card to answer. It only advances.
	Cursor int `json:"cursor"`

	Answers []Answer `json:"answers"`

	CardsStudied     int `json:"cards_studied"`
	CorrectCount     int `json:"correct_count"`
	IncorrectCount   int `json:"incorrect_count"`
	TotalTimeSeconds int `json:"total_time_seconds"`
	BreakCount       int `json:"break_count"`

	Status Status `json:"status"`

	// Analytics computed at completion.
	AccuracyRate        float64 `json:"accuracy_rate"`
	AverageResponseTime float64 `json:"average_response_time"`
	CardsPerMinute      float64 `json:"cards_per_minute"`

	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CurrentCard returns the card at the cursor, or false if every scheduled
// card has been answered.
func (s *StudySession) CurrentCard() (string, bool) {
	if s.Cursor >= len(s.ScheduledCards) {
		return "", false
	}
	return s.ScheduledCards[s.Cursor], true
}

// Remaining returns how many scheduled cards are still unanswered.
func (s *StudySession) Remaining() int {
	return len(s.ScheduledCards) - s.Cursor
}

// Finished reports whether the queue has been fully answered.
func (s *StudySession) Finished() bool {
	return s.Cursor >= len(s.ScheduledCards)
}

// Terminal reports whether the session can no longer change.
func (s *StudySession) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusAbandoned
}
