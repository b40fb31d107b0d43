// Package event defines the session-completed event and the sinks that
// deliver it to downstream consumers.
package event

import (
	"context"
	"time"
)

// SessionCompleted is emitted exactly once when a study session completes.
// Consumers deduplicate by SessionID; replaying the same event must be a no-op.
type SessionCompleted struct {
	SessionID string `json:"session_id"`
	LearnerID string `json:"learner_id"`
	DeckID    string `json:"deck_id"`

	// Optional rollup targets beyond the deck.
	LessonID string `json:"lesson_id,omitempty"`
	CourseID string `json:"course_id,omitempty"`
	ClassID  string `json:"class_id,omitempty"`

	Mode             string    `json:"mode"`
	CardsStudied     int       `json:"cards_studied"`
	CorrectCount     int       `json:"correct_count"`
	IncorrectCount   int       `json:"incorrect_count"`
	TotalTimeSeconds int       `json:"total_time_seconds"`
	AccuracyRate     float64   `json:"accuracy_rate"`
	CompletedAt      time.Time `json:"completed_at"`
}

// Targets returns the aggregation keys the event rolls up into, the deck
// first, then whichever of lesson/course/class are set.
func (e SessionCompleted) Targets() []Target {
	targets := []Target{{Kind: TargetDeck, ID: e.DeckID}}
	if e.LessonID != "" {
		targets = append(targets, Target{Kind: TargetLesson, ID: e.LessonID})
	}
	if e.CourseID != "" {
		targets = append(targets, Target{Kind: TargetCourse, ID: e.CourseID})
	}
	if e.ClassID != "" {
		targets = append(targets, Target{Kind: TargetClass, ID: e.ClassID})
	}
	return targets
}

// TargetKind names the level a progress rollup applies to. The aggregator
// treats these as opaque keys.
type TargetKind string

const (
	TargetDeck   TargetKind = "deck"
	TargetLesson TargetKind = "lesson"
	TargetCourse TargetKind = "course"
	TargetClass  TargetKind = "class"
)

// Target is a single aggregation key.
type Target struct {
	Kind TargetKind
	ID   string
}

// Sink receives completed-session events.
type Sink interface {
	Publish(ctx context.Context, e SessionCompleted) error
}
