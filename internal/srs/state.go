package srs

import "time"

// MemoryState holds the spaced repetition state for a single learner/card pair.
type MemoryState struct {
	// Repetitions is the number of consecutive successful recalls since
	// the last lapse.
	Repetitions int `json:"repetitions" db:"repetitions"`

	// EaseFactor controls how quickly the review interval grows.
	// Never drops below MinEaseFactor.
	EaseFactor float64 `json:"ease_factor" db:"ease_factor"`

	// Interval is the current review interval in days.
	Interval int `json:"interval" db:"interval"`

	// NextReview is when the card is next due.
	NextReview time.Time `json:"next_review" db:"next_review"`

	// LastQuality is the most recent quality rating, nil if the card
	// has never been reviewed.
	LastQuality *int `json:"last_quality,omitempty" db:"last_quality"`
}

// NewState returns the memory state for a card that has never been reviewed.
func NewState() MemoryState {
	return MemoryState{
		Repetitions: 0,
		EaseFactor:  DefaultEaseFactor,
		Interval:    0,
	}
}

// IsDue returns true if the card is due for review (at or past NextReview).
func (s MemoryState) IsDue(now time.Time) bool {
	return !now.Before(s.NextReview)
}

// OverdueDays returns how many days past due the card is. Returns 0 if not yet due.
func (s MemoryState) OverdueDays(now time.Time) float64 {
	if now.Before(s.NextReview) {
		return 0
	}
	return now.Sub(s.NextReview).Hours() / 24.0
}

// IsNew returns true if the card has never had a successful review.
func (s MemoryState) IsNew() bool {
	return s.Repetitions == 0
}
