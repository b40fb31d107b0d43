// Package srs implements the SM-2 spaced repetition algorithm: given a
// recall quality rating and a card's prior memory state, it computes the
// new repetition count, ease factor, interval, and next review date.
package srs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// MinQuality and MaxQuality bound the recall quality scale.
	MinQuality = 0
	MaxQuality = 5

	// DefaultPassThreshold is the lowest quality counted as a successful recall.
	DefaultPassThreshold = 3

	// MinEaseFactor is the floor applied to the ease factor after every review.
	MinEaseFactor = 1.3

	// DefaultEaseFactor is the ease factor assigned to unseen cards.
	DefaultEaseFactor = 2.5
)

// ErrInvalidQuality is returned when a quality rating falls outside [0,5].
var ErrInvalidQuality = errors.New("quality must be between 0 and 5")

// Engine computes memory state updates. The zero value is not usable;
// construct with NewEngine.
type Engine struct {
	// PassThreshold is the lowest quality counted as a pass.
	PassThreshold int

	// MaxIntervalDays caps the computed interval. Zero means uncapped.
	MaxIntervalDays int

	// MaxEaseFactor caps the ease factor. Zero means uncapped.
	MaxEaseFactor float64
}

// NewEngine returns an engine with the standard SM-2 parameters.
func NewEngine() *Engine {
	return &Engine{PassThreshold: DefaultPassThreshold}
}

// Review computes the next memory state from a quality rating and the prior
// state. It is pure: identical inputs always produce identical outputs, and
// prior is never mutated. The supplied now is the review instant; NextReview
// is set to now plus the new interval in days.
func (e *Engine) Review(quality int, prior MemoryState, now time.Time) (MemoryState, error) {
	if quality < MinQuality || quality > MaxQuality {
		return MemoryState{}, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}

	next := prior

	if quality >= e.PassThreshold {
		switch prior.Repetitions {
		case 0:
			next.Interval = 1
		case 1:
			next.Interval = 6
		default:
			next.Interval = int(math.Round(float64(prior.Interval) * prior.EaseFactor))
		}
		next.Repetitions = prior.Repetitions + 1
	} else {
		next.Repetitions = 0
		next.Interval = 1
	}

	if e.MaxIntervalDays > 0 && next.Interval > e.MaxIntervalDays {
		next.Interval = e.MaxIntervalDays
	}

	// Ease factor adjusts on every review, pass or lapse.
	q := float64(quality)
	ef := prior.EaseFactor + (0.1 - (5.0-q)*(0.08+(5.0-q)*0.02))
	if ef < MinEaseFactor {
		ef = MinEaseFactor
	}
	if e.MaxEaseFactor > 0 && ef > e.MaxEaseFactor {
		ef = e.MaxEaseFactor
	}
	next.EaseFactor = ef

	next.NextReview = now.AddDate(0, 0, next.Interval)
	lq := quality
	next.LastQuality = &lq

	return next, nil
}

// IsPass reports whether a quality rating counts as a successful recall.
func (e *Engine) IsPass(quality int) bool {
	return quality >= e.PassThreshold
}
