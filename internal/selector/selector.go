// Package selector decides which cards enter a study session. Each study
// mode has its own eligibility and ordering policy; selection reads a
// point-in-time snapshot of the deck and never mutates it.
package selector

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/example/recallkit/internal/srs"
)

// ErrInvalidTarget is returned when a card target is explicitly set to a
// non-positive value.
var ErrInvalidTarget = errors.New("target cards must be positive")

// ErrUnknownMode is returned for a study mode the selector does not recognize.
var ErrUnknownMode = errors.New("unknown study mode")

// Mode is a study mode. It determines which cards are eligible for a
// session and how they are ordered.
type Mode string

const (
	ModeReview   Mode = "review"
	ModePractice Mode = "practice"
	ModeCram     Mode = "cram"
	ModeTest     Mode = "test"
	ModeLearn    Mode = "learn"
)

// Valid reports whether m is one of the five known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeReview, ModePractice, ModeCram, ModeTest, ModeLearn:
		return true
	}
	return false
}

// UsesScheduling reports whether answers in this mode always feed the
// spaced repetition schedule. Casual modes update the schedule only when
// the deployment opts in.
func (m Mode) UsesScheduling() bool {
	return m == ModeReview || m == ModeLearn
}

// HintsAllowed reports whether hints may be shown during the session.
func (m Mode) HintsAllowed() bool {
	return m != ModeTest
}

// Entry pairs a card with its memory state inside a pool snapshot.
type Entry struct {
	CardID string
	State  srs.MemoryState
}

// Options tunes a single selection.
type Options struct {
	// TargetCards caps the number of selected cards. Nil means no explicit
	// target: Review and Learn return every eligible card, Cram and Test
	// cover the whole pool.
	TargetCards *int

	// FixedOrder keeps Test mode in pool order instead of shuffling.
	FixedOrder bool
}

// Selector produces the ordered card sequence for a session. The random
// source is injected so selections can be reproduced in tests.
type Selector struct {
	rng *rand.Rand
}

// New creates a selector seeded from the given value.
func New(seed int64) *Selector {
	return &Selector{rng: rand.New(rand.NewSource(seed))}
}

// Select returns the ordered card IDs for a session in the given mode.
// pool is treated as read-only. An empty eligible set yields an empty
// sequence, not an error.
func (s *Selector) Select(mode Mode, pool []Entry, now time.Time, opts Options) ([]string, error) {
	if opts.TargetCards != nil && *opts.TargetCards <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTarget, *opts.TargetCards)
	}

	var picked []Entry
	switch mode {
	case ModeReview:
		picked = s.selectReview(pool, now)
	case ModeLearn:
		picked = s.selectLearn(pool)
	case ModePractice, ModeCram:
		picked = s.selectShuffled(pool)
	case ModeTest:
		if opts.FixedOrder {
			picked = append(picked, pool...)
		} else {
			picked = s.selectShuffled(pool)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if opts.TargetCards != nil && len(picked) > *opts.TargetCards {
		picked = picked[:*opts.TargetCards]
	}

	ids := make([]string, len(picked))
	for i, e := range picked {
		ids[i] = e.CardID
	}
	return ids, nil
}

// selectReview picks due cards, most urgent first. Ties on the due date
// break by card ID so the order is stable across runs.
func (s *Selector) selectReview(pool []Entry, now time.Time) []Entry {
	var due []Entry
	for _, e := range pool {
		if e.State.IsDue(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].State.NextReview.Equal(due[j].State.NextReview) {
			return due[i].State.NextReview.Before(due[j].State.NextReview)
		}
		return due[i].CardID < due[j].CardID
	})
	return due
}

// selectLearn picks cards with no successful reviews yet, in pool order.
func (s *Selector) selectLearn(pool []Entry) []Entry {
	var fresh []Entry
	for _, e := range pool {
		if e.State.IsNew() {
			fresh = append(fresh, e)
		}
	}
	return fresh
}

// selectShuffled returns the whole pool in uniform random order without
// replacement.
func (s *Selector) selectShuffled(pool []Entry) []Entry {
	shuffled := make([]Entry, len(pool))
	copy(shuffled, pool)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
