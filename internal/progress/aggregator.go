// Package progress turns session-completed events into per-target rollups:
// completion percentage, accuracy, time totals, and day streaks. Updates
// happen only on completion and are deduplicated by session ID, so the
// aggregator can run synchronously after Complete or behind an event queue.
package progress

import (
	"context"
	"fmt"

	"github.com/example/recallkit/internal/clock"
	"github.com/example/recallkit/internal/event"
)

// MasteryPolicy decides when a card counts as mastered for completion
// percentages. The source material used both a repetition rule and an
// ease-factor rule at different times, so both are supported; the
// repetition rule applies when MinEaseFactor is zero.
type MasteryPolicy struct {
	MinRepetitions int
	MinEaseFactor  float64
}

// DefaultMasteryPolicy counts a card as mastered after three consecutive
// successful recalls.
func DefaultMasteryPolicy() MasteryPolicy {
	return MasteryPolicy{MinRepetitions: 3}
}

// Repo persists snapshots and the set of already-processed sessions.
type Repo interface {
	// Get returns the snapshot for a learner/target pair, or nil if none
	// exists yet.
	Get(ctx context.Context, learnerID string, t event.Target) (*Snapshot, error)
	Put(ctx context.Context, snap *Snapshot) error

	WasProcessed(ctx context.Context, sessionID string) (bool, error)
	MarkProcessed(ctx context.Context, sessionID string) error
}

// MasteryCounter reports how many of a target's cards the learner has
// mastered. Targets whose card population is unknown report ok=false and
// leave the completion percentage untouched.
type MasteryCounter interface {
	CountMastery(ctx context.Context, learnerID string, t event.Target, p MasteryPolicy) (mastered, total int, ok bool, err error)
}

// Aggregator consumes session-completed events.
type Aggregator struct {
	repo    Repo
	counter MasteryCounter
	clk     clock.Clock
	policy  MasteryPolicy
}

// NewAggregator wires an aggregator. counter may be nil, in which case
// completion percentages are never recomputed.
func NewAggregator(repo Repo, counter MasteryCounter, clk clock.Clock, policy MasteryPolicy) *Aggregator {
	return &Aggregator{repo: repo, counter: counter, clk: clk, policy: policy}
}

// HandleSessionCompleted updates one snapshot per aggregation target on
// the event. Reprocessing an already-seen session is a no-op.
func (a *Aggregator) HandleSessionCompleted(ctx context.Context, e event.SessionCompleted) error {
	seen, err := a.repo.WasProcessed(ctx, e.SessionID)
	if err != nil {
		return fmt.Errorf("check processed: %w", err)
	}
	if seen {
		return nil
	}

	for _, target := range e.Targets() {
		if err := a.updateTarget(ctx, e, target); err != nil {
			return fmt.Errorf("update %s %s: %w", target.Kind, target.ID, err)
		}
	}

	if err := a.repo.MarkProcessed(ctx, e.SessionID); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func (a *Aggregator) updateTarget(ctx context.Context, e event.SessionCompleted, target event.Target) error {
	snap, err := a.repo.Get(ctx, e.LearnerID, target)
	if err != nil {
		return err
	}
	if snap == nil {
		snap = &Snapshot{
			LearnerID:  e.LearnerID,
			TargetKind: target.Kind,
			TargetID:   target.ID,
		}
	}

	snap.CurrentStreak = NextStreak(snap.CurrentStreak, snap.LastActivity, e.CompletedAt)
	if snap.CurrentStreak > snap.BestStreak {
		snap.BestStreak = snap.CurrentStreak
	}

	// Running accuracy average across sessions.
	snap.AccuracyRate = (snap.AccuracyRate*float64(snap.TotalSessions) + e.AccuracyRate) / float64(snap.TotalSessions+1)
	snap.TotalSessions++
	snap.TimeSpentSeconds += e.TotalTimeSeconds
	snap.LastActivity = e.CompletedAt
	snap.UpdatedAt = a.clk.Now()

	if a.counter != nil {
		mastered, total, ok, err := a.counter.CountMastery(ctx, e.LearnerID, target, a.policy)
		if err != nil {
			return fmt.Errorf("count mastery: %w", err)
		}
		if ok {
			snap.CardsMastered = mastered
			if total > 0 {
				snap.CompletionPercent = 100.0 * float64(mastered) / float64(total)
			} else {
				snap.CompletionPercent = 0
			}
		}
	}

	return a.repo.Put(ctx, snap)
}
