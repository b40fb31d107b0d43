package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/recallkit/internal/event"
	"github.com/example/recallkit/internal/progress"
	"github.com/example/recallkit/internal/selector"
	"github.com/example/recallkit/internal/session"
	"github.com/example/recallkit/internal/srs"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedDeck(t *testing.T, s *Store, deckID string, cardIDs ...string) {
	t.Helper()
	ctx := context.Background()
	for i, id := range cardIDs {
		err := s.Cards().InsertCard(ctx, Card{
			ID:         id,
			DeckID:     deckID,
			Question:   "q " + id,
			Answer:     "a " + id,
			OrderIndex: i,
			IsActive:   true,
		})
		if err != nil {
			t.Fatalf("insert card %s: %v", id, err)
		}
	}
}

func TestFetchPool_FreshStatesForUnseenCards(t *testing.T) {
	s := openTestStore(t)
	seedDeck(t, s, "deck-1", "a", "b", "c")

	pool, err := s.Cards().FetchPool(context.Background(), "learner-1", "deck-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pool) != 3 {
		t.Fatalf("pool size = %d, want 3", len(pool))
	}
	for _, e := range pool {
		if e.State.Repetitions != 0 || e.State.EaseFactor != srs.DefaultEaseFactor {
			t.Errorf("card %s: unseen card should get a fresh state, got %+v", e.CardID, e.State)
		}
	}
}

func TestFetchPool_PreservesDeckOrder(t *testing.T) {
	s := openTestStore(t)
	seedDeck(t, s, "deck-1", "c", "a", "b") // order_index 0, 1, 2

	pool, err := s.Cards().FetchPool(context.Background(), "learner-1", "deck-1")
	if err != nil {
		t.Fatal(err)
	}

	got := make([]string, len(pool))
	for i, e := range pool {
		got[i] = e.CardID
	}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pool order = %v, want %v", got, want)
		}
	}
}

func TestMemoryState_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	seedDeck(t, s, "deck-1", "a")
	ctx := context.Background()

	q := 4
	state := srs.MemoryState{
		Repetitions: 2,
		EaseFactor:  2.36,
		Interval:    6,
		NextReview:  testNow.AddDate(0, 0, 6),
		LastQuality: &q,
	}
	if err := s.Cards().UpsertMemoryState(ctx, "learner-1", "a", state); err != nil {
		t.Fatal(err)
	}

	got, err := s.Cards().FetchMemoryState(ctx, "learner-1", "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Repetitions != 2 || got.Interval != 6 {
		t.Errorf("got %+v", got)
	}
	if got.EaseFactor != 2.36 {
		t.Errorf("EaseFactor = %v, want 2.36", got.EaseFactor)
	}
	if !got.NextReview.Equal(state.NextReview) {
		t.Errorf("NextReview = %v, want %v", got.NextReview, state.NextReview)
	}
	if got.LastQuality == nil || *got.LastQuality != 4 {
		t.Errorf("LastQuality = %v, want 4", got.LastQuality)
	}

	// Upsert again for the same key overwrites instead of failing.
	state.Repetitions = 3
	if err := s.Cards().UpsertMemoryState(ctx, "learner-1", "a", state); err != nil {
		t.Fatal(err)
	}
	got, err = s.Cards().FetchMemoryState(ctx, "learner-1", "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Repetitions != 3 {
		t.Errorf("Repetitions after second upsert = %d, want 3", got.Repetitions)
	}
}

func TestFetchMemoryState_UnseenCardIsFresh(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Cards().FetchMemoryState(context.Background(), "learner-1", "never-seen")
	if err != nil {
		t.Fatal(err)
	}
	if got.Repetitions != 0 || got.EaseFactor != srs.DefaultEaseFactor {
		t.Errorf("got %+v, want fresh state", got)
	}
}

func TestCountMastery(t *testing.T) {
	s := openTestStore(t)
	seedDeck(t, s, "deck-1", "a", "b", "c", "d")
	ctx := context.Background()

	// Two cards over the repetition threshold, one under, one unseen.
	states := map[string]int{"a": 3, "b": 5, "c": 1}
	for cardID, reps := range states {
		err := s.Cards().UpsertMemoryState(ctx, "learner-1", cardID, srs.MemoryState{
			Repetitions: reps,
			EaseFactor:  srs.DefaultEaseFactor,
			NextReview:  testNow,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	mastered, total, ok, err := s.Cards().CountMastery(ctx, "learner-1",
		event.Target{Kind: event.TargetDeck, ID: "deck-1"}, progress.DefaultMasteryPolicy())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("deck targets should be countable")
	}
	if mastered != 2 || total != 4 {
		t.Errorf("mastered/total = %d/%d, want 2/4", mastered, total)
	}

	_, _, ok, err = s.Cards().CountMastery(ctx, "learner-1",
		event.Target{Kind: event.TargetLesson, ID: "lesson-1"}, progress.DefaultMasteryPolicy())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("lesson targets have no card population")
	}
}

func testSession(id string) *session.StudySession {
	return &session.StudySession{
		ID:             id,
		LearnerID:      "learner-1",
		DeckID:         "deck-1",
		Mode:           selector.ModeReview,
		ScheduledCards: []string{"a", "b"},
		Status:         session.StatusActive,
		StartedAt:      testNow,
		UpdatedAt:      testNow,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := testSession("s1")
	if err := s.Sessions().Save(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := s.Sessions().Load(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "s1" || got.LearnerID != "learner-1" || got.Status != session.StatusActive {
		t.Errorf("got %+v", got)
	}
	if len(got.ScheduledCards) != 2 || got.ScheduledCards[0] != "a" {
		t.Errorf("ScheduledCards = %v", got.ScheduledCards)
	}

	// Re-saving after mutation updates in place.
	got.Cursor = 1
	got.Status = session.StatusCompleted
	if err := s.Sessions().Save(ctx, got); err != nil {
		t.Fatal(err)
	}
	got, err = s.Sessions().Load(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Cursor != 1 || got.Status != session.StatusCompleted {
		t.Errorf("got %+v after update", got)
	}
}

func TestLoad_UnknownSession(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Sessions().Load(context.Background(), "missing")
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindActive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.Sessions().FindActive(ctx, "learner-1", "deck-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil before any session, got %+v", got)
	}

	if err := s.Sessions().Save(ctx, testSession("s1")); err != nil {
		t.Fatal(err)
	}

	got, err = s.Sessions().FindActive(ctx, "learner-1", "deck-1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != "s1" {
		t.Fatalf("FindActive = %+v, want session s1", got)
	}

	// Completed sessions don't count as active.
	got.Status = session.StatusCompleted
	got.UpdatedAt = testNow.Add(time.Minute)
	if err := s.Sessions().Save(ctx, got); err != nil {
		t.Fatal(err)
	}
	got, err = s.Sessions().FindActive(ctx, "learner-1", "deck-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("completed session reported as active: %+v", got)
	}
}

func TestExpireStale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stale := testSession("stale")
	stale.UpdatedAt = testNow.Add(-48 * time.Hour)
	stale.StartedAt = stale.UpdatedAt
	if err := s.Sessions().Save(ctx, stale); err != nil {
		t.Fatal(err)
	}

	fresh := testSession("fresh")
	fresh.DeckID = "deck-2"
	if err := s.Sessions().Save(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	n, err := s.Sessions().ExpireStale(ctx, testNow.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("reclaimed %d sessions, want 1", n)
	}

	got, err := s.Sessions().Load(ctx, "stale")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != session.StatusAbandoned {
		t.Errorf("stale session status = %s, want %s", got.Status, session.StatusAbandoned)
	}

	got, err = s.Sessions().Load(ctx, "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != session.StatusActive {
		t.Errorf("fresh session status = %s, want %s", got.Status, session.StatusActive)
	}

	// A second sweep finds nothing.
	n, err = s.Sessions().ExpireStale(ctx, testNow.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second sweep reclaimed %d, want 0", n)
	}
}

func TestProgressSnapshot_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	target := event.Target{Kind: event.TargetDeck, ID: "deck-1"}
	got, err := s.Progress().Get(ctx, "learner-1", target)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil before any snapshot, got %+v", got)
	}

	snap := &progress.Snapshot{
		LearnerID:         "learner-1",
		TargetKind:        event.TargetDeck,
		TargetID:          "deck-1",
		CompletionPercent: 40,
		AccuracyRate:      0.8,
		TimeSpentSeconds:  300,
		CardsMastered:     4,
		TotalSessions:     1,
		CurrentStreak:     2,
		BestStreak:        5,
		LastActivity:      testNow,
		UpdatedAt:         testNow,
	}
	if err := s.Progress().Put(ctx, snap); err != nil {
		t.Fatal(err)
	}

	got, err = s.Progress().Get(ctx, "learner-1", target)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("snapshot not found after put")
	}
	if got.CompletionPercent != 40 || got.AccuracyRate != 0.8 || got.CurrentStreak != 2 || got.BestStreak != 5 {
		t.Errorf("got %+v", got)
	}
	if !got.LastActivity.Equal(testNow) {
		t.Errorf("LastActivity = %v, want %v", got.LastActivity, testNow)
	}

	// Upsert overwrites.
	snap.TotalSessions = 2
	if err := s.Progress().Put(ctx, snap); err != nil {
		t.Fatal(err)
	}
	got, err = s.Progress().Get(ctx, "learner-1", target)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalSessions != 2 {
		t.Errorf("TotalSessions = %d, want 2", got.TotalSessions)
	}
}

func TestListByLearner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, target := range []event.Target{
		{Kind: event.TargetDeck, ID: "deck-1"},
		{Kind: event.TargetLesson, ID: "lesson-1"},
	} {
		err := s.Progress().Put(ctx, &progress.Snapshot{
			LearnerID:  "learner-1",
			TargetKind: target.Kind,
			TargetID:   target.ID,
			UpdatedAt:  testNow,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	err := s.Progress().Put(ctx, &progress.Snapshot{
		LearnerID:  "someone-else",
		TargetKind: event.TargetDeck,
		TargetID:   "deck-9",
		UpdatedAt:  testNow,
	})
	if err != nil {
		t.Fatal(err)
	}

	snaps, err := s.Progress().ListByLearner(ctx, "learner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Errorf("listed %d snapshots, want 2", len(snaps))
	}
}

func TestProcessedSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	done, err := s.Progress().WasProcessed(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("unseen session reported processed")
	}

	if err := s.Progress().MarkProcessed(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	// Marking twice is a no-op, not an error.
	if err := s.Progress().MarkProcessed(ctx, "s1"); err != nil {
		t.Fatal(err)
	}

	done, err = s.Progress().WasProcessed(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("marked session not reported processed")
	}
}
