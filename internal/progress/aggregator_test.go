package progress

import (
	"context"
	"testing"
	"time"

	"github.com/example/recallkit/internal/clock"
	"github.com/example/recallkit/internal/event"
)

var testNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

// mockRepo keeps snapshots and processed IDs in maps.
type mockRepo struct {
	snaps     map[string]*Snapshot
	processed map[string]bool
	puts      int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		snaps:     make(map[string]*Snapshot),
		processed: make(map[string]bool),
	}
}

func key(learnerID string, t event.Target) string {
	return learnerID + "/" + string(t.Kind) + "/" + t.ID
}

func (m *mockRepo) Get(_ context.Context, learnerID string, t event.Target) (*Snapshot, error) {
	if s, ok := m.snaps[key(learnerID, t)]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *mockRepo) Put(_ context.Context, snap *Snapshot) error {
	cp := *snap
	m.snaps[key(snap.LearnerID, event.Target{Kind: snap.TargetKind, ID: snap.TargetID})] = &cp
	m.puts++
	return nil
}

func (m *mockRepo) WasProcessed(_ context.Context, sessionID string) (bool, error) {
	return m.processed[sessionID], nil
}

func (m *mockRepo) MarkProcessed(_ context.Context, sessionID string) error {
	m.processed[sessionID] = true
	return nil
}

// mockCounter reports fixed mastery counts for deck targets.
type mockCounter struct {
	mastered int
	total    int
}

func (m *mockCounter) CountMastery(_ context.Context, _ string, t event.Target, _ MasteryPolicy) (int, int, bool, error) {
	if t.Kind != event.TargetDeck {
		return 0, 0, false, nil
	}
	return m.mastered, m.total, true, nil
}

func completedEvent(sessionID string, at time.Time) event.SessionCompleted {
	return event.SessionCompleted{
		SessionID:        sessionID,
		LearnerID:        "learner-1",
		DeckID:           "deck-1",
		Mode:             "review",
		CardsStudied:     10,
		CorrectCount:     8,
		IncorrectCount:   2,
		TotalTimeSeconds: 300,
		AccuracyRate:     0.8,
		CompletedAt:      at,
	}
}

func TestHandleSessionCompleted_CreatesSnapshot(t *testing.T) {
	repo := newMockRepo()
	counter := &mockCounter{mastered: 4, total: 10}
	agg := NewAggregator(repo, counter, clock.At(testNow), DefaultMasteryPolicy())

	if err := agg.HandleSessionCompleted(context.Background(), completedEvent("s1", testNow)); err != nil {
		t.Fatal(err)
	}

	snap := repo.snaps[key("learner-1", event.Target{Kind: event.TargetDeck, ID: "deck-1"})]
	if snap == nil {
		t.Fatal("expected a deck snapshot")
	}
	if snap.TotalSessions != 1 {
		t.Errorf("TotalSessions = %d, want 1", snap.TotalSessions)
	}
	if snap.AccuracyRate != 0.8 {
		t.Errorf("AccuracyRate = %v, want 0.8", snap.AccuracyRate)
	}
	if snap.TimeSpentSeconds != 300 {
		t.Errorf("TimeSpentSeconds = %d, want 300", snap.TimeSpentSeconds)
	}
	if snap.CurrentStreak != 1 {
		t.Errorf("CurrentStreak = %d, want 1", snap.CurrentStreak)
	}
	if snap.CardsMastered != 4 {
		t.Errorf("CardsMastered = %d, want 4", snap.CardsMastered)
	}
	if snap.CompletionPercent != 40 {
		t.Errorf("CompletionPercent = %v, want 40", snap.CompletionPercent)
	}
	if !snap.LastActivity.Equal(testNow) {
		t.Errorf("LastActivity = %v, want %v", snap.LastActivity, testNow)
	}
}

func TestHandleSessionCompleted_DeduplicatesBySessionID(t *testing.T) {
	repo := newMockRepo()
	agg := NewAggregator(repo, nil, clock.At(testNow), DefaultMasteryPolicy())

	e := completedEvent("s1", testNow)
	if err := agg.HandleSessionCompleted(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if err := agg.HandleSessionCompleted(context.Background(), e); err != nil {
		t.Fatal(err)
	}

	snap := repo.snaps[key("learner-1", event.Target{Kind: event.TargetDeck, ID: "deck-1"})]
	if snap.TotalSessions != 1 {
		t.Errorf("TotalSessions = %d after replay, want 1", snap.TotalSessions)
	}
	if repo.puts != 1 {
		t.Errorf("puts = %d after replay, want 1", repo.puts)
	}
}

func TestHandleSessionCompleted_UpdatesEveryTarget(t *testing.T) {
	repo := newMockRepo()
	agg := NewAggregator(repo, nil, clock.At(testNow), DefaultMasteryPolicy())

	e := completedEvent("s1", testNow)
	e.LessonID = "lesson-1"
	e.CourseID = "course-1"
	e.ClassID = "class-1"

	if err := agg.HandleSessionCompleted(context.Background(), e); err != nil {
		t.Fatal(err)
	}

	if len(repo.snaps) != 4 {
		t.Errorf("updated %d targets, want 4 (deck, lesson, course, class)", len(repo.snaps))
	}
	for _, target := range e.Targets() {
		if repo.snaps[key("learner-1", target)] == nil {
			t.Errorf("no snapshot for %s %s", target.Kind, target.ID)
		}
	}
}

func TestHandleSessionCompleted_RunningAccuracyAverage(t *testing.T) {
	repo := newMockRepo()
	agg := NewAggregator(repo, nil, clock.At(testNow), DefaultMasteryPolicy())

	first := completedEvent("s1", testNow)
	first.AccuracyRate = 1.0
	if err := agg.HandleSessionCompleted(context.Background(), first); err != nil {
		t.Fatal(err)
	}

	second := completedEvent("s2", testNow)
	second.AccuracyRate = 0.5
	if err := agg.HandleSessionCompleted(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	snap := repo.snaps[key("learner-1", event.Target{Kind: event.TargetDeck, ID: "deck-1"})]
	if snap.AccuracyRate != 0.75 {
		t.Errorf("AccuracyRate = %v, want 0.75", snap.AccuracyRate)
	}
	if snap.TimeSpentSeconds != 600 {
		t.Errorf("TimeSpentSeconds = %d, want 600", snap.TimeSpentSeconds)
	}
}

func TestHandleSessionCompleted_StreakAcrossDays(t *testing.T) {
	repo := newMockRepo()
	agg := NewAggregator(repo, nil, clock.At(testNow), DefaultMasteryPolicy())

	days := []time.Time{
		time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC), // same day
		time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC),  // next day
		time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC),  // next day
		time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC),  // gap, resets
	}
	wantStreaks := []int{1, 1, 2, 3, 1}

	for i, at := range days {
		e := completedEvent(string(rune('a'+i)), at)
		if err := agg.HandleSessionCompleted(context.Background(), e); err != nil {
			t.Fatal(err)
		}
		snap := repo.snaps[key("learner-1", event.Target{Kind: event.TargetDeck, ID: "deck-1"})]
		if snap.CurrentStreak != wantStreaks[i] {
			t.Errorf("day %d: CurrentStreak = %d, want %d", i, snap.CurrentStreak, wantStreaks[i])
		}
	}

	snap := repo.snaps[key("learner-1", event.Target{Kind: event.TargetDeck, ID: "deck-1"})]
	if snap.BestStreak != 3 {
		t.Errorf("BestStreak = %d, want 3", snap.BestStreak)
	}
}
