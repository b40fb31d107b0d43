package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/example/recallkit/internal/clock"
	"github.com/example/recallkit/internal/event"
	"github.com/example/recallkit/internal/metrics"
	"github.com/example/recallkit/internal/selector"
	"github.com/example/recallkit/internal/srs"
)

// CardRepository supplies the deck snapshot at session start and receives
// updated memory states as answers are recorded. Implementations own all
// persistence concerns; upserts are expected to be idempotent.
type CardRepository interface {
	FetchPool(ctx context.Context, learnerID, deckID string) ([]selector.Entry, error)
	// FetchMemoryState returns the learner's current state for one card.
	// Unseen cards get srs.NewState().
	FetchMemoryState(ctx context.Context, learnerID, cardID string) (srs.MemoryState, error)
	UpsertMemoryState(ctx context.Context, learnerID, cardID string, state srs.MemoryState) error
}

// Store persists sessions across calls.
type Store interface {
	Save(ctx context.Context, s *StudySession) error
	// Load returns ErrNotFound for unknown IDs.
	Load(ctx context.Context, id string) (*StudySession, error)
	// FindActive returns the learner's active session for a deck, or nil.
	FindActive(ctx context.Context, learnerID, deckID string) (*StudySession, error)
}

// Policy holds deployment-level scheduling knobs.
type Policy struct {
	// RequireNonEmpty makes Start fail with ErrEmptyPool instead of
	// creating a zero-card session.
	RequireNonEmpty bool

	// ScoreCasualModes makes Practice, Cram, and Test answers update the
	// persisted memory state. Review and Learn always do.
	ScoreCasualModes bool
}

// StartRequest describes the session to create.
type StartRequest struct {
	LearnerID string
	DeckID    string
	LessonID  string
	CourseID  string
	ClassID   string

	Mode              selector.Mode
	TargetCards       *int
	TargetTimeMinutes *int

	BreakRemindersEnabled bool
	BreakDurationMinutes  int

	// FixedOrder keeps Test mode in deck order instead of shuffling.
	FixedOrder bool

	// Seed drives shuffled modes. Zero falls back to the current time.
	Seed int64
}

// AnswerResult is returned by RecordAnswer.
type AnswerResult struct {
	Session *StudySession
	Correct bool

	// NewState is the recomputed memory state, nil when the mode/policy
	// combination leaves the schedule untouched.
	NewState *srs.MemoryState
}

// Manager orchestrates study sessions. All dependencies are injected;
// there is no process-wide state. Calls against the same session are
// serialized with a per-session lock.
type Manager struct {
	cards   CardRepository
	store   Store
	engine  *srs.Engine
	clk     clock.Clock
	sink    event.Sink
	policy  Policy
	metrics *metrics.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager wires a session manager. sink and m may be nil to disable
// event publishing and metrics.
func NewManager(cards CardRepository, store Store, clk clock.Clock, sink event.Sink, policy Policy, m *metrics.Metrics) *Manager {
	return &Manager{
		cards:   cards,
		store:   store,
		engine:  srs.NewEngine(),
		clk:     clk,
		sink:    sink,
		policy:  policy,
		metrics: m,
		locks:   make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex guarding a session, creating it on first use.
func (m *Manager) sessionLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *Manager) releaseLock(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, id)
}

// Start snapshots the deck pool, selects the card sequence for the mode,
// and persists a new active session. The pool is read exactly once; deck
// changes after this point do not affect the session. At most one active
// session may exist per learner/deck pair.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*StudySession, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", selector.ErrUnknownMode, req.Mode)
	}

	existing, err := m.store.FindActive(ctx, req.LearnerID, req.DeckID)
	if err != nil {
		return nil, fmt.Errorf("check active session: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: session %s", ErrSessionInProgress, existing.ID)
	}

	pool, err := m.cards.FetchPool(ctx, req.LearnerID, req.DeckID)
	if err != nil {
		return nil, fmt.Errorf("fetch pool: %w", err)
	}

	now := m.clk.Now()
	seed := req.Seed
	if seed == 0 {
		seed = now.UnixNano()
	}

	sel := selector.New(seed)
	scheduled, err := sel.Select(req.Mode, pool, now, selector.Options{
		TargetCards: req.TargetCards,
		FixedOrder:  req.FixedOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("select cards: %w", err)
	}
	if len(scheduled) == 0 && m.policy.RequireNonEmpty {
		return nil, ErrEmptyPool
	}

	sess := &StudySession{
		ID:                    uuid.NewString(),
		LearnerID:             req.LearnerID,
		DeckID:                req.DeckID,
		LessonID:              req.LessonID,
		CourseID:              req.CourseID,
		ClassID:               req.ClassID,
		Mode:                  req.Mode,
		TargetCards:           req.TargetCards,
		TargetTimeMinutes:     req.TargetTimeMinutes,
		BreakRemindersEnabled: req.BreakRemindersEnabled,
		BreakDurationMinutes:  req.BreakDurationMinutes,
		ScheduledCards:        scheduled,
		Status:                StatusActive,
		StartedAt:             now,
		UpdatedAt:             now,
	}

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if m.metrics != nil {
		m.metrics.SessionsStarted.WithLabelValues(string(req.Mode)).Inc()
	}
	return sess, nil
}

// RecordAnswer records the response to the card at the current cursor
// position. Answering any other card fails with ErrOutOfOrder and leaves
// the session untouched. For scheduling modes (and casual modes when the
// policy opts in) the card's memory state is recomputed and upserted
// through the repository.
func (m *Manager) RecordAnswer(ctx context.Context, sessionID, cardID string, quality int, responseSeconds float64) (*AnswerResult, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusActive {
		if sess.Status == StatusCompleted {
			return nil, ErrAlreadyCompleted
		}
		return nil, fmt.Errorf("%w: status %s", ErrNotActive, sess.Status)
	}

	current, ok := sess.CurrentCard()
	if !ok {
		return nil, ErrQueueExhausted
	}
	if cardID != current {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrOutOfOrder, current, cardID)
	}

	now := m.clk.Now()

	// Validate quality and compute the schedule update before mutating
	// anything, so a bad answer leaves the session unchanged.
	var newState *srs.MemoryState
	if sess.Mode.UsesScheduling() || m.policy.ScoreCasualModes {
		prior, err := m.cards.FetchMemoryState(ctx, sess.LearnerID, cardID)
		if err != nil {
			return nil, fmt.Errorf("fetch memory state: %w", err)
		}
		next, err := m.engine.Review(quality, prior, now)
		if err != nil {
			return nil, err
		}
		if err := m.cards.UpsertMemoryState(ctx, sess.LearnerID, cardID, next); err != nil {
			return nil, fmt.Errorf("upsert memory state: %w", err)
		}
		newState = &next
	} else if quality < srs.MinQuality || quality > srs.MaxQuality {
		return nil, fmt.Errorf("%w: got %d", srs.ErrInvalidQuality, quality)
	}

	correct := m.engine.IsPass(quality)
	sess.Answers = append(sess.Answers, Answer{
		CardID:              cardID,
		Quality:             quality,
		ResponseTimeSeconds: responseSeconds,
		Correct:             correct,
		AnsweredAt:          now,
	})
	if correct {
		sess.CorrectCount++
	} else {
		sess.IncorrectCount++
	}
	sess.CardsStudied++
	sess.TotalTimeSeconds += int(responseSeconds)
	sess.Cursor++
	sess.UpdatedAt = now

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if m.metrics != nil {
		m.metrics.AnswersRecorded.WithLabelValues(string(sess.Mode), boolLabel(correct)).Inc()
		m.metrics.ResponseTime.Observe(responseSeconds)
	}

	return &AnswerResult{Session: sess, Correct: correct, NewState: newState}, nil
}

// RequestBreak records a break reminder. It never touches the cursor or
// the scheduled queue, and is a no-op for sessions with reminders disabled.
func (m *Manager) RequestBreak(ctx context.Context, sessionID string) (*StudySession, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusActive {
		return nil, fmt.Errorf("%w: status %s", ErrNotActive, sess.Status)
	}
	if !sess.BreakRemindersEnabled {
		return sess, nil
	}

	sess.BreakCount++
	sess.UpdatedAt = m.clk.Now()
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// ResumeBreak marks the session active again after a break. The queue and
// counters are untouched; only the activity timestamp moves.
func (m *Manager) ResumeBreak(ctx context.Context, sessionID string) (*StudySession, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusActive {
		return nil, fmt.Errorf("%w: status %s", ErrNotActive, sess.Status)
	}

	sess.UpdatedAt = m.clk.Now()
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Complete finalizes the session, whether or not every scheduled card was
// answered. It computes the session analytics, transitions to Completed,
// and publishes exactly one completion event. A second call fails with
// ErrAlreadyCompleted; replay protection beyond that belongs to event
// consumers, keyed by session ID.
func (m *Manager) Complete(ctx context.Context, sessionID string) (*Summary, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusCompleted {
		return nil, ErrAlreadyCompleted
	}
	if sess.Status != StatusActive {
		return nil, fmt.Errorf("%w: status %s", ErrNotActive, sess.Status)
	}

	now := m.clk.Now()
	answered := sess.CorrectCount + sess.IncorrectCount

	sess.AccuracyRate = 0
	if answered > 0 {
		sess.AccuracyRate = float64(sess.CorrectCount) / float64(answered)
	}
	sess.AverageResponseTime = 0
	if answered > 0 {
		var total float64
		for _, a := range sess.Answers {
			total += a.ResponseTimeSeconds
		}
		sess.AverageResponseTime = total / float64(answered)
	}
	sess.CardsPerMinute = 0
	if sess.TotalTimeSeconds > 0 {
		sess.CardsPerMinute = float64(sess.CardsStudied) / (float64(sess.TotalTimeSeconds) / 60.0)
	}

	sess.Status = StatusCompleted
	sess.CompletedAt = &now
	sess.UpdatedAt = now

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if m.sink != nil {
		e := event.SessionCompleted{
			SessionID:        sess.ID,
			LearnerID:        sess.LearnerID,
			DeckID:           sess.DeckID,
			LessonID:         sess.LessonID,
			CourseID:         sess.CourseID,
			ClassID:          sess.ClassID,
			Mode:             string(sess.Mode),
			CardsStudied:     sess.CardsStudied,
			CorrectCount:     sess.CorrectCount,
			IncorrectCount:   sess.IncorrectCount,
			TotalTimeSeconds: sess.TotalTimeSeconds,
			AccuracyRate:     sess.AccuracyRate,
			CompletedAt:      now,
		}
		if err := m.sink.Publish(ctx, e); err != nil {
			return nil, fmt.Errorf("publish completion event: %w", err)
		}
		if m.metrics != nil {
			m.metrics.EventsPublished.Inc()
		}
	}

	if m.metrics != nil {
		m.metrics.SessionsCompleted.WithLabelValues(string(sess.Mode)).Inc()
	}

	m.releaseLock(sessionID)
	return BuildSummary(sess), nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
