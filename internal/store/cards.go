package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/recallkit/internal/event"
	"github.com/example/recallkit/internal/progress"
	"github.com/example/recallkit/internal/selector"
	"github.com/example/recallkit/internal/srs"
)

// Card is a stored flashcard. Authoring is out of scope for the engine;
// this is the minimum needed to hold a deck's pool.
type Card struct {
	ID         string `db:"id"`
	DeckID     string `db:"deck_id"`
	Question   string `db:"question"`
	Answer     string `db:"answer"`
	Hint       string `db:"hint"`
	OrderIndex int    `db:"order_index"`
	IsActive   bool   `db:"is_active"`
}

// CardRepo implements session.CardRepository and progress.MasteryCounter
// over the cards and memory_states tables.
type CardRepo struct {
	db *sqlx.DB
}

// memoryRow is the database image of srs.MemoryState.
type memoryRow struct {
	Repetitions int           `db:"repetitions"`
	EaseFactor  float64       `db:"ease_factor"`
	Interval    int           `db:"interval"`
	NextReview  string        `db:"next_review"`
	LastQuality sql.NullInt64 `db:"last_quality"`
}

func (r memoryRow) toState() srs.MemoryState {
	state := srs.MemoryState{
		Repetitions: r.Repetitions,
		EaseFactor:  r.EaseFactor,
		Interval:    r.Interval,
	}
	if r.NextReview != "" {
		if t, err := time.Parse(time.RFC3339, r.NextReview); err == nil {
			state.NextReview = t
		}
	}
	if r.LastQuality.Valid {
		q := int(r.LastQuality.Int64)
		state.LastQuality = &q
	}
	return state
}

// InsertCard adds a card to a deck.
func (r *CardRepo) InsertCard(ctx context.Context, c Card) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cards (id, deck_id, question, answer, hint, order_index, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.DeckID, c.Question, c.Answer, c.Hint, c.OrderIndex, c.IsActive)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// FetchPool returns the deck's active cards paired with the learner's
// memory states, in deck order. Cards the learner has never reviewed get
// a fresh state.
func (r *CardRepo) FetchPool(ctx context.Context, learnerID, deckID string) ([]selector.Entry, error) {
	type poolRow struct {
		CardID      string          `db:"card_id"`
		Repetitions sql.NullInt64   `db:"repetitions"`
		EaseFactor  sql.NullFloat64 `db:"ease_factor"`
		Interval    sql.NullInt64   `db:"interval"`
		NextReview  sql.NullString  `db:"next_review"`
		LastQuality sql.NullInt64   `db:"last_quality"`
	}

	var rows []poolRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT c.id AS card_id,
		       m.repetitions, m.ease_factor, m.interval, m.next_review, m.last_quality
		FROM cards c
		LEFT JOIN memory_states m ON m.card_id = c.id AND m.learner_id = $1
		WHERE c.deck_id = $2 AND c.is_active = 1
		ORDER BY c.order_index, c.id`,
		learnerID, deckID)
	if err != nil {
		return nil, fmt.Errorf("fetch pool: %w", err)
	}

	pool := make([]selector.Entry, 0, len(rows))
	for _, row := range rows {
		entry := selector.Entry{CardID: row.CardID, State: srs.NewState()}
		if row.Repetitions.Valid {
			entry.State = memoryRow{
				Repetitions: int(row.Repetitions.Int64),
				EaseFactor:  row.EaseFactor.Float64,
				Interval:    int(row.Interval.Int64),
				NextReview:  row.NextReview.String,
				LastQuality: row.LastQuality,
			}.toState()
		}
		pool = append(pool, entry)
	}
	return pool, nil
}

// FetchMemoryState returns the learner's state for one card, or a fresh
// state if the card has never been reviewed.
func (r *CardRepo) FetchMemoryState(ctx context.Context, learnerID, cardID string) (srs.MemoryState, error) {
	var row memoryRow
	err := r.db.GetContext(ctx, &row, `
		SELECT repetitions, ease_factor, interval, next_review, last_quality
		FROM memory_states
		WHERE learner_id = $1 AND card_id = $2`,
		learnerID, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return srs.NewState(), nil
	}
	if err != nil {
		return srs.MemoryState{}, fmt.Errorf("fetch memory state: %w", err)
	}
	return row.toState(), nil
}

// UpsertMemoryState writes the learner's state for one card. Safe to retry.
func (r *CardRepo) UpsertMemoryState(ctx context.Context, learnerID, cardID string, state srs.MemoryState) error {
	var lastQuality sql.NullInt64
	if state.LastQuality != nil {
		lastQuality = sql.NullInt64{Int64: int64(*state.LastQuality), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memory_states (learner_id, card_id, repetitions, ease_factor, interval, next_review, last_quality, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (learner_id, card_id) DO UPDATE SET
			repetitions = excluded.repetitions,
			ease_factor = excluded.ease_factor,
			interval = excluded.interval,
			next_review = excluded.next_review,
			last_quality = excluded.last_quality,
			updated_at = excluded.updated_at`,
		learnerID, cardID, state.Repetitions, state.EaseFactor, state.Interval,
		state.NextReview.Format(time.RFC3339), lastQuality,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert memory state: %w", err)
	}
	return nil
}

// CountMastery counts the learner's mastered cards in a target. Only deck
// targets have a known card population; for other kinds ok is false.
func (r *CardRepo) CountMastery(ctx context.Context, learnerID string, t event.Target, p progress.MasteryPolicy) (mastered, total int, ok bool, err error) {
	if t.Kind != event.TargetDeck {
		return 0, 0, false, nil
	}

	err = r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM cards WHERE deck_id = $1 AND is_active = 1`, t.ID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("count cards: %w", err)
	}

	query := `
		SELECT COUNT(*)
		FROM memory_states m
		JOIN cards c ON c.id = m.card_id
		WHERE m.learner_id = $1 AND c.deck_id = $2 AND c.is_active = 1 AND m.repetitions >= $3`
	arg := any(p.MinRepetitions)
	if p.MinEaseFactor > 0 {
		query = `
		SELECT COUNT(*)
		FROM memory_states m
		JOIN cards c ON c.id = m.card_id
		WHERE m.learner_id = $1 AND c.deck_id = $2 AND c.is_active = 1 AND m.ease_factor >= $3`
		arg = p.MinEaseFactor
	}
	err = r.db.GetContext(ctx, &mastered, query, learnerID, t.ID, arg)
	if err != nil {
		return 0, 0, false, fmt.Errorf("count mastered: %w", err)
	}

	return mastered, total, true, nil
}
