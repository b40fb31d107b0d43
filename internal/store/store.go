// Package store persists cards, memory states, sessions, and progress
// snapshots in SQLite. It implements the repository ports consumed by the
// session manager and the progress aggregator.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the database handle and provides access to repositories.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at dsn, applies recommended
// pragmas, and bootstraps the schema.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying handle for raw queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Cards returns the card repository backed by this store.
func (s *Store) Cards() *CardRepo {
	return &CardRepo{db: s.db}
}

// Sessions returns the session store backed by this store.
func (s *Store) Sessions() *SessionRepo {
	return &SessionRepo{db: s.db}
}

// Progress returns the progress repository backed by this store.
func (s *Store) Progress() *ProgressRepo {
	return &ProgressRepo{db: s.db}
}

// applyPragmas configures SQLite for single-writer use.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cards (
		id          TEXT PRIMARY KEY,
		deck_id     TEXT NOT NULL,
		question    TEXT NOT NULL DEFAULT '',
		answer      TEXT NOT NULL DEFAULT '',
		hint        TEXT NOT NULL DEFAULT '',
		order_index INTEGER NOT NULL DEFAULT 0,
		is_active   INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck_id, order_index);

	CREATE TABLE IF NOT EXISTS memory_states (
		learner_id   TEXT NOT NULL,
		card_id      TEXT NOT NULL,
		repetitions  INTEGER NOT NULL DEFAULT 0,
		ease_factor  REAL NOT NULL DEFAULT 2.5,
		interval     INTEGER NOT NULL DEFAULT 0,
		next_review  TEXT NOT NULL DEFAULT '',
		last_quality INTEGER,
		updated_at   TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (learner_id, card_id)
	);
	CREATE INDEX IF NOT EXISTS idx_memory_due ON memory_states(learner_id, next_review);

	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		learner_id TEXT NOT NULL,
		deck_id    TEXT NOT NULL,
		status     TEXT NOT NULL,
		data       TEXT NOT NULL,
		started_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_learner ON sessions(learner_id, deck_id, status);
	CREATE INDEX IF NOT EXISTS idx_sessions_stale ON sessions(status, updated_at);

	CREATE TABLE IF NOT EXISTS progress_snapshots (
		learner_id         TEXT NOT NULL,
		target_kind        TEXT NOT NULL,
		target_id          TEXT NOT NULL,
		completion_percent REAL NOT NULL DEFAULT 0,
		accuracy_rate      REAL NOT NULL DEFAULT 0,
		time_spent_seconds INTEGER NOT NULL DEFAULT 0,
		cards_mastered     INTEGER NOT NULL DEFAULT 0,
		total_sessions     INTEGER NOT NULL DEFAULT 0,
		current_streak     INTEGER NOT NULL DEFAULT 0,
		best_streak        INTEGER NOT NULL DEFAULT 0,
		last_activity      TEXT NOT NULL DEFAULT '',
		updated_at         TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (learner_id, target_kind, target_id)
	);

	CREATE TABLE IF NOT EXISTS processed_sessions (
		session_id   TEXT PRIMARY KEY,
		processed_at TEXT NOT NULL
	);`

	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. RECALLKIT_DB environment variable
// 2. $XDG_DATA_HOME/recallkit/recallkit.db
// 3. ~/.local/share/recallkit/recallkit.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("RECALLKIT_DB"); p != "" {
		return p, ensureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "recallkit", "recallkit.db")
	return p, ensureDir(p)
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
