package session

import "errors"

var (
	// ErrNotFound is returned when a session ID is unknown.
	ErrNotFound = errors.New("session not found")

	// ErrNotActive is returned when an operation requires an active session.
	ErrNotActive = errors.New("session is not active")

	// ErrAlreadyCompleted is returned by a second Complete call.
	ErrAlreadyCompleted = errors.New("session already completed")

	// ErrOutOfOrder is returned when the answered card is not the card at
	// the current position in the scheduled sequence.
	ErrOutOfOrder = errors.New("card is not the current scheduled card")

	// ErrQueueExhausted is returned when an answer arrives after every
	// scheduled card has been answered.
	ErrQueueExhausted = errors.New("all scheduled cards already answered")

	// ErrEmptyPool is returned from Start when the policy requires a
	// non-empty session and no cards were eligible.
	ErrEmptyPool = errors.New("no cards eligible for session")

	// ErrSessionInProgress is returned when the learner already has an
	// active session for the same deck.
	ErrSessionInProgress = errors.New("active session already exists for this deck")
)
