// Package clock provides the time source injected into the scheduling
// engine and card selector so their outputs are reproducible.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Used in tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// At returns a Fixed clock pinned to t.
func At(t time.Time) Fixed { return Fixed{T: t} }
