package srs

import (
	"testing"
	"time"
)

func TestNewState_Defaults(t *testing.T) {
	s := NewState()
	if s.Repetitions != 0 {
		t.Errorf("Repetitions = %d, want 0", s.Repetitions)
	}
	if s.EaseFactor != DefaultEaseFactor {
		t.Errorf("EaseFactor = %v, want %v", s.EaseFactor, DefaultEaseFactor)
	}
	if s.Interval != 0 {
		t.Errorf("Interval = %d, want 0", s.Interval)
	}
	if s.LastQuality != nil {
		t.Errorf("LastQuality = %v, want nil", *s.LastQuality)
	}
	if !s.IsNew() {
		t.Error("expected new state to be new")
	}
}

func TestIsDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := MemoryState{NextReview: now.AddDate(0, 0, -1)}
	if !s.IsDue(now) {
		t.Error("past next review should be due")
	}

	s.NextReview = now
	if !s.IsDue(now) {
		t.Error("exactly at next review should be due")
	}

	s.NextReview = now.AddDate(0, 0, 1)
	if s.IsDue(now) {
		t.Error("future next review should not be due")
	}
}

func TestOverdueDays(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := MemoryState{NextReview: now.Add(-48 * time.Hour)}
	if got := s.OverdueDays(now); got != 2.0 {
		t.Errorf("OverdueDays = %v, want 2.0", got)
	}

	s.NextReview = now.Add(24 * time.Hour)
	if got := s.OverdueDays(now); got != 0 {
		t.Errorf("OverdueDays = %v, want 0 when not due", got)
	}
}
