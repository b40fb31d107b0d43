package progress

import (
	"testing"
	"time"
)

func day(d int, hour int) time.Time {
	return time.Date(2025, 6, d, hour, 0, 0, 0, time.UTC)
}

func TestNextStreak(t *testing.T) {
	tests := []struct {
		name         string
		current      int
		lastActivity time.Time
		completedAt  time.Time
		want         int
	}{
		{"first ever session", 0, time.Time{}, day(10, 9), 1},
		{"same day does not double count", 3, day(10, 9), day(10, 21), 3},
		{"next day extends", 3, day(10, 9), day(11, 7), 4},
		{"two day gap resets", 5, day(10, 9), day(12, 9), 1},
		{"long gap resets", 12, day(1, 9), day(28, 9), 1},
		{"same day repairs zero streak", 0, day(10, 9), day(10, 10), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextStreak(tt.current, tt.lastActivity, tt.completedAt)
			if got != tt.want {
				t.Errorf("NextStreak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextStreak_MidnightBoundary(t *testing.T) {
	// 23:59 one day to 00:01 the next is still consecutive.
	last := time.Date(2025, 6, 10, 23, 59, 0, 0, time.UTC)
	next := time.Date(2025, 6, 11, 0, 1, 0, 0, time.UTC)
	if got := NextStreak(2, last, next); got != 3 {
		t.Errorf("NextStreak = %d, want 3", got)
	}
}
