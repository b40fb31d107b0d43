package progress

import "time"

// NextStreak computes the day streak after a session completed at the
// given time. Multiple sessions on the same calendar day count once; a
// session on the very next day extends the streak; any larger gap (or no
// prior activity) starts over at 1. Days are compared in UTC.
func NextStreak(current int, lastActivity, completedAt time.Time) int {
	if lastActivity.IsZero() {
		return 1
	}

	last := dayOf(lastActivity)
	today := dayOf(completedAt)

	switch {
	case today.Equal(last):
		if current < 1 {
			return 1
		}
		return current
	case today.Equal(last.AddDate(0, 0, 1)):
		return current + 1
	default:
		return 1
	}
}

// dayOf truncates a timestamp to its UTC calendar day.
func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
