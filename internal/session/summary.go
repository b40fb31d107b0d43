package session

import "time"

// Summary holds the analytics reported when a session completes.
type Summary struct {
	SessionID           string
	Mode                string
	Duration            time.Duration
	CardsStudied        int
	CorrectCount        int
	IncorrectCount      int
	AccuracyRate        float64
	AverageResponseTime float64
	CardsPerMinute      float64
	BreakCount          int
}

// BuildSummary creates a Summary from a completed session.
func BuildSummary(s *StudySession) *Summary {
	var duration time.Duration
	if s.CompletedAt != nil {
		duration = s.CompletedAt.Sub(s.StartedAt)
	}
	return &Summary{
		SessionID:           s.ID,
		Mode:                string(s.Mode),
		Duration:            duration,
		CardsStudied:        s.CardsStudied,
		CorrectCount:        s.CorrectCount,
		IncorrectCount:      s.IncorrectCount,
		AccuracyRate:        s.AccuracyRate,
		AverageResponseTime: s.AverageResponseTime,
		CardsPerMinute:      s.CardsPerMinute,
		BreakCount:          s.BreakCount,
	}
}
