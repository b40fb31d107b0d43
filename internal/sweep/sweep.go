// Package sweep reclaims orphaned study sessions. A session with no
// activity for longer than the TTL is marked abandoned; explicit Complete
// remains the only path to a completion event.
package sweep

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/recallkit/internal/clock"
	"github.com/example/recallkit/internal/metrics"
)

// DefaultTTL is how long an active session may sit idle before the sweep
// reclaims it.
const DefaultTTL = 24 * time.Hour

// DefaultInterval is how often the background sweep runs.
const DefaultInterval = time.Hour

// SessionExpirer marks stale active sessions as abandoned.
type SessionExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically expires idle sessions.
type Sweeper struct {
	sessions  SessionExpirer
	clk       clock.Clock
	ttl       time.Duration
	metrics   *metrics.Metrics
	scheduler *gocron.Scheduler
}

// New creates a sweeper. m may be nil to disable metrics.
func New(sessions SessionExpirer, clk clock.Clock, ttl time.Duration, m *metrics.Metrics) *Sweeper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Sweeper{
		sessions:  sessions,
		clk:       clk,
		ttl:       ttl,
		metrics:   m,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// RunOnce expires every session idle longer than the TTL and returns how
// many were reclaimed.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.clk.Now().Add(-s.ttl)
	n, err := s.sessions.ExpireStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 && s.metrics != nil {
		s.metrics.SessionsReclaimed.Add(float64(n))
	}
	return n, nil
}

// Start schedules the sweep at the given interval in the background.
func (s *Sweeper) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	_, err := s.scheduler.Every(interval).Do(func() {
		n, err := s.RunOnce(context.Background())
		if err != nil {
			log.Printf("session sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("session sweep reclaimed %d stale sessions", n)
		}
	})
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop halts the background sweep.
func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}
