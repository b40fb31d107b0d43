// Package metrics exposes Prometheus instrumentation for session and
// sweep activity.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for recallkit.
type Metrics struct {
	SessionsStarted   *prometheus.CounterVec
	SessionsCompleted *prometheus.CounterVec
	SessionsReclaimed prometheus.Counter
	AnswersRecorded   *prometheus.CounterVec
	ResponseTime      prometheus.Histogram
	EventsPublished   prometheus.Counter
}

var (
	once   sync.Once
	shared *Metrics
)

// New creates and registers all collectors on the default registry.
// Repeated calls return the same instance.
func New() *Metrics {
	once.Do(func() {
		shared = &Metrics{
			SessionsStarted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "recallkit_sessions_started_total",
					Help: "Study sessions started, by mode",
				},
				[]string{"mode"},
			),
			SessionsCompleted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "recallkit_sessions_completed_total",
					Help: "Study sessions completed, by mode",
				},
				[]string{"mode"},
			),
			SessionsReclaimed: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "recallkit_sessions_reclaimed_total",
					Help: "Stale sessions marked abandoned by the sweep",
				},
			),
			AnswersRecorded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "recallkit_answers_total",
					Help: "Answers recorded, by mode and correctness",
				},
				[]string{"mode", "correct"},
			),
			ResponseTime: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "recallkit_answer_response_seconds",
					Help:    "Per-card response time in seconds",
					Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
				},
			),
			EventsPublished: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "recallkit_events_published_total",
					Help: "Session completion events published",
				},
			),
		}
	})
	return shared
}
