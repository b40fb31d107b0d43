// Package config loads deployment configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every deployment-level setting. All fields have working
// defaults; an empty environment yields a local single-file deployment
// with no broker and no metrics endpoint.
type Config struct {
	// DBPath overrides the default SQLite location.
	DBPath string `env:"RECALLKIT_DB"`

	// NATSURL enables the NATS event sink when set.
	NATSURL string `env:"RECALLKIT_NATS_URL"`

	// MetricsAddr serves Prometheus metrics when set, e.g. ":9104".
	MetricsAddr string `env:"RECALLKIT_METRICS_ADDR"`

	// RequireNonEmpty makes session creation fail when no cards are eligible.
	RequireNonEmpty bool `env:"RECALLKIT_REQUIRE_NONEMPTY" envDefault:"false"`

	// ScoreCasualModes makes Practice/Cram/Test answers update the
	// spaced repetition schedule.
	ScoreCasualModes bool `env:"RECALLKIT_SCORE_CASUAL_MODES" envDefault:"false"`

	// MasteryMinReps is the repetition count at which a card counts as
	// mastered for completion percentages.
	MasteryMinReps int `env:"RECALLKIT_MASTERY_MIN_REPS" envDefault:"3"`

	// MasteryMinEase switches mastery to an ease-factor threshold when
	// set above zero.
	MasteryMinEase float64 `env:"RECALLKIT_MASTERY_MIN_EASE" envDefault:"0"`

	// SweepTTL is how long an active session may idle before reclamation.
	SweepTTL time.Duration `env:"RECALLKIT_SWEEP_TTL" envDefault:"24h"`

	// SweepInterval is how often the background sweep runs.
	SweepInterval time.Duration `env:"RECALLKIT_SWEEP_INTERVAL" envDefault:"1h"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// Missing .env is fine; explicit env vars win either way.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
