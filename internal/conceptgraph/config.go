package conceptgraph

import (
	"fmt"
	"os"
	"strconv"

	"github.com/abhisek/conceptree/internal/mastery"
)

// Config holds engine configuration.
type Config struct {
	// MasteryThreshold is the score that masters a concept. It is fixed;
	// Validate rejects any other value.
	MasteryThreshold int

	// MaxCASRetries bounds how often a learner update is retried after a
	// concurrent write won the version check.
	MaxCASRetries int

	// RulesFile optionally overrides the built-in interpolation rules.
	RulesFile string

	// ScoreSeed makes heuristic scoring deterministic when set.
	ScoreSeed *uint64

	// MinExplanationLength is the shortest explanation that is scored.
	MinExplanationLength int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MasteryThreshold:     mastery.PassThreshold,
		MaxCASRetries:        mastery.DefaultMaxRetries,
		MinExplanationLength: 10,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset or unparseable values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if n, err := strconv.Atoi(os.Getenv("CONCEPTREE_MAX_CAS_RETRIES")); err == nil {
		cfg.MaxCASRetries = n
	}
	if p := os.Getenv("CONCEPTREE_RULES_FILE"); p != "" {
		cfg.RulesFile = p
	}
	if s, err := strconv.ParseUint(os.Getenv("CONCEPTREE_SCORE_SEED"), 10, 64); err == nil {
		cfg.ScoreSeed = &s
	}
	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MasteryThreshold != mastery.PassThreshold {
		return fmt.Errorf("mastery threshold is fixed at %d, got %d", mastery.PassThreshold, c.MasteryThreshold)
	}
	if c.MaxCASRetries < 0 {
		return fmt.Errorf("CONCEPTREE_MAX_CAS_RETRIES must not be negative, got %d", c.MaxCASRetries)
	}
	if c.MinExplanationLength < 1 {
		return fmt.Errorf("minimum explanation length must be positive, got %d", c.MinExplanationLength)
	}
	if c.RulesFile != "" {
		if _, err := os.Stat(c.RulesFile); err != nil {
			return fmt.Errorf("CONCEPTREE_RULES_FILE: %w", err)
		}
	}
	return nil
}
