package store

import (
	"context"
	"fmt"
)

// Table names.
const (
	tableConcepts      = "concepts"
	tablePrerequisites = "concept_prerequisites"
	tableLearners      = "learners"
	tableLearnerStates = "learner_concept_states"
	tableAttemptEvents = "attempt_events"
	tableMasteryEvents = "mastery_events"
	tableLLMEvents     = "llm_request_events"
)

// schema is applied in order on every Open. Statements must be idempotent.
// Timestamps are stored as unix milliseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS concepts (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		difficulty INTEGER NOT NULL,
		fundamental INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS concept_prerequisites (
		concept_id TEXT NOT NULL,
		prerequisite_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (concept_id, prerequisite_id)
	)`,
	`CREATE TABLE IF NOT EXISTS learners (
		learner_id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS learner_concept_states (
		learner_id TEXT NOT NULL,
		concept_id TEXT NOT NULL,
		status TEXT NOT NULL,
		best_score INTEGER,
		attempts INTEGER NOT NULL DEFAULT 0,
		mastered_at INTEGER,
		PRIMARY KEY (learner_id, concept_id)
	)`,
	`CREATE TABLE IF NOT EXISTS attempt_events (
		sequence INTEGER PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		attempt_id TEXT NOT NULL,
		learner_id TEXT NOT NULL,
		concept_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		unlocked TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS attempt_events_learner ON attempt_events (learner_id, concept_id)`,
	`CREATE TABLE IF NOT EXISTS mastery_events (
		sequence INTEGER PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		learner_id TEXT NOT NULL,
		concept_id TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		trigger_kind TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL DEFAULT '',
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
