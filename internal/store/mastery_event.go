package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// AttemptEvent is a stored scoring attempt.
type AttemptEvent struct {
	Sequence  int64
	Timestamp time.Time
	AttemptEventData
}

// MasteryEvent is a stored status transition.
type MasteryEvent struct {
	Sequence  int64
	Timestamp time.Time
	MasteryEventData
}

func (e *Events) AppendAttemptEvent(ctx context.Context, data AttemptEventData) error {
	seqNum, err := e.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	unlocked := data.Unlocked
	if unlocked == nil {
		unlocked = []string{}
	}
	unlockedJSON, err := json.Marshal(unlocked)
	if err != nil {
		return fmt.Errorf("marshal unlocked: %w", err)
	}

	ins := entsql.Dialect(dialect.SQLite).Insert(tableAttemptEvents).
		Columns("sequence", "timestamp", "attempt_id", "learner_id", "concept_id", "score", "outcome", "from_status", "to_status", "unlocked").
		Values(seqNum, toMillis(time.Now()), data.AttemptID, data.LearnerID, data.ConceptID, data.Score, data.Outcome, data.FromStatus, data.ToStatus, string(unlockedJSON))
	if _, err := execQuery(ctx, e.drv, ins); err != nil {
		return fmt.Errorf("save attempt event: %w", err)
	}
	return nil
}

func (e *Events) AppendMasteryEvent(ctx context.Context, data MasteryEventData) error {
	seqNum, err := e.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	ins := entsql.Dialect(dialect.SQLite).Insert(tableMasteryEvents).
		Columns("sequence", "timestamp", "learner_id", "concept_id", "from_status", "to_status", "trigger_kind").
		Values(seqNum, toMillis(time.Now()), data.LearnerID, data.ConceptID, data.FromStatus, data.ToStatus, data.Trigger)
	if _, err := execQuery(ctx, e.drv, ins); err != nil {
		return fmt.Errorf("save mastery event: %w", err)
	}
	return nil
}

// QueryAttempts returns a learner's attempts newest first. An empty
// conceptID matches every concept.
func (e *Events) QueryAttempts(ctx context.Context, learnerID, conceptID string, opts QueryOpts) ([]AttemptEvent, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select("sequence", "timestamp", "attempt_id", "learner_id", "concept_id", "score", "outcome", "from_status", "to_status", "unlocked").
		From(entsql.Table(tableAttemptEvents)).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy(entsql.Desc("sequence"))
	if conceptID != "" {
		sel.Where(entsql.EQ("concept_id", conceptID))
	}
	applyQueryOpts(sel, opts)

	query, args := sel.Query()
	var rows entsql.Rows
	if err := e.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptEvent
	for rows.Next() {
		var (
			ev       AttemptEvent
			ts       int64
			unlocked string
		)
		if err := rows.Scan(&ev.Sequence, &ts, &ev.AttemptID, &ev.LearnerID, &ev.ConceptID, &ev.Score,
			&ev.Outcome, &ev.FromStatus, &ev.ToStatus, &unlocked); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		ev.Timestamp = fromMillis(ts)
		if err := json.Unmarshal([]byte(unlocked), &ev.Unlocked); err != nil {
			return nil, fmt.Errorf("decode unlocked for attempt %s: %w", ev.AttemptID, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// QueryMasteryEvents returns a learner's status transitions oldest first.
func (e *Events) QueryMasteryEvents(ctx context.Context, learnerID string, opts QueryOpts) ([]MasteryEvent, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select("sequence", "timestamp", "learner_id", "concept_id", "from_status", "to_status", "trigger_kind").
		From(entsql.Table(tableMasteryEvents)).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy("sequence")
	applyQueryOpts(sel, opts)

	query, args := sel.Query()
	var rows entsql.Rows
	if err := e.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query mastery events: %w", err)
	}
	defer rows.Close()

	var out []MasteryEvent
	for rows.Next() {
		var (
			ev MasteryEvent
			ts int64
		)
		if err := rows.Scan(&ev.Sequence, &ts, &ev.LearnerID, &ev.ConceptID, &ev.FromStatus, &ev.ToStatus, &ev.Trigger); err != nil {
			return nil, fmt.Errorf("scan mastery event: %w", err)
		}
		ev.Timestamp = fromMillis(ts)
		out = append(out, ev)
	}
	return out, rows.Err()
}
