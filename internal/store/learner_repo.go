package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// learnerRepo implements LearnerRepo with a version column checked on every
// write. The version bump and the state rewrite share one transaction.
type learnerRepo struct {
	drv *entsql.Driver
}

func (r *learnerRepo) Load(ctx context.Context, learnerID string) (*LearnerRecord, error) {
	b := entsql.Dialect(dialect.SQLite)
	rec := NewLearnerRecord(learnerID)

	query, args := b.Select("version", "updated_at").
		From(entsql.Table(tableLearners)).
		Where(entsql.EQ("learner_id", learnerID)).
		Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query learner: %w", err)
	}
	found := rows.Next()
	if found {
		var updated int64
		if err := rows.Scan(&rec.Version, &updated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan learner: %w", err)
		}
		rec.UpdatedAt = fromMillis(updated)
	}
	rows.Close()
	if !found {
		return rec, nil
	}

	query, args = b.Select("concept_id", "status", "best_score", "attempts", "mastered_at").
		From(entsql.Table(tableLearnerStates)).
		Where(entsql.EQ("learner_id", learnerID)).
		Query()
	var stateRows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &stateRows); err != nil {
		return nil, fmt.Errorf("query learner states: %w", err)
	}
	defer stateRows.Close()

	for stateRows.Next() {
		var (
			st         ConceptStateData
			best       sql.NullInt64
			masteredAt sql.NullInt64
		)
		if err := stateRows.Scan(&st.ConceptID, &st.Status, &best, &st.Attempts, &masteredAt); err != nil {
			return nil, fmt.Errorf("scan learner state: %w", err)
		}
		if best.Valid {
			v := int(best.Int64)
			st.BestScore = &v
		}
		if masteredAt.Valid {
			t := fromMillis(masteredAt.Int64)
			st.MasteredAt = &t
		}
		rec.States[st.ConceptID] = &st
	}
	if err := stateRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate learner states: %w", err)
	}
	return rec, nil
}

func (r *learnerRepo) Save(ctx context.Context, rec *LearnerRecord) error {
	b := entsql.Dialect(dialect.SQLite)
	now := time.Now().UTC()
	next := rec.Version + 1

	err := runTx(ctx, r.drv, func(tx dialect.Tx) error {
		var res sql.Result
		var err error
		if rec.Version == 0 {
			res, err = execQuery(ctx, tx, b.Insert(tableLearners).
				Columns("learner_id", "version", "updated_at").
				Values(rec.LearnerID, next, toMillis(now)).
				OnConflict(entsql.DoNothing()))
		} else {
			res, err = execQuery(ctx, tx, b.Update(tableLearners).
				Set("version", next).
				Set("updated_at", toMillis(now)).
				Where(entsql.And(
					entsql.EQ("learner_id", rec.LearnerID),
					entsql.EQ("version", rec.Version),
				)))
		}
		if err != nil {
			return fmt.Errorf("bump learner version: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("bump learner version: %w", err)
		}
		if n == 0 {
			return ErrVersionConflict
		}

		if _, err := execQuery(ctx, tx, b.Delete(tableLearnerStates).
			Where(entsql.EQ("learner_id", rec.LearnerID))); err != nil {
			return fmt.Errorf("clear learner states: %w", err)
		}
		for _, st := range rec.States {
			var best, masteredAt any
			if st.BestScore != nil {
				best = *st.BestScore
			}
			if st.MasteredAt != nil {
				masteredAt = toMillis(*st.MasteredAt)
			}
			if _, err := execQuery(ctx, tx, b.Insert(tableLearnerStates).
				Columns("learner_id", "concept_id", "status", "best_score", "attempts", "mastered_at").
				Values(rec.LearnerID, st.ConceptID, st.Status, best, st.Attempts, masteredAt)); err != nil {
				return fmt.Errorf("insert learner state %q: %w", st.ConceptID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	rec.Version = next
	rec.UpdatedAt = now
	return nil
}

func (r *learnerRepo) Learners(ctx context.Context) ([]string, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("learner_id").
		From(entsql.Table(tableLearners)).
		OrderBy("learner_id").
		Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query learners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan learner: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
