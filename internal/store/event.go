package store

import (
	"context"
	"fmt"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const tableSequence = "global_sequence"

// sequenceCounter hands out one increasing number shared by attempt,
// mastery and LLM events, so a score can be ordered against the status
// changes it caused. It reads and bumps a single row; callers must not
// hold a transaction on the connection.
type sequenceCounter struct {
	mu  sync.Mutex
	drv *entsql.Driver
}

func newSequenceCounter(ctx context.Context, drv *entsql.Driver) (*sequenceCounter, error) {
	seed := entsql.Dialect(dialect.SQLite).Insert(tableSequence).
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(entsql.DoNothing())
	if _, err := execQuery(ctx, drv, seed); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequenceCounter{drv: drv}, nil
}

// Next returns the current value and advances the counter.
func (c *sequenceCounter) Next(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rows entsql.Rows
	err := c.drv.Query(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
		[]any{}, &rows)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("next sequence: %w", err)
		}
		return 0, fmt.Errorf("next sequence: counter row missing")
	}
	var seq int64
	if err := rows.Scan(&seq); err != nil {
		return 0, fmt.Errorf("scan sequence: %w", err)
	}
	return seq, nil
}
