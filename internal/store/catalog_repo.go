package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/conceptree/internal/catalog"
)

// catalogRepo implements CatalogRepo with the ent SQL builder.
type catalogRepo struct {
	drv *entsql.Driver
}

func (r *catalogRepo) Load(ctx context.Context) ([]catalog.Concept, error) {
	b := entsql.Dialect(dialect.SQLite)

	query, args := b.Select("id", "title", "description", "category", "difficulty", "fundamental", "created_at", "updated_at").
		From(entsql.Table(tableConcepts)).
		OrderBy("position").
		Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query concepts: %w", err)
	}

	var concepts []catalog.Concept
	index := make(map[string]int)
	for rows.Next() {
		var (
			c                catalog.Concept
			fundamental      int
			created, updated int64
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.Difficulty, &fundamental, &created, &updated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		c.Fundamental = fundamental != 0
		c.CreatedAt = fromMillis(created)
		c.UpdatedAt = fromMillis(updated)
		index[c.ID] = len(concepts)
		concepts = append(concepts, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate concepts: %w", err)
	}
	rows.Close()

	query, args = b.Select("concept_id", "prerequisite_id").
		From(entsql.Table(tablePrerequisites)).
		OrderBy("concept_id", "position").
		Query()
	var prereqRows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &prereqRows); err != nil {
		return nil, fmt.Errorf("query prerequisites: %w", err)
	}
	defer prereqRows.Close()
	for prereqRows.Next() {
		var conceptID, prereqID string
		if err := prereqRows.Scan(&conceptID, &prereqID); err != nil {
			return nil, fmt.Errorf("scan prerequisite: %w", err)
		}
		if i, ok := index[conceptID]; ok {
			concepts[i].Prerequisites = append(concepts[i].Prerequisites, prereqID)
		}
	}
	if err := prereqRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prerequisites: %w", err)
	}
	return concepts, nil
}

func (r *catalogRepo) Replace(ctx context.Context, concepts []catalog.Concept) error {
	b := entsql.Dialect(dialect.SQLite)
	return runTx(ctx, r.drv, func(tx dialect.Tx) error {
		if _, err := execQuery(ctx, tx, b.Delete(tablePrerequisites)); err != nil {
			return fmt.Errorf("clear prerequisites: %w", err)
		}
		if _, err := execQuery(ctx, tx, b.Delete(tableConcepts)); err != nil {
			return fmt.Errorf("clear concepts: %w", err)
		}

		for pos, c := range concepts {
			fundamental := 0
			if c.Fundamental {
				fundamental = 1
			}
			ins := b.Insert(tableConcepts).
				Columns("id", "position", "title", "description", "category", "difficulty", "fundamental", "created_at", "updated_at").
				Values(c.ID, pos, c.Title, c.Description, c.Category, c.Difficulty, fundamental, toMillis(c.CreatedAt), toMillis(c.UpdatedAt))
			if _, err := execQuery(ctx, tx, ins); err != nil {
				return fmt.Errorf("insert concept %q: %w", c.ID, err)
			}
			for i, p := range c.Prerequisites {
				ins := b.Insert(tablePrerequisites).
					Columns("concept_id", "prerequisite_id", "position").
					Values(c.ID, p, i)
				if _, err := execQuery(ctx, tx, ins); err != nil {
					return fmt.Errorf("insert prerequisite %q -> %q: %w", c.ID, p, err)
				}
			}
		}
		return nil
	})
}
