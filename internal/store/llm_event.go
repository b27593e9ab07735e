package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// Events implements EventRepo and the read side of the event log, backed by
// the ent SQL driver and the global sequence counter.
type Events struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

var _ EventRepo = (*Events)(nil)

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates LLM events by a single key (purpose or model).
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

var llmEventColumns = []string{
	"id", "sequence", "timestamp", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

func (e *Events) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := e.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	success := 0
	if data.Success {
		success = 1
	}
	ins := entsql.Dialect(dialect.SQLite).Insert(tableLLMEvents).
		Columns(llmEventColumns[1:]...).
		Values(seqNum, toMillis(time.Now()), data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, success,
			data.ErrorMessage, data.RequestBody, data.ResponseBody)
	if _, err := execQuery(ctx, e.drv, ins); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

// QueryLLMEvents returns LLM events newest first.
func (e *Events) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(llmEventColumns...).
		From(entsql.Table(tableLLMEvents)).
		OrderBy(entsql.Desc("sequence"))
	applyQueryOpts(sel, opts)
	return e.scanLLMEvents(ctx, sel)
}

// GetLLMEvent returns one event by id, or nil if it does not exist.
func (e *Events) GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(llmEventColumns...).
		From(entsql.Table(tableLLMEvents)).
		Where(entsql.EQ("id", id))
	events, err := e.scanLLMEvents(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// LLMUsageByPurpose aggregates token usage per request purpose.
func (e *Events) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return e.llmUsage(ctx, "purpose", func(u *LLMUsage, key string) { u.Purpose = key })
}

// LLMUsageByModel aggregates token usage per model.
func (e *Events) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return e.llmUsage(ctx, "model", func(u *LLMUsage, key string) { u.Model = key })
}

func (e *Events) llmUsage(ctx context.Context, key string, setKey func(*LLMUsage, string)) ([]LLMUsage, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(
			key,
			entsql.As(entsql.Count("*"), "calls"),
			entsql.As(entsql.Sum("input_tokens"), "input_tokens"),
			entsql.As(entsql.Sum("output_tokens"), "output_tokens"),
			entsql.As(entsql.Avg("latency_ms"), "avg_latency"),
		).
		From(entsql.Table(tableLLMEvents)).
		GroupBy(key).
		OrderBy(key).
		Query()

	var rows entsql.Rows
	if err := e.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query LLM usage by %s: %w", key, err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var (
			u   LLMUsage
			k   string
			avg float64
		)
		if err := rows.Scan(&k, &u.Calls, &u.InputTokens, &u.OutputTokens, &avg); err != nil {
			return nil, fmt.Errorf("scan LLM usage: %w", err)
		}
		setKey(&u, k)
		u.AvgLatencyMs = int64(avg)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (e *Events) scanLLMEvents(ctx context.Context, sel *entsql.Selector) ([]LLMEvent, error) {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := e.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMEvent
	for rows.Next() {
		var (
			ev      LLMEvent
			ts      int64
			success int
		)
		if err := rows.Scan(&ev.ID, &ev.Sequence, &ts, &ev.Provider, &ev.Model, &ev.Purpose,
			&ev.InputTokens, &ev.OutputTokens, &ev.LatencyMs, &success,
			&ev.ErrorMessage, &ev.RequestBody, &ev.ResponseBody); err != nil {
			return nil, fmt.Errorf("scan LLM event: %w", err)
		}
		ev.Timestamp = fromMillis(ts)
		ev.Success = success != 0
		out = append(out, ev)
	}
	return out, rows.Err()
}

// applyQueryOpts adds sequence, time and limit filters to sel.
func applyQueryOpts(sel *entsql.Selector, opts QueryOpts) {
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("timestamp", toMillis(opts.From)))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE("timestamp", toMillis(opts.To)))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
}
