package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/abhisek/conceptree/internal/logger"
	"github.com/abhisek/conceptree/internal/metrics"
	"github.com/abhisek/conceptree/internal/store"
)

// LoggingProvider records every attempt as an LLM request event, a debug
// log line and a latency sample. Recording failures never fail the call.
type LoggingProvider struct {
	inner    Provider
	provider string
	events   store.EventRepo
	log      *logger.Logger
}

// WithLogging wraps p. provider names the backend in stored events; events
// may be nil.
func WithLogging(p Provider, provider string, events store.EventRepo, log *logger.Logger) Provider {
	return &LoggingProvider{inner: p, provider: provider, events: events, log: logger.OrNop(log)}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	purpose := string(PurposeFrom(ctx))
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	latency := time.Since(start)

	ev := store.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if resp != nil {
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
		if resp.Model != "" {
			ev.Model = resp.Model
		}
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	metrics.ObserveLLMRequest(purpose, ev.Success, latency, ev.InputTokens, ev.OutputTokens)
	l.log.Debug("llm request",
		"provider", ev.Provider,
		"model", ev.Model,
		"purpose", purpose,
		"latency_ms", ev.LatencyMs,
		"input_tokens", ev.InputTokens,
		"output_tokens", ev.OutputTokens,
		"success", ev.Success,
	)

	if l.events != nil {
		if recErr := l.events.AppendLLMRequest(ctx, ev); recErr != nil {
			l.log.Warn("record llm request event", "purpose", purpose, "error", recErr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// transcript renders req the way `conceptree llm view` shows it.
func transcript(req Request) string {
	var b strings.Builder
	section := func(label, body string) {
		b.WriteString("[" + label + "]\n")
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	if req.System != "" {
		section("system", req.System)
	}
	for _, m := range req.Messages {
		section(string(m.Role), m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			section("schema: "+req.Schema.Name, string(def))
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
