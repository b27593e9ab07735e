package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
)

func anthropicServer(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key", Model: "claude-haiku"}, option.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}
	return p
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func anthropicError(w http.ResponseWriter, status int, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"type":  "error",
		"error": map[string]any{"type": kind, "message": kind},
	})
}

func TestAnthropicProvider_Generate(t *testing.T) {
	var got map[string]any
	p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicMessage(`{"concepts":[{"title":"Limits"}],"category":"Calculus"}`, "end_turn"))
	})

	resp, err := p.Generate(context.Background(), Request{
		System:   "You extract concepts from study material.",
		Messages: []Message{{Role: RoleUser, Content: "Extract concepts: limits and derivatives."}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.InputTokens != 50 || resp.Usage.TotalTokens != 80 {
		t.Fatalf("usage = %+v", resp.Usage)
	}
	if resp.StopReason != StopEnd {
		t.Fatalf("stop reason = %q", resp.StopReason)
	}
	if got["model"] != "claude-haiku-4-5-20251001" {
		t.Fatalf("request model = %v", got["model"])
	}
	if got["max_tokens"] != float64(anthropicDefaultMaxTokens) {
		t.Fatalf("max_tokens = %v, want default", got["max_tokens"])
	}
}

func TestAnthropicProvider_MaxTokens(t *testing.T) {
	p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicMessage(`{"concepts":[`, "max_tokens"))
	})

	_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}, MaxTokens: 5})
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncation, got %v", err)
	}
}

func TestAnthropicProvider_RateLimit(t *testing.T) {
	p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		anthropicError(w, http.StatusTooManyRequests, "rate_limit_error")
	})

	_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "test"}}, MaxTokens: 100})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %T (%v)", err, err)
	}
	if rl.RetryAfter != 7*time.Second {
		t.Fatalf("RetryAfter = %s", rl.RetryAfter)
	}
}

func TestAnthropicProvider_ErrorClasses(t *testing.T) {
	tests := []struct {
		status int
		kind   string
		want   error
	}{
		{http.StatusInternalServerError, "api_error", ErrUnavailable},
		{http.StatusUnauthorized, "authentication_error", ErrRejected},
		{http.StatusBadRequest, "invalid_request_error", ErrRejected},
	}
	for _, tt := range tests {
		p := anthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
			anthropicError(w, tt.status, tt.kind)
		})
		_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "test"}}, MaxTokens: 100})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: got %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestNewAnthropicProvider_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicProvider(AnthropicConfig{}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestAnthropicModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"claude-sonnet", "claude-sonnet-4-5-20250929"},
		{"claude-haiku", "claude-haiku-4-5-20251001"},
		{"claude-opus-4-5-20251101", "claude-opus-4-5-20251101"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, anthropicModels); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
