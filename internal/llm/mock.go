package llm

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
)

// MockResponse is a canned reply. When Schema is set the reply is only
// served to requests using that schema name; otherwise it matches any
// request.
type MockResponse struct {
	Schema  string
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockJSON builds a reply whose content is v encoded as JSON.
func MockJSON(v any) MockResponse {
	b, err := json.Marshal(v)
	if err != nil {
		return MockResponse{Err: err}
	}
	return MockResponse{Content: b}
}

// MockProvider serves canned replies in queue order and records every
// request. It is safe for concurrent use.
type MockProvider struct {
	mu      sync.Mutex
	pending []MockResponse
	Calls   []Request
}

// NewMockProvider creates a MockProvider queued with responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{pending: responses}
}

// Generate pops the first queued reply that matches the request schema.
// With nothing left to serve it reports the provider as unavailable.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	name := schemaName(req.Schema)
	for i, r := range m.pending {
		if r.Schema != "" && r.Schema != name {
			continue
		}
		m.pending = slices.Delete(m.pending, i, i+1)
		if r.Err != nil {
			return nil, r.Err
		}
		usage := r.Usage
		if usage.TotalTokens == 0 {
			usage.TotalTokens = usage.InputTokens + usage.OutputTokens
		}
		return &Response{Content: r.Content, Usage: usage, Model: "mock", StopReason: StopEnd}, nil
	}
	return nil, &UnavailableError{Provider: "mock"}
}

func (m *MockProvider) ModelID() string { return "mock" }

// AddResponse queues another reply.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, resp)
}

// Pending returns how many queued replies have not been served.
func (m *MockProvider) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
