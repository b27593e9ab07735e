// Package llm talks to hosted language models for concept extraction and
// explanation grading. Providers are wrapped by timeout, retry and logging
// decorators; see NewProvider.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Provider generates one completion per call.
type Provider interface {
	// Generate sends req and returns the model output. When req.Schema is
	// set the provider asks for structured output and Content is validated
	// JSON.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model the provider is configured for.
	ModelID() string
}

// Request is a single-turn or multi-turn prompt.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, selects native structured output. When nil,
	// Content is the raw text of the reply.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema for structured output.
type Schema struct {
	// Name is kebab-case, e.g. "explanation-verification". Providers use it
	// as the schema or tool name.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model output.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string // model that actually served the request
	StopReason string // StopEnd or StopMaxTokens
}

// Normalized stop reasons.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// Usage is the token accounting for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// finish applies the checks shared by every provider: output cut off at
// MaxTokens is an error, empty output is invalid, and schema-bound output
// must validate.
func finish(req Request, resp *Response) (*Response, error) {
	if resp.StopReason == StopMaxTokens {
		return nil, &TruncatedError{Content: resp.Content}
	}
	if len(resp.Content) == 0 {
		return nil, &InvalidResponseError{Schema: schemaName(req.Schema), Err: errors.New("empty response")}
	}
	if req.Schema != nil {
		if err := validateResponse(req.Schema, resp.Content); err != nil {
			return nil, err
		}
	}
	if resp.Usage.TotalTokens == 0 {
		resp.Usage.TotalTokens = resp.Usage.InputTokens + resp.Usage.OutputTokens
	}
	return resp, nil
}

func schemaName(s *Schema) string {
	if s == nil {
		return ""
	}
	return s.Name
}

// resolveModel maps a friendly model name to a provider model id. Unknown
// names pass through.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
