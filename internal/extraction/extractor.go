// Package extraction turns free-form study material into concept drafts and
// prerequisite relationships.
package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/llm"
	"github.com/abhisek/conceptree/internal/logger"
)

// ErrEmptyInput is returned when there is no text to extract from.
var ErrEmptyInput = errors.New("no text to extract concepts from")

// Extractor produces an extraction result from input text. category is an
// optional hint.
type Extractor interface {
	Extract(ctx context.Context, text, category string) (*catalog.ExtractionResult, error)
}

// Config holds configuration for the LLM extractor.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   4096,
		Temperature: 0.2,
	}
}

// LLMExtractor asks a model to structure the input text.
type LLMExtractor struct {
	provider llm.Provider
	cfg      Config
	log      *logger.Logger
}

// NewLLMExtractor creates an LLM-backed extractor.
func NewLLMExtractor(provider llm.Provider, cfg Config, log *logger.Logger) *LLMExtractor {
	return &LLMExtractor{provider: provider, cfg: cfg, log: logger.OrNop(log)}
}

func (e *LLMExtractor) Extract(ctx context.Context, text, category string) (*catalog.ExtractionResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeExtraction)

	prompt, err := buildExtractionMessage(text, strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("build extraction prompt: %w", err)
	}

	// No schema: models routinely return near-miss JSON, and one bad concept
	// must not discard the batch. ParseResponse does the recovery.
	resp, err := e.provider.Generate(ctx, llm.Request{
		System:      extractionSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM extraction failed: %w", err)
	}

	res, err := ParseResponse(string(resp.Content))
	if err != nil {
		return nil, err
	}
	for _, s := range res.Skipped {
		e.log.Warn("skipped malformed extraction entry", "entry", s)
	}
	e.log.Info("concepts extracted",
		"concepts", len(res.Concepts),
		"relationships", len(res.Relationships),
		"skipped", len(res.Skipped),
	)
	return res, nil
}

// DocumentExtractor treats the input text itself as a YAML or JSON
// extraction document. Used for offline ingest.
type DocumentExtractor struct{}

func (DocumentExtractor) Extract(_ context.Context, text, category string) (*catalog.ExtractionResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	res, err := ParseDocument([]byte(text))
	if err != nil {
		return nil, err
	}
	if res.Category == "" {
		res.Category = strings.TrimSpace(category)
	}
	return res, nil
}

const extractionSystemPrompt = `You are an expert educational curriculum designer. You parse text about topics, tables of contents or concepts someone wants to learn, and extract structured information about each concept and the prerequisite relationships between them.

Respond with ONLY a valid JSON object, no markdown and no code blocks.`

var extractionUserTemplate = template.Must(template.New("extraction").Parse(`{{if .Category}}The concepts are primarily in category: {{.Category}}

{{end}}Input text:
{{.Text}}

Respond with a JSON object of this shape:

{
  "category": "inferred or provided category name",
  "concepts": [
    {
      "title": "concept name",
      "description": "1-2 sentence description",
      "concept_id": "snake_case_id",
      "difficulty_level": 1,
      "is_fundamental": true
    }
  ],
  "relationships": [
    {
      "concept": "concept title",
      "prerequisite": "prerequisite title",
      "reason": "brief reason why the prerequisite is needed"
    }
  ],
  "summary": "brief summary of the skill tree",
  "learning_path": "suggested order to learn these concepts"
}

Rules:
1. Infer difficulty levels from 1 (foundational) to 10 (advanced specialist).
2. Mark foundational concepts with "is_fundamental": true.
3. Extract ALL prerequisite relationships from the text.
4. Generate sanitized snake_case concept ids.`))

func buildExtractionMessage(text, category string) (string, error) {
	var buf bytes.Buffer
	err := extractionUserTemplate.Execute(&buf, struct{ Text, Category string }{text, category})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
