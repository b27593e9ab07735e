package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/conceptree/internal/llm"
	"github.com/abhisek/conceptree/internal/logger"
)

// VerificationSchema defines the JSON schema for explanation grading responses.
var VerificationSchema = &llm.Schema{
	Name:        "explanation-verification",
	Description: "Grade of a learner's explanation of a concept",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     100,
				"description": "Overall score from 0 to 100",
			},
			"passed": map[string]any{
				"type":        "boolean",
				"description": "Whether the explanation demonstrates understanding (score >= 70)",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "Short summary of the evaluation",
			},
			"strengths": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"improvements": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []any{"score", "passed", "feedback", "strengths", "improvements"},
		"additionalProperties": false,
	},
}

// LLMVerifierConfig holds configuration for the LLM verifier.
type LLMVerifierConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultLLMVerifierConfig returns sensible defaults.
func DefaultLLMVerifierConfig() LLMVerifierConfig {
	return LLMVerifierConfig{
		MaxTokens:   512,
		Temperature: 0.2,
	}
}

// LLMVerifier grades explanations with a model and falls back to another
// Verifier, usually a Heuristic, when the model is unavailable or its answer
// cannot be used.
type LLMVerifier struct {
	provider llm.Provider
	fallback Verifier
	cfg      LLMVerifierConfig
	log      *logger.Logger
}

// NewLLMVerifier creates an LLM-backed verifier. fallback must not be nil.
func NewLLMVerifier(provider llm.Provider, fallback Verifier, cfg LLMVerifierConfig, log *logger.Logger) *LLMVerifier {
	return &LLMVerifier{provider: provider, fallback: fallback, cfg: cfg, log: logger.OrNop(log)}
}

type verificationOutput struct {
	Score        int      `json:"score"`
	Passed       bool     `json:"passed"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

func (v *LLMVerifier) Verify(ctx context.Context, sub Submission) (*Verdict, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeVerification)

	userMsg, err := buildVerificationMessage(sub)
	if err != nil {
		return nil, fmt.Errorf("build verification prompt: %w", err)
	}

	resp, err := v.provider.Generate(ctx, llm.Request{
		System:      verificationSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      VerificationSchema,
		MaxTokens:   v.cfg.MaxTokens,
		Temperature: v.cfg.Temperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return v.useFallback(ctx, sub, "LLM verification failed", err)
	}

	var raw verificationOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return v.useFallback(ctx, sub, "unparseable verification response", err)
	}

	score := clamp(raw.Score)
	feedback := strings.TrimSpace(raw.Feedback)
	if feedback == "" {
		feedback = "Evaluation completed."
	}
	// The threshold decides, not the model's own pass flag.
	return &Verdict{
		Score:        score,
		Passed:       score >= PassThreshold,
		Feedback:     feedback,
		Strengths:    nonEmpty(raw.Strengths),
		Improvements: nonEmpty(raw.Improvements),
		Verifier:     "llm",
	}, nil
}

func (v *LLMVerifier) useFallback(ctx context.Context, sub Submission, reason string, cause error) (*Verdict, error) {
	v.log.Warn("falling back to heuristic verification", "concept_id", sub.ConceptID, "reason", reason, "error", cause)
	verdict, err := v.fallback.Verify(ctx, sub)
	if err != nil {
		return nil, err
	}
	verdict.Fallback = true
	verdict.Reason = reason
	return verdict, nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

const verificationSystemPrompt = `You are an expert educator evaluating a learner's explanation of a concept.

Instructions:
- Grade semantically. Do NOT require exact wording.
- Judge whether the explanation demonstrates understanding, reasoning and correct use of terminology.
- A score of 70 or more means the learner has mastered the concept.
- Keep feedback to one or two sentences.`

var verificationUserTemplate = template.Must(template.New("verification").Parse(`Concept: {{.Title}}
{{if .Description}}Description: {{.Description}}
{{end}}
Learner explanation:
"""
{{.Explanation}}
"""`))

func buildVerificationMessage(sub Submission) (string, error) {
	var buf bytes.Buffer
	if err := verificationUserTemplate.Execute(&buf, sub); err != nil {
		return "", err
	}
	return buf.String(), nil
}
