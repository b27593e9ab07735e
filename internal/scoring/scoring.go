// Package scoring turns a learner's free-form explanation of a concept into
// a 0-100 score that the mastery engine consumes.
package scoring

import (
	"context"
	"strings"
)

// PassThreshold mirrors the mastery threshold so verdicts can report Passed.
const PassThreshold = 70

// Submission is an explanation to grade against one concept.
type Submission struct {
	ConceptID   string
	Title       string
	Description string
	Explanation string
}

// Verdict is the outcome of grading one submission.
type Verdict struct {
	Score        int      `json:"score"`
	Passed       bool     `json:"passed"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
	Verifier     string   `json:"verifier"`
	Fallback     bool     `json:"using_fallback,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// Verifier grades explanations.
type Verifier interface {
	Verify(ctx context.Context, sub Submission) (*Verdict, error)
}

func clamp(score int) int {
	return min(max(score, 0), 100)
}

// terms returns the lowercase words of s longer than three characters.
func terms(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	out := fields[:0]
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f) > 3 && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
