package catalog

import (
	"slices"
	"strings"
	"time"
)

// Difficulty bounds for catalog concepts.
const (
	MinDifficulty = 1
	MaxDifficulty = 10
)

// Concept is a single learnable node in the shared template graph.
type Concept struct {
	ID            string
	Title         string
	Description   string
	Category      string
	Difficulty    int
	Prerequisites []string // ordered, unique, never contains ID
	Fundamental   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsRoot reports whether the concept has no prerequisites.
func (c Concept) IsRoot() bool {
	return len(c.Prerequisites) == 0
}

// Summary returns the lightweight view used by paths and unlock lists.
func (c Concept) Summary() ConceptSummary {
	return ConceptSummary{
		ID:         c.ID,
		Title:      c.Title,
		Category:   c.Category,
		Difficulty: c.Difficulty,
	}
}

func (c Concept) clone() Concept {
	c.Prerequisites = slices.Clone(c.Prerequisites)
	return c
}

// ConceptSummary is the read-only projection returned by queries.
type ConceptSummary struct {
	ID         string `json:"concept_id"`
	Title      string `json:"title"`
	Category   string `json:"category,omitempty"`
	Difficulty int    `json:"difficulty_level"`
}

// ConceptPatch carries optional field updates for Update.
type ConceptPatch struct {
	Title       *string
	Description *string
	Category    *string
	Difficulty  *int
}

// NormalizeID returns the canonical, case-normalized form of a concept id.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Summaries projects a slice of concepts into summaries.
func Summaries(concepts []Concept) []ConceptSummary {
	out := make([]ConceptSummary, len(concepts))
	for i, c := range concepts {
		out[i] = c.Summary()
	}
	return out
}
