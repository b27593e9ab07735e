package catalog

// ConceptDraft is a concept proposed by extraction or interpolation that has
// not been admitted to the catalog yet.
type ConceptDraft struct {
	ID          string `json:"concept_id" yaml:"concept_id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Difficulty  int    `json:"difficulty_level" yaml:"difficulty_level"`
	Fundamental bool   `json:"is_fundamental" yaml:"is_fundamental"`
}

// Relationship is a prerequisite pair expressed by concept titles.
type Relationship struct {
	Concept      string `json:"concept"`
	Prerequisite string `json:"prerequisite"`
	Reason       string `json:"reason,omitempty"`
}

// ExtractionResult is the structured output of the text extraction collaborator.
type ExtractionResult struct {
	Category      string
	Concepts      []ConceptDraft
	Relationships []Relationship
	Summary       string
	LearningPath  string

	// Skipped describes malformed entries dropped while reading the result.
	Skipped []string
}
