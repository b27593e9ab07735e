package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/llm"
)

const sampleResponse = `{
  "category": "Linear Algebra",
  "concepts": [
    {"title": "Matrix Operations", "concept_id": "matrix_operations", "difficulty_level": 2, "is_fundamental": true},
    {"title": "Eigenvalues", "description": "Scalars of a linear map", "difficulty_level": "6", "is_fundamental": "false"}
  ],
  "relationships": [
    {"concept": "Eigenvalues", "prerequisite": "Matrix Operations", "reason": "needs matrix arithmetic"}
  ],
  "summary": "Core linear algebra",
  "learning_path": "Matrix Operations then Eigenvalues"
}`

func TestParseResponse_Plain(t *testing.T) {
	res, err := ParseResponse(sampleResponse)
	require.NoError(t, err)

	assert.Equal(t, "Linear Algebra", res.Category)
	assert.Equal(t, "Core linear algebra", res.Summary)
	assert.Equal(t, "Matrix Operations then Eigenvalues", res.LearningPath)
	require.Len(t, res.Concepts, 2)
	assert.Equal(t, catalog.ConceptDraft{ID: "matrix_operations", Title: "Matrix Operations", Difficulty: 2, Fundamental: true}, res.Concepts[0])
	assert.Equal(t, 6, res.Concepts[1].Difficulty)
	assert.False(t, res.Concepts[1].Fundamental)
	require.Len(t, res.Relationships, 1)
	assert.Equal(t, "needs matrix arithmetic", res.Relationships[0].Reason)
	assert.Empty(t, res.Skipped)
}

func TestParseResponse_Fenced(t *testing.T) {
	res, err := ParseResponse("```json\n" + sampleResponse + "\n```")
	require.NoError(t, err)
	assert.Len(t, res.Concepts, 2)
}

func TestParseResponse_EmbeddedInProse(t *testing.T) {
	res, err := ParseResponse("Here is the tree you asked for:\n" + sampleResponse + "\nLet me know if you need more.")
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", res.Category)
}

func TestParseResponse_SkipsMalformedEntries(t *testing.T) {
	raw := `{
	  "concepts": [
	    {"title": "Limits", "difficulty_level": "hard"},
	    {"description": "no title"},
	    "just a string",
	    {"title": "  "}
	  ],
	  "relationships": [
	    {"concept": "Derivatives"},
	    {"concept": "Derivatives", "prerequisite": "Limits"},
	    42
	  ]
	}`
	res, err := ParseResponse(raw)
	require.NoError(t, err)

	require.Len(t, res.Concepts, 1)
	assert.Equal(t, "Limits", res.Concepts[0].Title)
	assert.Zero(t, res.Concepts[0].Difficulty)
	require.Len(t, res.Relationships, 1)
	assert.Len(t, res.Skipped, 5)
	assert.Contains(t, res.Skipped[0], "concepts[1]")
}

func TestParseResponse_MissingSections(t *testing.T) {
	res, err := ParseResponse(`{"category": "Physics"}`)
	require.NoError(t, err)
	assert.Empty(t, res.Concepts)
	assert.Empty(t, res.Relationships)
}

func TestParseResponse_Unrecoverable(t *testing.T) {
	for _, raw := range []string{"", "no json here", "[1,2,3]", "{broken"} {
		_, err := ParseResponse(raw)
		assert.True(t, errors.Is(err, ErrUnparseable), "input %q: %v", raw, err)
	}
}

func TestParseDocument_YAML(t *testing.T) {
	doc := `
category: Calculus
concepts:
  - title: Limits
    difficulty_level: 3
    is_fundamental: true
  - title: Derivatives
    difficulty_level: 2
relationships:
  - concept: Derivatives
    prerequisite: Limits
`
	res, err := ParseDocument([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Calculus", res.Category)
	require.Len(t, res.Concepts, 2)
	assert.Equal(t, 3, res.Concepts[0].Difficulty)
	assert.True(t, res.Concepts[0].Fundamental)
	assert.Len(t, res.Relationships, 1)
}

func TestLLMExtractor_Extract(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage("```json\n" + sampleResponse + "\n```")})
	ex := NewLLMExtractor(mock, DefaultConfig(), nil)

	res, err := ex.Extract(context.Background(), "Eigenvalues and matrix operations", "Linear Algebra")
	require.NoError(t, err)
	assert.Len(t, res.Concepts, 2)

	require.Len(t, mock.Calls, 1)
	call := mock.Calls[0]
	assert.Nil(t, call.Schema)
	assert.Contains(t, call.Messages[0].Content, "primarily in category: Linear Algebra")
	assert.Contains(t, call.Messages[0].Content, "Eigenvalues and matrix operations")
}

func TestLLMExtractor_Errors(t *testing.T) {
	ex := NewLLMExtractor(llm.NewMockProvider(), DefaultConfig(), nil)
	_, err := ex.Extract(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ex.Extract(context.Background(), "limits", "")
	var unavail *llm.UnavailableError
	assert.ErrorAs(t, err, &unavail)

	bad := NewLLMExtractor(llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage("sorry")}), DefaultConfig(), nil)
	_, err = bad.Extract(context.Background(), "limits", "")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestDocumentExtractor_CategoryHint(t *testing.T) {
	res, err := DocumentExtractor{}.Extract(context.Background(), "concepts:\n  - title: Limits\n", "Calculus")
	require.NoError(t, err)
	assert.Equal(t, "Calculus", res.Category)
	assert.Len(t, res.Concepts, 1)
}
