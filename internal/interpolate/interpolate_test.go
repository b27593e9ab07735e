package interpolate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/conceptree/internal/catalog"
)

func titlesOf(drafts []catalog.ConceptDraft) []string {
	out := make([]string, len(drafts))
	for i, d := range drafts {
		out[i] = strings.ToLower(d.Title)
	}
	return out
}

func TestInterpolate_Eigenvalues(t *testing.T) {
	in := New(nil, nil)
	out := in.Interpolate([]catalog.ConceptDraft{{Title: "Eigenvalues", Difficulty: 5}})

	require.Len(t, out, 4)
	assert.Equal(t, []string{"matrix operations", "determinants", "linear transformations", "eigenvalues"}, titlesOf(out))
	for _, d := range out[:3] {
		assert.Equal(t, 1, d.Difficulty)
		assert.True(t, d.Fundamental)
		assert.Equal(t, "Foundational concept for Eigenvalues", d.Description)
	}
	assert.Equal(t, "Matrix operations", out[0].Title)
	assert.Equal(t, "matrix_operations", out[0].ID)
	assert.Equal(t, "eigenvalues", out[3].ID)
}

func TestInterpolate_SkipsPresentTitles(t *testing.T) {
	in := New(nil, nil)
	out := in.Interpolate([]catalog.ConceptDraft{
		{ID: "evals", Title: "Eigenvalues"},
		{ID: "dets", Title: "DETERMINANTS"},
	})

	// determinants is present so only matrices is added for it.
	assert.Equal(t, []string{"matrix operations", "linear transformations", "matrices", "eigenvalues", "determinants"}, titlesOf(out))
}

func TestInterpolate_NoDuplicatesAcrossRules(t *testing.T) {
	in := New(nil, nil)
	out := in.Interpolate([]catalog.ConceptDraft{
		{Title: "The Chain Rule"},
		{Title: "Product Rule"},
	})

	// derivatives is required by both rules but synthesized once.
	assert.Equal(t, []string{"derivatives", "composition", "multiplication", "the chain rule", "product rule"}, titlesOf(out))

	seen := make(map[string]bool)
	for _, d := range out {
		require.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
	}
}

func TestInterpolate_FirstMatchingKeywordWins(t *testing.T) {
	in := New(nil, nil)
	out := in.Interpolate([]catalog.ConceptDraft{{Title: "Eigenvectors"}})
	assert.Equal(t, []string{"eigenvalues", "matrix operations", "eigenvectors"}, titlesOf(out))

	rule, ok := in.Match("Eigenvalues and the determinant")
	require.True(t, ok)
	assert.Equal(t, "eigenvalues", rule.Keyword)
}

func TestInterpolate_DoesNotRecurseIntoSynthesized(t *testing.T) {
	in := New(nil, nil)
	// Diagonalization synthesizes "eigenvalues", which is not itself expanded.
	out := in.Interpolate([]catalog.ConceptDraft{{Title: "Diagonalization"}})
	assert.Equal(t, []string{"eigenvalues", "eigenvectors", "linear transformations", "diagonalization"}, titlesOf(out))
}

func TestInterpolate_MalformedDrafts(t *testing.T) {
	in := New(nil, nil)
	out := in.Interpolate([]catalog.ConceptDraft{
		{ID: "blank", Title: "  "},
		{ID: "Limits", Title: "Limits"},
		{ID: "limits", Title: "Limits again"},
		{Title: "Continuity"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "limits", out[0].ID)
	assert.Equal(t, "continuity", out[1].ID)
}

func TestInterpolate_IDCollisionSkipsSynthesis(t *testing.T) {
	in := New(nil, nil)
	out := in.Interpolate([]catalog.ConceptDraft{
		{ID: "composition", Title: "Function composition"},
		{Title: "Chain rule"},
	})
	assert.Equal(t, []string{"derivatives", "function composition", "chain rule"}, titlesOf(out))
}

func TestGenerateID(t *testing.T) {
	tests := []struct {
		title, want string
	}{
		{"Matrix Operations", "matrix_operations"},
		{"  L'Hôpital's   Rule!! ", "l_h_pital_s_rule"},
		{"abcdefghijklmnopqrstuvwxyz012 tail", "abcdefghijklmnopqrstuvwxyz012"},
		{"abcdefghijklmnopqrstuvwxyz01234567", "abcdefghijklmnopqrstuvwxyz0123"},
		{"---", ""},
	}
	for _, tt := range tests {
		got := GenerateID(tt.title)
		assert.Equal(t, tt.want, got, "GenerateID(%q)", tt.title)
		assert.LessOrEqual(t, len(got), MaxIDLength)
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		text, want string
	}{
		{"Eigenvalues of a matrix and vector spaces", "Linear Algebra"},
		{"limits, derivatives and integrals", "Calculus"},
		{"sorting algorithm complexity", "Computer Science"},
		{"the history of Rome", DefaultCategory},
		// one hit each: earlier table entry wins
		{"matrix derivative", "Linear Algebra"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferCategory(tt.text), tt.text)
	}
}

func TestParseRules(t *testing.T) {
	doc := `
rules:
  - keyword: "  Fourier Series "
    prerequisites: [trigonometry, integration]
  - keyword: laplace
    prerequisites: [integration]
`
	rules, err := ParseRules(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "fourier series", rules[0].Keyword)

	in := New(rules, nil)
	out := in.Interpolate([]catalog.ConceptDraft{{Title: "Fourier series basics"}})
	assert.Equal(t, []string{"trigonometry", "integration", "fourier series basics"}, titlesOf(out))
}

func TestParseRules_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":          "rules: []",
		"no keyword":     "rules:\n  - prerequisites: [a]\n",
		"no prereqs":     "rules:\n  - keyword: a\n",
		"blank prereq":   "rules:\n  - keyword: a\n    prerequisites: ['']\n",
		"malformed yaml": "rules: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRules(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadRules_DefaultWhenEmpty(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}
