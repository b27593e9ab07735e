package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/conceptree/internal/llm"
)

// constSource always yields the same value. 1 gives a zero residual and
// math.MaxUint64 the largest.
type constSource uint64

func (s constSource) Uint64() uint64 { return uint64(s) }

func words(n int, extra ...string) string {
	parts := make([]string, 0, n+len(extra))
	parts = append(parts, extra...)
	for len(parts) < n {
		parts = append(parts, "word")
	}
	return strings.Join(parts, " ")
}

func TestHeuristic_Score(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		explanation string
		want        Breakdown
	}{
		{
			name:        "full length and terminology",
			title:       "Limits",
			explanation: words(25, "limits"),
			want:        Breakdown{Length: 40, Terms: 30},
		},
		{
			name:        "short without terminology",
			title:       "Limits",
			explanation: "ok",
			want:        Breakdown{Length: 2},
		},
		{
			name:        "half the length",
			title:       "Limits",
			explanation: words(10),
			want:        Breakdown{Length: 20},
		},
		{
			name:        "partial terminology",
			title:       "Eigenvalues and Eigenvectors",
			explanation: words(20, "Eigenvalues"),
			want:        Breakdown{Length: 40, Terms: 15},
		},
		{
			name:        "title without long terms",
			title:       "Pi",
			explanation: words(20, "pi"),
			want:        Breakdown{Length: 40},
		},
	}

	h := NewHeuristic(constSource(1))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Score(Submission{Title: tt.title, Explanation: tt.explanation})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeuristic_ResidualBounded(t *testing.T) {
	h := NewHeuristic(constSource(math.MaxUint64))
	b := h.Score(Submission{Title: "Limits", Explanation: words(30, "limits")})
	assert.Equal(t, ResidualPoints-1, b.Residual)
	assert.Equal(t, 99, b.Total())

	seeded := NewSeededHeuristic(7)
	for range 200 {
		r := seeded.Score(Submission{Title: "x", Explanation: "x"}).Residual
		require.GreaterOrEqual(t, r, 0)
		require.Less(t, r, ResidualPoints)
	}
}

func TestHeuristic_SeededIsDeterministic(t *testing.T) {
	sub := Submission{Title: "Derivatives", Explanation: words(12, "derivatives")}
	a, b := NewSeededHeuristic(42), NewSeededHeuristic(42)
	for range 10 {
		assert.Equal(t, a.Score(sub), b.Score(sub))
	}
}

func TestBreakdown_TotalClamps(t *testing.T) {
	assert.Equal(t, 100, Breakdown{Length: 60, Terms: 40, Residual: 30}.Total())
	assert.Equal(t, 0, Breakdown{Length: -5}.Total())
}

func TestHeuristic_Verify(t *testing.T) {
	h := NewHeuristic(constSource(1))

	pass, err := h.Verify(context.Background(), Submission{Title: "Limits", Explanation: words(20, "limits")})
	require.NoError(t, err)
	assert.Equal(t, 70, pass.Score)
	assert.True(t, pass.Passed)
	assert.Equal(t, "heuristic", pass.Verifier)
	assert.Contains(t, pass.Feedback, "Used relevant terminology")

	fail, err := h.Verify(context.Background(), Submission{Title: "Limits", Explanation: "limits are hard"})
	require.NoError(t, err)
	assert.False(t, fail.Passed)
	assert.NotEmpty(t, fail.Improvements)
	assert.Contains(t, fail.Feedback, "more detail")
}

func TestLLMVerifier_UsesModelScore(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"score":82,"passed":false,"feedback":"Solid grasp.","strengths":["clear"," "],"improvements":[]}`),
	})
	v := NewLLMVerifier(mock, NewHeuristic(constSource(1)), DefaultLLMVerifierConfig(), nil)

	got, err := v.Verify(context.Background(), Submission{ConceptID: "limits", Title: "Limits", Description: "Behaviour near a point", Explanation: "A limit is ..."})
	require.NoError(t, err)
	assert.Equal(t, 82, got.Score)
	assert.True(t, got.Passed, "threshold decides, not the model flag")
	assert.Equal(t, "llm", got.Verifier)
	assert.False(t, got.Fallback)
	assert.Equal(t, []string{"clear"}, got.Strengths)

	require.Len(t, mock.Calls, 1)
	call := mock.Calls[0]
	assert.Equal(t, VerificationSchema, call.Schema)
	assert.Contains(t, call.Messages[0].Content, "Concept: Limits")
	assert.Contains(t, call.Messages[0].Content, "Description: Behaviour near a point")
}

func TestLLMVerifier_ClampsScore(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"score":140,"passed":true,"feedback":"","strengths":[],"improvements":[]}`),
	})
	v := NewLLMVerifier(mock, NewHeuristic(constSource(1)), DefaultLLMVerifierConfig(), nil)

	got, err := v.Verify(context.Background(), Submission{Title: "Limits", Explanation: "x"})
	require.NoError(t, err)
	assert.Equal(t, 100, got.Score)
	assert.Equal(t, "Evaluation completed.", got.Feedback)
}

func TestLLMVerifier_FallsBack(t *testing.T) {
	tests := []struct {
		name   string
		resp   llm.MockResponse
		reason string
	}{
		{"provider error", llm.MockResponse{Err: &llm.UnavailableError{}}, "LLM verification failed"},
		{"malformed content", llm.MockResponse{Content: json.RawMessage(`not json`)}, "unparseable verification response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewLLMVerifier(llm.NewMockProvider(tt.resp), NewHeuristic(constSource(1)), DefaultLLMVerifierConfig(), nil)
			got, err := v.Verify(context.Background(), Submission{Title: "Limits", Explanation: words(20, "limits")})
			require.NoError(t, err)
			assert.True(t, got.Fallback)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, "heuristic", got.Verifier)
			assert.Equal(t, 70, got.Score)
		})
	}
}

func TestLLMVerifier_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewLLMVerifier(llm.NewMockProvider(llm.MockResponse{Err: context.Canceled}), NewHeuristic(nil), DefaultLLMVerifierConfig(), nil)
	_, err := v.Verify(ctx, Submission{Title: "Limits", Explanation: "x"})
	assert.True(t, errors.Is(err, context.Canceled))
}
