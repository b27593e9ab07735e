package llm

import (
	"math"
	"testing"
)

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model string
		want  *ModelCost
	}{
		{"gpt-4o-mini", &ModelCost{0.15, 0.6}},
		{"gpt-4o-mini-2024-07-18", &ModelCost{0.15, 0.6}},
		{"gpt-4o-2024-08-06", &ModelCost{2.5, 10}},
		{"claude-haiku-4-5-20251001", &ModelCost{1, 5}},
		{"google/gemini-2.5-flash", &ModelCost{0.3, 2.5}},
		{"mock", nil},
		{"gpt", nil},
	}
	for _, tt := range tests {
		got := LookupCost(tt.model)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("%s: expected unknown, got %+v", tt.model, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("%s: got %v, want %+v", tt.model, got, *tt.want)
		}
	}
}

func TestModelCost_Cost(t *testing.T) {
	c := ModelCost{InputPerMTok: 1, OutputPerMTok: 5}
	if got := c.Cost(1_000_000, 200_000); math.Abs(got-2) > 1e-9 {
		t.Fatalf("Cost = %f, want 2", got)
	}
}
