package scoring

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Score composition.
const (
	LengthPoints   = 40
	TermPoints     = 30
	ResidualPoints = 30

	// AdequateWords is the word count that earns full length points.
	AdequateWords = 20
)

// Heuristic scores explanations without a model: up to 40 points for
// length, up to 30 for using the concept's own terminology, and a bounded
// residual drawn from an injectable random source.
type Heuristic struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewHeuristic returns a heuristic scorer drawing its residual from src.
// A nil src seeds from the clock.
func NewHeuristic(src rand.Source) *Heuristic {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1)
	}
	return &Heuristic{rnd: rand.New(src)}
}

// NewSeededHeuristic returns a deterministic heuristic scorer.
func NewSeededHeuristic(seed uint64) *Heuristic {
	return NewHeuristic(rand.NewPCG(seed, seed))
}

// Breakdown is the per-component score of one explanation.
type Breakdown struct {
	Length   int
	Terms    int
	Residual int
}

// Total returns the clamped sum of the components.
func (b Breakdown) Total() int {
	return clamp(b.Length + b.Terms + b.Residual)
}

// Score computes the breakdown for sub.
func (h *Heuristic) Score(sub Submission) Breakdown {
	words := len(strings.Fields(sub.Explanation))
	b := Breakdown{
		Length: int(math.Round(LengthPoints * math.Min(float64(words)/AdequateWords, 1))),
	}

	if want := terms(sub.Title); len(want) > 0 {
		have := make(map[string]bool)
		for _, t := range terms(sub.Explanation) {
			have[t] = true
		}
		hits := 0
		for _, t := range want {
			if have[t] {
				hits++
			}
		}
		b.Terms = int(math.Round(TermPoints * float64(hits) / float64(len(want))))
	}

	h.mu.Lock()
	b.Residual = h.rnd.IntN(ResidualPoints)
	h.mu.Unlock()
	return b
}

func (h *Heuristic) Verify(_ context.Context, sub Submission) (*Verdict, error) {
	b := h.Score(sub)
	v := &Verdict{
		Score:    b.Total(),
		Verifier: "heuristic",
	}
	v.Passed = v.Score >= PassThreshold

	var feedback []string
	if b.Length >= LengthPoints {
		v.Strengths = append(v.Strengths, "Good explanation length")
		feedback = append(feedback, "Good explanation length")
	} else {
		v.Improvements = append(v.Improvements, "Explain the concept in more detail")
		feedback = append(feedback, "Try to explain in more detail")
	}
	if b.Terms > 0 {
		v.Strengths = append(v.Strengths, "Used relevant terminology")
		feedback = append(feedback, "Used relevant terminology")
	} else {
		v.Improvements = append(v.Improvements, "Use the concept's own terminology")
	}
	if !v.Passed {
		v.Improvements = append(v.Improvements, "Give specific examples", "Use analogies to explain complex ideas")
	}
	v.Feedback = strings.Join(feedback, ". ")
	return v, nil
}
