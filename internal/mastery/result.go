package mastery

import (
	"fmt"
	"math"

	"github.com/abhisek/conceptree/internal/catalog"
)

// Outcome classifies a successful RecordScore call. None of these are errors.
type Outcome string

const (
	OutcomeMastered        Outcome = "mastered"
	OutcomeBelowThreshold  Outcome = "below_threshold"
	OutcomeAlreadyMastered Outcome = "already_mastered"
)

// ScoreDelta compares a re-practice attempt with the best score recorded
// before it. Percent is nil when the previous best was zero.
type ScoreDelta struct {
	PreviousBest int      `json:"previous_best"`
	Delta        int      `json:"delta"`
	Percent      *float64 `json:"delta_percent,omitempty"`
}

func newScoreDelta(score, previous int) *ScoreDelta {
	d := &ScoreDelta{PreviousBest: previous, Delta: score - previous}
	if previous != 0 {
		p := math.Round(float64(score-previous)/float64(previous)*10000) / 100
		d.Percent = &p
	}
	return d
}

// UnlockResult reports the effect of one scoring event.
type UnlockResult struct {
	LearnerID string                   `json:"learner_id"`
	ConceptID string                   `json:"concept_id"`
	Outcome   Outcome                  `json:"outcome"`
	Status    Status                   `json:"status"`
	Score     int                      `json:"score"`
	BestScore *int                     `json:"best_score,omitempty"`
	Threshold int                      `json:"threshold"`
	Attempts  int                      `json:"attempts"`
	Unlocked  []catalog.ConceptSummary `json:"unlocked"`
	Delta     *ScoreDelta              `json:"delta,omitempty"`
	Feedback  string                   `json:"feedback,omitempty"`
}

// Passed reports whether the attempt met the threshold.
func (r UnlockResult) Passed() bool {
	return r.Score >= r.Threshold
}

func defaultFeedback(r UnlockResult) string {
	switch r.Outcome {
	case OutcomeMastered:
		if len(r.Unlocked) > 0 {
			return fmt.Sprintf("Concept mastered with a score of %d. %d new concept(s) unlocked.", r.Score, len(r.Unlocked))
		}
		return fmt.Sprintf("Concept mastered with a score of %d.", r.Score)
	case OutcomeBelowThreshold:
		return fmt.Sprintf("Score %d is below the mastery threshold of %d. Review the concept and try again.", r.Score, r.Threshold)
	case OutcomeAlreadyMastered:
		if r.Delta != nil && r.Delta.Delta > 0 {
			return fmt.Sprintf("Already mastered. New best score: %d (+%d).", r.Score, r.Delta.Delta)
		}
		return "Already mastered. Best score unchanged."
	}
	return ""
}
