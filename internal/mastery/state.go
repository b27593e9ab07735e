package mastery

import (
	"time"

	"github.com/abhisek/conceptree/internal/store"
)

// Status is a concept's position in a learner's mastery lifecycle.
type Status string

const (
	StatusLocked    Status = "locked"
	StatusAvailable Status = "available"
	StatusMastered  Status = "mastered"
)

// PassThreshold is the minimum score that masters a concept.
const PassThreshold = 70

// Valid reports whether s is one of the three lifecycle statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusLocked, StatusAvailable, StatusMastered:
		return true
	}
	return false
}

// ConceptState is one learner's progress on one concept.
type ConceptState struct {
	ConceptID  string     `json:"concept_id"`
	Status     Status     `json:"status"`
	BestScore  *int       `json:"best_score,omitempty"`
	Attempts   int        `json:"attempts"`
	MasteredAt *time.Time `json:"mastered_at,omitempty"`
}

func stateFromData(d *store.ConceptStateData) ConceptState {
	st := ConceptState{
		ConceptID: d.ConceptID,
		Status:    Status(d.Status),
		Attempts:  d.Attempts,
	}
	if d.BestScore != nil {
		v := *d.BestScore
		st.BestScore = &v
	}
	if d.MasteredAt != nil {
		t := *d.MasteredAt
		st.MasteredAt = &t
	}
	return st
}

// StateTransition records a status change for event logging.
type StateTransition struct {
	LearnerID string
	ConceptID string
	From      Status
	To        Status
	Trigger   string // "score-threshold", "prerequisites-mastered", "prerequisites-changed", "reset", "import"
}

// Transition triggers.
const (
	TriggerScore     = "score-threshold"
	TriggerUnlock    = "prerequisites-mastered"
	TriggerReconcile = "prerequisites-changed"
	TriggerReset     = "reset"
	TriggerImport    = "import"
)
