package mastery

import (
	"context"
	"math"
	"time"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/store"
)

// States returns the learner's state for every catalog concept in catalog order.
func (s *Service) States(ctx context.Context, learnerID string) ([]ConceptState, error) {
	rec, err := s.load(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	all := s.catalog.All()
	out := make([]ConceptState, 0, len(all))
	for _, con := range all {
		if st, ok := rec.States[con.ID]; ok {
			out = append(out, stateFromData(st))
		}
	}
	return out, nil
}

// State returns the learner's state for one concept.
func (s *Service) State(ctx context.Context, learnerID, conceptID string) (ConceptState, error) {
	con, err := s.catalog.Get(conceptID)
	if err != nil {
		return ConceptState{}, err
	}
	rec, err := s.load(ctx, learnerID)
	if err != nil {
		return ConceptState{}, err
	}
	st, ok := rec.States[con.ID]
	if !ok {
		return ConceptState{}, &catalog.NotFoundError{ID: con.ID}
	}
	return stateFromData(st), nil
}

// Available returns the concepts the learner can attempt now, in catalog order.
func (s *Service) Available(ctx context.Context, learnerID string) ([]catalog.Concept, error) {
	rec, err := s.load(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	var out []catalog.Concept
	for _, con := range s.catalog.All() {
		if st, ok := rec.States[con.ID]; ok && Status(st.Status) == StatusAvailable {
			out = append(out, con)
		}
	}
	return out, nil
}

// MasteredSet returns the ids of the concepts the learner has mastered.
func (s *Service) MasteredSet(ctx context.Context, learnerID string) (map[string]bool, error) {
	rec, err := s.load(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for id, st := range rec.States {
		if Status(st.Status) == StatusMastered {
			out[id] = true
		}
	}
	return out, nil
}

// CategoryStats counts a learner's progress within one category.
type CategoryStats struct {
	Category  string `json:"category"`
	Total     int    `json:"total"`
	Mastered  int    `json:"mastered"`
	Available int    `json:"available"`
}

// Stats summarizes a learner's progress across the catalog.
type Stats struct {
	LearnerID        string          `json:"learner_id"`
	Total            int             `json:"total_concepts"`
	Locked           int             `json:"locked"`
	Available        int             `json:"available"`
	Mastered         int             `json:"mastered"`
	PercentComplete  int             `json:"percent_complete"`
	TotalAttempts    int             `json:"total_attempts"`
	AverageBestScore float64         `json:"average_best_score"`
	Categories       []CategoryStats `json:"categories"`
}

// Stats computes progress totals, overall and per category.
func (s *Service) Stats(ctx context.Context, learnerID string) (Stats, error) {
	rec, err := s.load(ctx, learnerID)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{LearnerID: learnerID}
	byCategory := make(map[string]int)
	scoreSum, scored := 0, 0

	for _, con := range s.catalog.All() {
		cs, ok := rec.States[con.ID]
		if !ok {
			continue
		}
		i, seen := byCategory[con.Category]
		if !seen {
			i = len(st.Categories)
			byCategory[con.Category] = i
			st.Categories = append(st.Categories, CategoryStats{Category: con.Category})
		}
		cat := &st.Categories[i]
		cat.Total++
		st.Total++
		st.TotalAttempts += cs.Attempts

		switch Status(cs.Status) {
		case StatusMastered:
			st.Mastered++
			cat.Mastered++
		case StatusAvailable:
			st.Available++
			cat.Available++
		default:
			st.Locked++
		}
		if cs.BestScore != nil {
			scoreSum += *cs.BestScore
			scored++
		}
	}

	if st.Total > 0 {
		st.PercentComplete = int(math.Round(float64(st.Mastered) / float64(st.Total) * 100))
	}
	if scored > 0 {
		st.AverageBestScore = math.Round(float64(scoreSum)/float64(scored)*100) / 100
	}
	return st, nil
}

// ExportedState is one concept entry in a learner export.
type ExportedState struct {
	ConceptID  string `json:"concept_id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Difficulty int    `json:"difficulty_level"`
	Status     Status `json:"status"`
	BestScore  *int   `json:"best_score,omitempty"`
	Attempts   int    `json:"attempts"`
}

// LearnerExport is a portable snapshot of a learner's progress.
type LearnerExport struct {
	LearnerID  string          `json:"learner_id"`
	ExportedAt time.Time       `json:"export_date"`
	Summary    Stats           `json:"summary"`
	Concepts   []ExportedState `json:"skills"`
}

// Export returns the learner's progress with concept summaries.
func (s *Service) Export(ctx context.Context, learnerID string) (*LearnerExport, error) {
	rec, err := s.load(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	out := &LearnerExport{LearnerID: learnerID, ExportedAt: s.now(), Summary: stats}
	for _, con := range s.catalog.All() {
		cs, ok := rec.States[con.ID]
		if !ok {
			continue
		}
		st := stateFromData(cs)
		out.Concepts = append(out.Concepts, ExportedState{
			ConceptID:  con.ID,
			Title:      con.Title,
			Category:   con.Category,
			Difficulty: con.Difficulty,
			Status:     st.Status,
			BestScore:  st.BestScore,
			Attempts:   st.Attempts,
		})
	}
	return out, nil
}

// ImportFailure explains why an exported entry was not restored.
type ImportFailure struct {
	ConceptID string `json:"concept_id"`
	Reason    string `json:"reason"`
}

// ImportResult reports the outcome of Import.
type ImportResult struct {
	Imported    []string          `json:"imported"`
	Failed      []ImportFailure   `json:"failed"`
	Transitions []StateTransition `json:"-"`
}

// Import restores exported progress into learnerID. Unknown concepts and
// out-of-range scores are reported as failures. Status is rebuilt from the
// best score: a passing score restores mastery, and everything else is
// reconciled against the learner's mastered prerequisites.
func (s *Service) Import(ctx context.Context, learnerID string, data *LearnerExport) (*ImportResult, error) {
	result := &ImportResult{}
	_, err := s.update(ctx, learnerID, func(rec *store.LearnerRecord) ([]StateTransition, bool, error) {
		*result = ImportResult{Imported: []string{}, Failed: []ImportFailure{}}
		now := s.now()

		for _, e := range data.Concepts {
			id := catalog.NormalizeID(e.ConceptID)
			st, ok := rec.States[id]
			if !ok {
				result.Failed = append(result.Failed, ImportFailure{ConceptID: e.ConceptID, Reason: "concept not found"})
				continue
			}
			if e.BestScore != nil && (*e.BestScore < 0 || *e.BestScore > 100) {
				result.Failed = append(result.Failed, ImportFailure{ConceptID: e.ConceptID, Reason: ErrInvalidScore.Error()})
				continue
			}

			st.Attempts = max(e.Attempts, 0)
			st.BestScore = nil
			st.MasteredAt = nil
			if e.BestScore != nil {
				v := *e.BestScore
				st.BestScore = &v
			}
			if st.BestScore != nil && *st.BestScore >= PassThreshold {
				st.Status = string(StatusMastered)
				st.MasteredAt = &now
			} else {
				st.Status = string(StatusLocked)
			}
			result.Imported = append(result.Imported, id)
		}

		result.Transitions = s.reconcile(rec, TriggerImport)
		return result.Transitions, true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reset returns one concept, or with an empty conceptID every concept, to
// its initial lifecycle state. Dependents that relied on a reset concept
// are locked again; mastery of other concepts is kept.
func (s *Service) Reset(ctx context.Context, learnerID, conceptID string) ([]StateTransition, error) {
	if conceptID != "" {
		con, err := s.catalog.Get(conceptID)
		if err != nil {
			return nil, err
		}
		conceptID = con.ID
	}

	return s.update(ctx, learnerID, func(rec *store.LearnerRecord) ([]StateTransition, bool, error) {
		var transitions []StateTransition
		for id, st := range rec.States {
			if conceptID != "" && id != conceptID {
				continue
			}
			from := Status(st.Status)
			*st = store.ConceptStateData{ConceptID: id, Status: string(StatusLocked)}
			if from == StatusMastered {
				transitions = append(transitions, StateTransition{
					LearnerID: learnerID, ConceptID: id,
					From: from, To: StatusLocked, Trigger: TriggerReset,
				})
			}
		}
		transitions = append(transitions, s.reconcile(rec, TriggerReset)...)
		return collapse(transitions), true, nil
	})
}

// collapse merges successive transitions of the same concept and drops
// those that end where they started.
func collapse(ts []StateTransition) []StateTransition {
	index := make(map[string]int)
	var out []StateTransition
	for _, t := range ts {
		if i, ok := index[t.ConceptID]; ok {
			out[i].To = t.To
			continue
		}
		index[t.ConceptID] = len(out)
		out = append(out, t)
	}
	kept := out[:0]
	for _, t := range out {
		if t.From != t.To {
			kept = append(kept, t)
		}
	}
	return kept
}
