// Package mastery tracks each learner's locked / available / mastered state
// for every catalog concept and propagates unlocks when a concept is mastered.
package mastery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/logger"
	"github.com/abhisek/conceptree/internal/store"
)

// DefaultMaxRetries bounds how often a learner update is replayed after a
// version conflict.
const DefaultMaxRetries = 3

// Service provides mastery state management for all learners against a
// shared catalog. Updates for one learner are serialized by a per-learner
// lock and guarded by the repo's version check; different learners never
// share a lock.
type Service struct {
	catalog    *catalog.Catalog
	repo       store.LearnerRepo
	events     store.EventRepo
	log        *logger.Logger
	maxRetries int
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithEventRepo records attempts and transitions to repo.
func WithEventRepo(repo store.EventRepo) Option {
	return func(s *Service) { s.events = repo }
}

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = logger.OrNop(l) }
}

// WithMaxRetries sets the version conflict retry budget.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithClock overrides the time source used for mastery timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a mastery service. A nil repo keeps state in memory.
func NewService(cat *catalog.Catalog, repo store.LearnerRepo, opts ...Option) *Service {
	if repo == nil {
		repo = store.NewMemLearnerRepo()
	}
	s := &Service{
		catalog:    cat,
		repo:       repo,
		log:        logger.Nop(),
		maxRetries: DefaultMaxRetries,
		now:        func() time.Time { return time.Now().UTC() },
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the catalog the service evaluates against.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// RecordScore applies a scoring event for conceptID.
//
// A locked concept fails with a NotAvailableError. An available concept is
// mastered when score meets PassThreshold, after which every dependent whose
// prerequisites are now all mastered moves from locked to available and is
// listed in the result. A mastered concept is re-practice: status never
// changes, BestScore only rises, and the delta against the previous best is
// reported. Every accepted attempt is counted.
func (s *Service) RecordScore(ctx context.Context, learnerID, conceptID string, score int) (*UnlockResult, error) {
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidScore, score)
	}
	con, err := s.catalog.Get(conceptID)
	if err != nil {
		return nil, err
	}

	var (
		res  UnlockResult
		from Status
	)
	_, err = s.update(ctx, learnerID, func(rec *store.LearnerRecord) ([]StateTransition, bool, error) {
		res = UnlockResult{
			LearnerID: learnerID,
			ConceptID: con.ID,
			Score:     score,
			Threshold: PassThreshold,
			Unlocked:  []catalog.ConceptSummary{},
		}
		st, ok := rec.States[con.ID]
		if !ok {
			return nil, false, &catalog.NotFoundError{ID: con.ID}
		}
		from = Status(st.Status)

		var transitions []StateTransition
		switch from {
		case StatusLocked:
			return nil, false, &NotAvailableError{
				ConceptID:            con.ID,
				Status:               StatusLocked,
				MissingPrerequisites: missingPrerequisites(rec, con.Prerequisites),
			}

		case StatusMastered:
			st.Attempts++
			prev := 0
			if st.BestScore != nil {
				prev = *st.BestScore
			}
			res.Delta = newScoreDelta(score, prev)
			if score > prev {
				v := score
				st.BestScore = &v
			}
			res.Outcome = OutcomeAlreadyMastered

		default:
			st.Attempts++
			if score < PassThreshold {
				res.Outcome = OutcomeBelowThreshold
				break
			}

			v, now := score, s.now()
			st.Status = string(StatusMastered)
			st.BestScore = &v
			st.MasteredAt = &now
			res.Outcome = OutcomeMastered
			transitions = append(transitions, StateTransition{
				LearnerID: learnerID, ConceptID: con.ID,
				From: StatusAvailable, To: StatusMastered, Trigger: TriggerScore,
			})

			// Evaluated against rec after the transition above so that a
			// concept whose last missing prerequisite is con unlocks now.
			for _, dep := range s.catalog.Dependents(con.ID) {
				ds, ok := rec.States[dep.ID]
				if !ok || Status(ds.Status) != StatusLocked {
					continue
				}
				if len(missingPrerequisites(rec, dep.Prerequisites)) > 0 {
					continue
				}
				ds.Status = string(StatusAvailable)
				res.Unlocked = append(res.Unlocked, dep.Summary())
				transitions = append(transitions, StateTransition{
					LearnerID: learnerID, ConceptID: dep.ID,
					From: StatusLocked, To: StatusAvailable, Trigger: TriggerUnlock,
				})
			}
		}

		res.Status = Status(st.Status)
		res.Attempts = st.Attempts
		if st.BestScore != nil {
			v := *st.BestScore
			res.BestScore = &v
		}
		res.Feedback = defaultFeedback(res)
		return transitions, true, nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAttempt(ctx, res, from)
	s.log.Info("score recorded",
		"learner_id", learnerID,
		"concept_id", con.ID,
		"score", score,
		"outcome", string(res.Outcome),
		"unlocked", len(res.Unlocked),
	)
	return &res, nil
}

// Reconcile recomputes locked / available for every non-mastered concept
// against the current catalog. It is the only operation that may move a
// concept from available back to locked, which happens when a prerequisite
// was added after the concept unlocked. Mastery is never revoked.
func (s *Service) Reconcile(ctx context.Context, learnerID string) ([]StateTransition, error) {
	return s.update(ctx, learnerID, func(rec *store.LearnerRecord) ([]StateTransition, bool, error) {
		ts := s.reconcile(rec, TriggerReconcile)
		return ts, len(ts) > 0, nil
	})
}

// ReconcileAll runs Reconcile for every stored learner and returns the
// number of transitions applied.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.repo.Learners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list learners: %w", err)
	}
	total := 0
	for _, id := range ids {
		ts, err := s.Reconcile(ctx, id)
		if err != nil {
			return total, fmt.Errorf("reconcile %q: %w", id, err)
		}
		total += len(ts)
	}
	return total, nil
}

func (s *Service) reconcile(rec *store.LearnerRecord, trigger string) []StateTransition {
	var transitions []StateTransition
	for _, con := range s.catalog.All() {
		st, ok := rec.States[con.ID]
		if !ok {
			continue
		}
		cur := Status(st.Status)
		if cur == StatusMastered {
			continue
		}
		want := StatusLocked
		if len(missingPrerequisites(rec, con.Prerequisites)) == 0 {
			want = StatusAvailable
		}
		if cur == want {
			continue
		}
		st.Status = string(want)
		transitions = append(transitions, StateTransition{
			LearnerID: rec.LearnerID, ConceptID: con.ID,
			From: cur, To: want, Trigger: trigger,
		})
	}
	return transitions
}

// update loads learnerID's record, fills in missing concepts, applies fn and
// saves the result, replaying the whole sequence on a version conflict. The
// per-learner lock is held throughout.
func (s *Service) update(ctx context.Context, learnerID string, fn func(*store.LearnerRecord) ([]StateTransition, bool, error)) ([]StateTransition, error) {
	unlock := s.lockLearner(learnerID)
	defer unlock()

	for attempt := 0; ; attempt++ {
		rec, err := s.load(ctx, learnerID)
		if err != nil {
			return nil, err
		}
		transitions, changed, err := fn(rec)
		if err != nil {
			return nil, err
		}
		if !changed {
			return transitions, nil
		}

		err = s.repo.Save(ctx, rec)
		if err == nil {
			s.recordTransitions(ctx, transitions)
			return transitions, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("save learner %q: %w", learnerID, err)
		}
		if attempt >= s.maxRetries {
			return nil, fmt.Errorf("%w: learner %q after %d attempts", ErrConflict, learnerID, attempt+1)
		}
		s.log.Warn("learner version conflict, retrying", "learner_id", learnerID, "attempt", attempt+1)
	}
}

// load returns the stored record with an entry for every catalog concept.
// Concepts the learner has never seen start available when all their
// prerequisites are mastered and locked otherwise; roots are always available.
func (s *Service) load(ctx context.Context, learnerID string) (*store.LearnerRecord, error) {
	rec, err := s.repo.Load(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load learner %q: %w", learnerID, err)
	}
	if rec.States == nil {
		rec.States = make(map[string]*store.ConceptStateData)
	}

	// A mastered status without a passing score is not trusted.
	for _, st := range rec.States {
		if Status(st.Status) == StatusMastered && (st.BestScore == nil || *st.BestScore < PassThreshold) {
			st.Status = ""
		}
	}
	for id, st := range rec.States {
		if !Status(st.Status).Valid() {
			delete(rec.States, id)
		}
	}

	for _, con := range s.catalog.All() {
		if _, ok := rec.States[con.ID]; ok {
			continue
		}
		status := StatusLocked
		if len(missingPrerequisites(rec, con.Prerequisites)) == 0 {
			status = StatusAvailable
		}
		rec.States[con.ID] = &store.ConceptStateData{ConceptID: con.ID, Status: string(status)}
	}
	return rec, nil
}

func (s *Service) lockLearner(learnerID string) func() {
	s.mu.Lock()
	l, ok := s.locks[learnerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[learnerID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *Service) recordAttempt(ctx context.Context, res UnlockResult, from Status) {
	if s.events == nil {
		return
	}
	unlocked := make([]string, len(res.Unlocked))
	for i, u := range res.Unlocked {
		unlocked[i] = u.ID
	}
	err := s.events.AppendAttemptEvent(ctx, store.AttemptEventData{
		AttemptID:  uuid.NewString(),
		LearnerID:  res.LearnerID,
		ConceptID:  res.ConceptID,
		Score:      res.Score,
		Outcome:    string(res.Outcome),
		FromStatus: string(from),
		ToStatus:   string(res.Status),
		Unlocked:   unlocked,
	})
	if err != nil {
		s.log.Warn("failed to record attempt event", "learner_id", res.LearnerID, "concept_id", res.ConceptID, "error", err)
	}
}

func (s *Service) recordTransitions(ctx context.Context, transitions []StateTransition) {
	for _, t := range transitions {
		s.log.Debug("mastery transition",
			"learner_id", t.LearnerID,
			"concept_id", t.ConceptID,
			"from", string(t.From),
			"to", string(t.To),
			"trigger", t.Trigger,
		)
		if s.events == nil {
			continue
		}
		err := s.events.AppendMasteryEvent(ctx, store.MasteryEventData{
			LearnerID:  t.LearnerID,
			ConceptID:  t.ConceptID,
			FromStatus: string(t.From),
			ToStatus:   string(t.To),
			Trigger:    t.Trigger,
		})
		if err != nil {
			s.log.Warn("failed to record mastery event", "learner_id", t.LearnerID, "concept_id", t.ConceptID, "error", err)
		}
	}
}

// missingPrerequisites returns the prerequisite ids not mastered in rec.
func missingPrerequisites(rec *store.LearnerRecord, prereqs []string) []string {
	var missing []string
	for _, p := range prereqs {
		st, ok := rec.States[p]
		if !ok || Status(st.Status) != StatusMastered {
			missing = append(missing, p)
		}
	}
	return missing
}
