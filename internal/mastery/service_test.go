package mastery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/store"
)

// mockEventRepo records appended events for assertions.
type mockEventRepo struct {
	mu       sync.Mutex
	attempts []store.AttemptEventData
	mastery  []store.MasteryEventData
}

func (m *mockEventRepo) AppendLLMRequest(_ context.Context, _ store.LLMRequestEventData) error {
	return nil
}

func (m *mockEventRepo) AppendAttemptEvent(_ context.Context, data store.AttemptEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, data)
	return nil
}

func (m *mockEventRepo) AppendMasteryEvent(_ context.Context, data store.MasteryEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mastery = append(m.mastery, data)
	return nil
}

// conflictRepo fails the first n saves with a version conflict.
type conflictRepo struct {
	*store.MemLearnerRepo
	failures int
	saves    int
}

func (c *conflictRepo) Save(ctx context.Context, rec *store.LearnerRecord) error {
	c.saves++
	if c.failures > 0 {
		c.failures--
		return store.ErrVersionConflict
	}
	return c.MemLearnerRepo.Save(ctx, rec)
}

func newCatalog(t *testing.T, concepts ...catalog.Concept) *catalog.Catalog {
	t.Helper()
	cat, issues := catalog.New(concepts)
	if len(issues) != 0 {
		t.Fatalf("catalog issues: %+v", issues)
	}
	return cat
}

func concept(id string, prereqs ...string) catalog.Concept {
	return catalog.Concept{ID: id, Title: id, Category: "Test", Difficulty: min(len(prereqs)+1, catalog.MaxDifficulty), Prerequisites: prereqs}
}

func mustState(t *testing.T, svc *Service, learner, id string) ConceptState {
	t.Helper()
	st, err := svc.State(context.Background(), learner, id)
	if err != nil {
		t.Fatalf("State(%s): %v", id, err)
	}
	return st
}

func TestService_InitialStates(t *testing.T) {
	svc := NewService(newCatalog(t, concept("a"), concept("b", "a"), concept("c")), nil)

	states, err := svc.States(context.Background(), "l1")
	if err != nil {
		t.Fatalf("States: %v", err)
	}
	want := map[string]Status{"a": StatusAvailable, "b": StatusLocked, "c": StatusAvailable}
	if len(states) != len(want) {
		t.Fatalf("got %d states, want %d", len(states), len(want))
	}
	for _, st := range states {
		if st.Status != want[st.ConceptID] {
			t.Errorf("%s = %s, want %s", st.ConceptID, st.Status, want[st.ConceptID])
		}
		if st.BestScore != nil || st.Attempts != 0 {
			t.Errorf("%s should have no score or attempts", st.ConceptID)
		}
	}
}

func TestService_RecordScore_MasteryUnlocksDependent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newCatalog(t, concept("a"), concept("b", "a")), nil)

	res, err := svc.RecordScore(ctx, "l1", "a", 90)
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if res.Outcome != OutcomeMastered || res.Status != StatusMastered {
		t.Errorf("outcome = %s status = %s", res.Outcome, res.Status)
	}
	if res.BestScore == nil || *res.BestScore != 90 {
		t.Errorf("best score = %v, want 90", res.BestScore)
	}
	if len(res.Unlocked) != 1 || res.Unlocked[0].ID != "b" {
		t.Fatalf("unlocked = %+v, want [b]", res.Unlocked)
	}
	if st := mustState(t, svc, "l1", "b"); st.Status != StatusAvailable {
		t.Errorf("b = %s, want available", st.Status)
	}
	if st := mustState(t, svc, "l1", "a"); st.MasteredAt == nil {
		t.Error("a should carry a mastered timestamp")
	}
}

func TestService_RecordScore_PartialPrerequisitesStayLocked(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newCatalog(t, concept("a"), concept("d"), concept("c", "a", "d")), nil)

	res, err := svc.RecordScore(ctx, "l1", "a", 85)
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if len(res.Unlocked) != 0 {
		t.Errorf("unlocked = %+v, want none", res.Unlocked)
	}
	if st := mustState(t, svc, "l1", "c"); st.Status != StatusLocked {
		t.Errorf("c = %s, want locked", st.Status)
	}
	if st := mustState(t, svc, "l1", "d"); st.Status != StatusAvailable {
		t.Errorf("d = %s, want available", st.Status)
	}

	res, err = svc.RecordScore(ctx, "l1", "d", 70)
	if err != nil {
		t.Fatalf("RecordScore(d): %v", err)
	}
	if len(res.Unlocked) != 1 || res.Unlocked[0].ID != "c" {
		t.Errorf("unlocked = %+v, want [c]", res.Unlocked)
	}
}

func TestService_RecordScore_RepracticeKeepsBest(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newCatalog(t, concept("a"), concept("b", "a"), concept("e", "b")), nil)

	if _, err := svc.RecordScore(ctx, "l1", "a", 90); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordScore(ctx, "l1", "b", 95); err != nil {
		t.Fatal(err)
	}

	res, err := svc.RecordScore(ctx, "l1", "b", 80)
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if res.Outcome != OutcomeAlreadyMastered || res.Status != StatusMastered {
		t.Errorf("outcome = %s status = %s", res.Outcome, res.Status)
	}
	if res.BestScore == nil || *res.BestScore != 95 {
		t.Errorf("best score = %v, want 95", res.BestScore)
	}
	if len(res.Unlocked) != 0 {
		t.Errorf("unlocked = %+v, want none", res.Unlocked)
	}
	if res.Delta == nil || res.Delta.PreviousBest != 95 || res.Delta.Delta != -15 {
		t.Fatalf("delta = %+v", res.Delta)
	}
	if res.Delta.Percent == nil || *res.Delta.Percent != -15.79 {
		t.Errorf("delta percent = %v, want -15.79", res.Delta.Percent)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
}

func TestService_RecordScore_RepracticeRaisesBest(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newCatalog(t, concept("a")), nil)

	if _, err := svc.RecordScore(ctx, "l1", "a", 72); err != nil {
		t.Fatal(err)
	}
	res, err := svc.RecordScore(ctx, "l1", "a", 90)
	if err != nil {
		t.Fatal(err)
	}
	if *res.BestScore != 90 || res.Delta.Delta != 18 {
		t.Errorf("best = %d delta = %d", *res.BestScore, res.Delta.Delta)
	}
	// Lower scores afterwards never reduce the best.
	res, err = svc.RecordScore(ctx, "l1", "a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if *res.BestScore != 90 || res.Status != StatusMastered {
		t.Errorf("best = %d status = %s", *res.BestScore, res.Status)
	}
}

func TestService_RecordScore_BelowThreshold(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newCatalog(t, concept("a"), concept("b", "a")), nil)

	res, err := svc.RecordScore(ctx, "l1", "a", 69)
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if res.Outcome != OutcomeBelowThreshold || res.Passed() {
		t.Errorf("outcome = %s passed = %v", res.Outcome, res.Passed())
	}
	if res.Status != StatusAvailable || res.BestScore != nil {
		t.Errorf("status = %s best = %v", res.Status, res.BestScore)
	}
	if res.Threshold != PassThreshold || res.Score != 69 || res.Feedback == "" {
		t.Errorf("result lacks context: %+v", res)
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Attempts)
	}
}

func TestService_RecordScore_Errors(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newCatalog(t, concept("a"), concept("b", "a")), nil)

	if _, err := svc.RecordScore(ctx, "l1", "missing", 90); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("unknown concept err = %v, want ErrNotFound", err)
	}
	for _, score := range []int{-1, 101} {
		if _, err := svc.RecordScore(ctx, "l1", "a", score); !errors.Is(err, ErrInvalidScore) {
			t.Errorf("score %d err = %v, want ErrInvalidScore", score, err)
		}
	}

	_, err := svc.RecordScore(ctx, "l1", "b", 90)
	var na *NotAvailableError
	if !errors.As(err, &na) {
		t.Fatalf("locked concept err = %v, want NotAvailableError", err)
	}
	if !errors.Is(err, ErrNotAvailable) {
		t.Error("NotAvailableError should match ErrNotAvailable")
	}
	if na.Status != StatusLocked || len(na.MissingPrerequisites) != 1 || na.MissingPrerequisites[0] != "a" {
		t.Errorf("not available context = %+v", na)
	}
	if st := mustState(t, svc, "l1", "b"); st.Attempts != 0 {
		t.Errorf("rejected attempt counted: %d", st.Attempts)
	}
}

func TestService_RecordScore_IDsAreCaseNormalized(t *testing.T) {
	svc := NewService(newCatalog(t, concept("limits")), nil)
	res, err := svc.RecordScore(context.Background(), "l1", "  LIMITS ", 80)
	if err != nil {
		t.Fatal(err)
	}
	if res.ConceptID != "limits" {
		t.Errorf("concept id = %q", res.ConceptID)
	}
}

func TestService_LearnersAreIndependent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newCatalog(t, concept("a"), concept("b", "a")), nil)

	if _, err := svc.RecordScore(ctx, "alice", "a", 90); err != nil {
		t.Fatal(err)
	}
	if st := mustState(t, svc, "bob", "a"); st.Status != StatusAvailable {
		t.Errorf("bob a = %s, want available", st.Status)
	}
	if st := mustState(t, svc, "bob", "b"); st.Status != StatusLocked {
		t.Errorf("bob b = %s, want locked", st.Status)
	}
}

// Every concept is a prerequisite of the sink; mastering them concurrently
// must unlock the sink exactly once.
func TestService_ConcurrentRecordScore(t *testing.T) {
	ctx := context.Background()
	const n = 20

	concepts := make([]catalog.Concept, 0, n+1)
	ids := make([]string, 0, n)
	for i := range n {
		id := fmt.Sprintf("p%02d", i)
		ids = append(ids, id)
		concepts = append(concepts, concept(id))
	}
	concepts = append(concepts, concept("sink", ids...))
	svc := NewService(newCatalog(t, concepts...), nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		unlocked int
		errs     []error
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			res, err := svc.RecordScore(ctx, "l1", id, 90)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			unlocked += len(res.Unlocked)
		}(id)
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("errors: %v", errs)
	}
	if unlocked != 1 {
		t.Errorf("sink unlocked %d times, want 1", unlocked)
	}
	if st := mustState(t, svc, "l1", "sink"); st.Status != StatusAvailable {
		t.Errorf("sink = %s, want available", st.Status)
	}
}

func TestService_UnlockInvariantHolds(t *testing.T) {
	ctx := context.Background()
	cat := newCatalog(t,
		concept("a"), concept("b", "a"), concept("c", "a"),
		concept("d", "b", "c"), concept("e", "d"), concept("f"),
	)
	svc := NewService(cat, nil)

	for _, step := range []struct {
		id    string
		score int
	}{{"a", 80}, {"c", 50}, {"b", 90}, {"c", 75}, {"f", 100}} {
		if _, err := svc.RecordScore(ctx, "l1", step.id, step.score); err != nil {
			t.Fatalf("RecordScore(%s): %v", step.id, err)
		}
	}

	states, err := svc.States(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	byID := make(map[string]ConceptState)
	for _, st := range states {
		byID[st.ConceptID] = st
	}
	for _, con := range cat.All() {
		st := byID[con.ID]
		if st.Status == StatusMastered {
			if st.BestScore == nil || *st.BestScore < PassThreshold {
				t.Errorf("%s mastered without passing score", con.ID)
			}
			continue
		}
		allMastered := true
		for _, p := range con.Prerequisites {
			if byID[p].Status != StatusMastered {
				allMastered = false
			}
		}
		if (st.Status == StatusAvailable) != allMastered {
			t.Errorf("%s = %s with prerequisites mastered = %v", con.ID, st.Status, allMastered)
		}
	}
}

func TestService_Reconcile_RelocksAfterNewPrerequisite(t *testing.T) {
	ctx := context.Background()
	cat := newCatalog(t, concept("a"), concept("b"))
	svc := NewService(cat, nil)

	// Persist a record first so b's available state is stored.
	if _, err := svc.RecordScore(ctx, "l1", "a", 40); err != nil {
		t.Fatal(err)
	}
	if err := cat.AddPrerequisite("b", "a"); err != nil {
		t.Fatal(err)
	}

	ts, err := svc.Reconcile(ctx, "l1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(ts) != 1 || ts[0].ConceptID != "b" || ts[0].To != StatusLocked || ts[0].Trigger != TriggerReconcile {
		t.Fatalf("transitions = %+v", ts)
	}

	if _, err := svc.RecordScore(ctx, "l1", "a", 70); err != nil {
		t.Fatal(err)
	}
	if st := mustState(t, svc, "l1", "b"); st.Status != StatusAvailable {
		t.Errorf("b = %s, want available", st.Status)
	}

	// Nothing left to change.
	ts, err = svc.Reconcile(ctx, "l1")
	if err != nil || len(ts) != 0 {
		t.Errorf("second reconcile = %v, %v", ts, err)
	}
}

func TestService_Reconcile_NeverRevokesMastery(t *testing.T) {
	ctx := context.Background()
	cat := newCatalog(t, concept("a"), concept("b"))
	svc := NewService(cat, nil)

	if _, err := svc.RecordScore(ctx, "l1", "b", 90); err != nil {
		t.Fatal(err)
	}
	if err := cat.AddPrerequisite("b", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Reconcile(ctx, "l1"); err != nil {
		t.Fatal(err)
	}
	if st := mustState(t, svc, "l1", "b"); st.Status != StatusMastered {
		t.Errorf("b = %s, want mastered", st.Status)
	}
}

func TestService_ReconcileAll(t *testing.T) {
	ctx := context.Background()
	cat := newCatalog(t, concept("a"), concept("b"))
	svc := NewService(cat, nil)

	for _, l := range []string{"l1", "l2"} {
		if _, err := svc.RecordScore(ctx, l, "a", 10); err != nil {
			t.Fatal(err)
		}
	}
	if err := cat.AddPrerequisite("b", "a"); err != nil {
		t.Fatal(err)
	}
	n, err := svc.ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("ReconcileAll: %v", err)
	}
	if n != 2 {
		t.Errorf("transitions = %d, want 2", n)
	}
}

func TestService_VersionConflictRetries(t *testing.T) {
	repo := &conflictRepo{MemLearnerRepo: store.NewMemLearnerRepo(), failures: 2}
	svc := NewService(newCatalog(t, concept("a"), concept("b", "a")), repo)

	res, err := svc.RecordScore(context.Background(), "l1", "a", 90)
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if repo.saves != 3 {
		t.Errorf("saves = %d, want 3", repo.saves)
	}
	if len(res.Unlocked) != 1 || res.Attempts != 1 {
		t.Errorf("replayed result = %+v", res)
	}
}

func TestService_VersionConflictExhausted(t *testing.T) {
	repo := &conflictRepo{MemLearnerRepo: store.NewMemLearnerRepo(), failures: 10}
	svc := NewService(newCatalog(t, concept("a")), repo, WithMaxRetries(1))

	_, err := svc.RecordScore(context.Background(), "l1", "a", 90)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if repo.saves != 2 {
		t.Errorf("saves = %d, want 2", repo.saves)
	}
}

func TestService_UntrustedMasteryIsRepaired(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemLearnerRepo()
	rec := store.NewLearnerRecord("l1")
	rec.States["a"] = &store.ConceptStateData{ConceptID: "a", Status: "mastered"}
	rec.States["b"] = &store.ConceptStateData{ConceptID: "b", Status: "bogus"}
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}

	svc := NewService(newCatalog(t, concept("a"), concept("b", "a")), repo)
	if st := mustState(t, svc, "l1", "a"); st.Status != StatusAvailable {
		t.Errorf("a = %s, want available", st.Status)
	}
	if st := mustState(t, svc, "l1", "b"); st.Status != StatusLocked {
		t.Errorf("b = %s, want locked", st.Status)
	}
}

func TestService_EventsRecorded(t *testing.T) {
	ctx := context.Background()
	events := &mockEventRepo{}
	svc := NewService(newCatalog(t, concept("a"), concept("b", "a")), nil, WithEventRepo(events))

	if _, err := svc.RecordScore(ctx, "l1", "a", 50); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordScore(ctx, "l1", "a", 90); err != nil {
		t.Fatal(err)
	}

	if len(events.attempts) != 2 {
		t.Fatalf("attempt events = %d, want 2", len(events.attempts))
	}
	last := events.attempts[1]
	if last.Outcome != string(OutcomeMastered) || last.FromStatus != "available" || last.ToStatus != "mastered" {
		t.Errorf("attempt event = %+v", last)
	}
	if len(last.Unlocked) != 1 || last.Unlocked[0] != "b" || last.AttemptID == "" {
		t.Errorf("attempt event unlocked = %v id = %q", last.Unlocked, last.AttemptID)
	}

	if len(events.mastery) != 2 {
		t.Fatalf("mastery events = %d, want 2", len(events.mastery))
	}
	if events.mastery[0].ConceptID != "a" || events.mastery[0].Trigger != TriggerScore {
		t.Errorf("first mastery event = %+v", events.mastery[0])
	}
	if events.mastery[1].ConceptID != "b" || events.mastery[1].Trigger != TriggerUnlock {
		t.Errorf("second mastery event = %+v", events.mastery[1])
	}
}

func TestService_Available(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newCatalog(t, concept("a"), concept("b", "a"), concept("c")), nil)

	if _, err := svc.RecordScore(ctx, "l1", "a", 90); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Available(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("available = %v", got)
	}

	mastered, err := svc.MasteredSet(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if !mastered["a"] || len(mastered) != 1 {
		t.Errorf("mastered = %v", mastered)
	}
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	cat := newCatalog(t,
		catalog.Concept{ID: "a", Title: "A", Category: "Algebra", Difficulty: 1},
		catalog.Concept{ID: "b", Title: "B", Category: "Algebra", Difficulty: 2, Prerequisites: []string{"a"}},
		catalog.Concept{ID: "c", Title: "C", Category: "Calculus", Difficulty: 3, Prerequisites: []string{"b"}},
	)
	svc := NewService(cat, nil)

	if _, err := svc.RecordScore(ctx, "l1", "a", 80); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordScore(ctx, "l1", "b", 60); err != nil {
		t.Fatal(err)
	}

	st, err := svc.Stats(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 3 || st.Mastered != 1 || st.Available != 1 || st.Locked != 1 {
		t.Errorf("counts = %+v", st)
	}
	if st.PercentComplete != 33 {
		t.Errorf("percent = %d, want 33", st.PercentComplete)
	}
	if st.TotalAttempts != 2 || st.AverageBestScore != 80 {
		t.Errorf("attempts = %d avg = %v", st.TotalAttempts, st.AverageBestScore)
	}
	if len(st.Categories) != 2 || st.Categories[0].Category != "Algebra" || st.Categories[0].Total != 2 || st.Categories[0].Mastered != 1 {
		t.Errorf("categories = %+v", st.Categories)
	}
}

func TestService_ExportImport(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cat := newCatalog(t, concept("a"), concept("b", "a"), concept("c", "b"))
	src := NewService(cat, nil, WithClock(func() time.Time { return fixed }))

	if _, err := src.RecordScore(ctx, "l1", "a", 90); err != nil {
		t.Fatal(err)
	}
	if _, err := src.RecordScore(ctx, "l1", "b", 40); err != nil {
		t.Fatal(err)
	}

	exp, err := src.Export(ctx, "l1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !exp.ExportedAt.Equal(fixed) || len(exp.Concepts) != 3 || exp.Summary.Mastered != 1 {
		t.Fatalf("export = %+v", exp)
	}

	bad := 150
	exp.Concepts = append(exp.Concepts,
		ExportedState{ConceptID: "ghost", Status: StatusMastered},
		ExportedState{ConceptID: "c", BestScore: &bad},
	)

	dst := NewService(cat, nil)
	res, err := dst.Import(ctx, "l2", exp)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Imported) != 3 {
		t.Errorf("imported = %v", res.Imported)
	}
	if len(res.Failed) != 2 || res.Failed[0].ConceptID != "ghost" || res.Failed[1].ConceptID != "c" {
		t.Errorf("failed = %+v", res.Failed)
	}

	a := mustState(t, dst, "l2", "a")
	if a.Status != StatusMastered || *a.BestScore != 90 || a.Attempts != 1 {
		t.Errorf("a = %+v", a)
	}
	b := mustState(t, dst, "l2", "b")
	// Attempts below the pass threshold are counted but never scored.
	if b.Status != StatusAvailable || b.BestScore != nil || b.Attempts != 1 {
		t.Errorf("b = %+v", b)
	}
	if c := mustState(t, dst, "l2", "c"); c.Status != StatusLocked {
		t.Errorf("c = %s, want locked", c.Status)
	}
}

func TestService_ResetConcept(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newCatalog(t, concept("a"), concept("b", "a"), concept("x")), nil)

	for _, id := range []string{"a", "x"} {
		if _, err := svc.RecordScore(ctx, "l1", id, 90); err != nil {
			t.Fatal(err)
		}
	}

	ts, err := svc.Reset(ctx, "l1", "a")
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got := make(map[string]StateTransition)
	for _, tr := range ts {
		got[tr.ConceptID] = tr
	}
	if tr := got["a"]; tr.From != StatusMastered || tr.To != StatusAvailable {
		t.Errorf("a transition = %+v", tr)
	}
	if tr := got["b"]; tr.From != StatusAvailable || tr.To != StatusLocked {
		t.Errorf("b transition = %+v", tr)
	}

	a := mustState(t, svc, "l1", "a")
	if a.Status != StatusAvailable || a.BestScore != nil || a.Attempts != 0 {
		t.Errorf("a = %+v", a)
	}
	if x := mustState(t, svc, "l1", "x"); x.Status != StatusMastered {
		t.Errorf("x = %s, want mastered", x.Status)
	}
	if _, err := svc.Reset(ctx, "l1", "nope"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("unknown reset err = %v", err)
	}
}

func TestService_ResetLearner(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newCatalog(t, concept("a"), concept("b", "a")), nil)

	for _, id := range []string{"a", "b"} {
		if _, err := svc.RecordScore(ctx, "l1", id, 90); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Reset(ctx, "l1", ""); err != nil {
		t.Fatal(err)
	}
	st, err := svc.Stats(ctx, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Mastered != 0 || st.Available != 1 || st.Locked != 1 || st.TotalAttempts != 0 {
		t.Errorf("after reset = %+v", st)
	}
}

func TestNewScoreDelta(t *testing.T) {
	tests := []struct {
		score, prev int
		delta       int
		percent     *float64
	}{
		{90, 80, 10, ptr(12.5)},
		{80, 95, -15, ptr(-15.79)},
		{50, 0, 50, nil},
	}
	for _, tt := range tests {
		d := newScoreDelta(tt.score, tt.prev)
		if d.Delta != tt.delta {
			t.Errorf("delta(%d,%d) = %d, want %d", tt.score, tt.prev, d.Delta, tt.delta)
		}
		switch {
		case tt.percent == nil && d.Percent != nil:
			t.Errorf("percent(%d,%d) = %v, want nil", tt.score, tt.prev, *d.Percent)
		case tt.percent != nil && (d.Percent == nil || *d.Percent != *tt.percent):
			t.Errorf("percent(%d,%d) = %v, want %v", tt.score, tt.prev, d.Percent, *tt.percent)
		}
	}
}

func ptr[T any](v T) *T { return &v }
