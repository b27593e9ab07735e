package catalog

import (
	"errors"
	"testing"
)

func mustNew(t *testing.T, concepts ...Concept) *Catalog {
	t.Helper()
	c, issues := New(concepts)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %+v", issues)
	}
	return c
}

func concept(id string, difficulty int, prereqs ...string) Concept {
	return Concept{ID: id, Title: id, Category: "Calculus", Difficulty: difficulty, Prerequisites: prereqs}
}

func TestNew_RepairsInvalidInput(t *testing.T) {
	c, issues := New([]Concept{
		{ID: " Limits ", Title: "Limits", Difficulty: 0},
		{ID: "limits", Title: "Duplicate"},
		{ID: "derivatives", Title: "Derivatives", Difficulty: 3, Prerequisites: []string{"LIMITS", "limits", "derivatives", "ghost"}},
	})

	kinds := make(map[IssueKind]int)
	for _, is := range issues {
		kinds[is.Kind]++
	}
	for _, want := range []IssueKind{IssueDuplicateID, IssueSelfReference, IssueDanglingPrerequisite, IssueInvalidDifficulty} {
		if kinds[want] != 1 {
			t.Errorf("issue %s: got %d, want 1 (all: %+v)", want, kinds[want], issues)
		}
	}

	limits, err := c.Get("LIMITS")
	if err != nil {
		t.Fatalf("Get(LIMITS): %v", err)
	}
	if limits.Title != "Limits" || limits.Difficulty != MinDifficulty {
		t.Errorf("got %+v, want first occurrence clamped to difficulty 1", limits)
	}

	d, _ := c.Get("derivatives")
	if len(d.Prerequisites) != 1 || d.Prerequisites[0] != "limits" {
		t.Errorf("derivatives prereqs = %v, want [limits]", d.Prerequisites)
	}
}

func TestNew_KeepsDifficultyAboveCeiling(t *testing.T) {
	c, issues := New([]Concept{concept("a", 10), concept("b", 11, "a")})
	if len(issues) != 1 || issues[0].Kind != IssueDifficultyOverflow || issues[0].ConceptID != "b" {
		t.Fatalf("issues = %+v, want one overflow for b", issues)
	}
	b, _ := c.Get("b")
	if b.Difficulty != 11 {
		t.Errorf("b difficulty = %d, want 11 kept", b.Difficulty)
	}
}

func TestGet_NotFound(t *testing.T) {
	c := mustNew(t)
	_, err := c.Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.ID != "nope" {
		t.Fatalf("got %v, want NotFoundError{nope}", err)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	c := mustNew(t, concept("a", 1), concept("b", 2, "a"))
	b, _ := c.Get("b")
	b.Prerequisites[0] = "mutated"

	again, _ := c.Get("b")
	if again.Prerequisites[0] != "a" {
		t.Fatalf("catalog state leaked through Get: %v", again.Prerequisites)
	}
}

func TestDependentsAndRoots(t *testing.T) {
	c := mustNew(t, concept("a", 1), concept("d", 1), concept("c", 2, "a", "d"), concept("e", 3, "c"))

	deps := c.Dependents("a")
	if len(deps) != 1 || deps[0].ID != "c" {
		t.Errorf("Dependents(a) = %v, want [c]", deps)
	}
	roots := c.Roots()
	if len(roots) != 2 || roots[0].ID != "a" || roots[1].ID != "d" {
		t.Errorf("Roots = %v, want [a d]", roots)
	}
	if c.IsUnlocked("c", map[string]bool{"a": true}) {
		t.Error("c unlocked with only a mastered")
	}
	if !c.IsUnlocked("c", map[string]bool{"a": true, "d": true}) {
		t.Error("c locked with a and d mastered")
	}
}

func TestQueries(t *testing.T) {
	c := mustNew(t,
		Concept{ID: "det", Title: "Determinants", Description: "matrix volume", Category: "Linear Algebra", Difficulty: 4},
		Concept{ID: "lim", Title: "Limits", Description: "approaching values", Category: "Calculus", Difficulty: 2},
		Concept{ID: "vec", Title: "Vectors", Category: "Linear Algebra", Difficulty: 1},
		Concept{ID: "der", Title: "Derivatives", Category: "Calculus", Difficulty: 3, Prerequisites: []string{"lim"}},
	)

	la := c.ByCategory("linear algebra")
	if len(la) != 2 || la[0].ID != "vec" || la[1].ID != "det" {
		t.Errorf("ByCategory = %v, want [vec det]", la)
	}

	mid := c.ByDifficulty("Calculus", 3, 5)
	if len(mid) != 1 || mid[0].ID != "der" {
		t.Errorf("ByDifficulty = %v, want [der]", mid)
	}

	page := c.List(1, 2)
	if len(page) != 2 || page[0].ID != "der" || page[1].ID != "vec" {
		t.Errorf("List(1,2) = %v, want [der vec]", page)
	}
	if got := c.List(10, 0); got != nil {
		t.Errorf("List past end = %v, want nil", got)
	}

	if got := c.Search("MATRIX", ""); len(got) != 1 || got[0].ID != "det" {
		t.Errorf("Search(MATRIX) = %v, want [det]", got)
	}
	if got := c.Search("i", "Calculus"); len(got) != 2 {
		t.Errorf("Search(i, Calculus) = %v, want 2 results", got)
	}

	cats := c.Categories()
	if len(cats) != 2 || cats[0] != "Linear Algebra" {
		t.Errorf("Categories = %v", cats)
	}

	tree := c.CategoryTree("Calculus")
	if len(tree) != 2 || tree[1].Concept.ID != "der" || len(tree[1].Prerequisites) != 1 || tree[1].Prerequisites[0].ID != "lim" {
		t.Errorf("CategoryTree = %+v", tree)
	}
}

func TestAddConcept(t *testing.T) {
	c := mustNew(t, concept("a", 1))

	got, created, err := c.AddConcept(Concept{ID: "B", Title: "B", Difficulty: 2, Prerequisites: []string{"a"}})
	if err != nil || !created {
		t.Fatalf("AddConcept: created=%v err=%v", created, err)
	}
	if got.ID != "b" || got.CreatedAt.IsZero() {
		t.Errorf("got %+v, want normalized id and timestamps", got)
	}
	if deps := c.Dependents("a"); len(deps) != 1 || deps[0].ID != "b" {
		t.Errorf("Dependents(a) = %v, want [b]", deps)
	}

	existing, created, err := c.AddConcept(Concept{ID: "b", Title: "Other"})
	if err != nil || created || existing.Title != "B" {
		t.Errorf("re-add: got %+v created=%v err=%v, want existing unchanged", existing, created, err)
	}

	if _, _, err := c.AddConcept(Concept{ID: "x", Prerequisites: []string{"ghost"}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("dangling prereq: got %v, want ErrNotFound", err)
	}
	if _, _, err := c.AddConcept(Concept{ID: "y", Prerequisites: []string{"y"}}); !errors.Is(err, ErrSelfReference) {
		t.Errorf("self prereq: got %v, want ErrSelfReference", err)
	}
	if _, _, err := c.AddConcept(Concept{ID: "z", Difficulty: 11}); err == nil {
		t.Error("difficulty 11 accepted")
	}
}

func TestUpdate(t *testing.T) {
	c := mustNew(t, concept("a", 1))
	title, diff := "Alpha", 5
	got, err := c.Update("a", ConceptPatch{Title: &title, Difficulty: &diff})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "Alpha" || got.Difficulty != 5 || got.Category != "Calculus" {
		t.Errorf("got %+v", got)
	}
	bad := 0
	if _, err := c.Update("a", ConceptPatch{Difficulty: &bad}); err == nil {
		t.Error("difficulty 0 accepted")
	}
	if _, err := c.Update("ghost", ConceptPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestAddPrerequisite(t *testing.T) {
	c := mustNew(t, concept("a", 1), concept("b", 2, "a"), concept("c", 3, "b"))

	tests := []struct {
		name    string
		id, pre string
		want    error
	}{
		{"self", "a", "a", ErrSelfReference},
		{"unknown concept", "ghost", "a", ErrNotFound},
		{"unknown prereq", "a", "ghost", ErrNotFound},
		{"direct cycle", "a", "b", ErrCycle},
		{"transitive cycle", "a", "c", ErrCycle},
		{"existing edge", "b", "a", nil},
		{"new edge", "c", "a", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.AddPrerequisite(tt.id, tt.pre)
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	var ce *CycleError
	err := c.AddPrerequisite("a", "c")
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want CycleError", err)
	}
	if ce.Chain[0] != "a" || ce.Chain[len(ce.Chain)-1] != "a" {
		t.Errorf("chain = %v, want a at both ends", ce.Chain)
	}

	b, _ := c.Get("b")
	if len(b.Prerequisites) != 1 {
		t.Errorf("existing edge duplicated: %v", b.Prerequisites)
	}
	if found, _ := c.DetectCycle("a"); found {
		t.Error("rejected edge left a cycle behind")
	}
}

func TestRemovePrerequisite(t *testing.T) {
	c := mustNew(t, concept("a", 1), concept("b", 2, "a"))
	if err := c.RemovePrerequisite("b", "a"); err != nil {
		t.Fatalf("RemovePrerequisite: %v", err)
	}
	b, _ := c.Get("b")
	if !b.IsRoot() {
		t.Errorf("b prereqs = %v, want none", b.Prerequisites)
	}
	if deps := c.Dependents("a"); len(deps) != 0 {
		t.Errorf("Dependents(a) = %v, want none", deps)
	}
	if err := c.RemovePrerequisite("b", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRemoveConcept_StripsBackReferences(t *testing.T) {
	c := mustNew(t, concept("a", 1), concept("b", 2, "a"), concept("c", 3, "a", "b"))

	touched, err := c.RemoveConcept("a")
	if err != nil {
		t.Fatalf("RemoveConcept: %v", err)
	}
	if len(touched) != 2 || touched[0] != "b" || touched[1] != "c" {
		t.Errorf("touched = %v, want [b c]", touched)
	}
	if c.Has("a") || c.Len() != 2 {
		t.Fatalf("a still present or wrong size %d", c.Len())
	}
	for _, con := range c.All() {
		for _, p := range con.Prerequisites {
			if !c.Has(p) {
				t.Errorf("%s still references removed %s", con.ID, p)
			}
		}
	}
	if _, err := c.RemoveConcept("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove: got %v, want ErrNotFound", err)
	}
}

func TestTopologicalOrder(t *testing.T) {
	c := mustNew(t, concept("c", 3, "b"), concept("b", 2, "a"), concept("a", 1), concept("x", 1, "y"), concept("y", 1, "x"))
	ordered, cyclic := c.TopologicalOrder()

	pos := make(map[string]int)
	for i, con := range ordered {
		pos[con.ID] = i
	}
	if len(ordered) != 3 || pos["a"] > pos["b"] || pos["b"] > pos["c"] {
		t.Errorf("ordered = %v", ordered)
	}
	if len(cyclic) != 2 {
		t.Errorf("cyclic = %v, want [x y]", cyclic)
	}
}
