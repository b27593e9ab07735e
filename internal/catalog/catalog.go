package catalog

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Catalog holds the shared concept graph with precomputed reverse edges.
// Queries take the read lock; mutations and validation take the write lock.
type Catalog struct {
	mu         sync.RWMutex
	concepts   map[string]*Concept
	order      []string
	dependents map[string][]string
}

// New builds a catalog from a concept source. Ids are normalized, duplicates
// keep the first occurrence, and self references, dangling prerequisite ids
// and difficulties below the minimum are repaired. Difficulties above the
// ceiling are kept and reported as overflow. Every finding is reported.
func New(concepts []Concept) (*Catalog, []Issue) {
	c := &Catalog{
		concepts:   make(map[string]*Concept, len(concepts)),
		dependents: make(map[string][]string),
	}
	var issues []Issue

	for _, in := range concepts {
		con := in.clone()
		con.ID = NormalizeID(con.ID)
		if con.ID == "" {
			issues = append(issues, Issue{Kind: IssueInvalidConcept, Message: fmt.Sprintf("concept %q has no id", con.Title)})
			continue
		}
		if _, dup := c.concepts[con.ID]; dup {
			issues = append(issues, Issue{Kind: IssueDuplicateID, ConceptID: con.ID, Message: fmt.Sprintf("duplicate concept id %q ignored", con.ID)})
			continue
		}
		switch {
		case con.Difficulty < MinDifficulty:
			issues = append(issues, Issue{Kind: IssueInvalidDifficulty, ConceptID: con.ID,
				Message: fmt.Sprintf("difficulty %d out of range, raised to %d", con.Difficulty, MinDifficulty)})
			con.Difficulty = MinDifficulty
		case con.Difficulty > MaxDifficulty:
			// Validation raises dependents past the ceiling when it must.
			issues = append(issues, Issue{Kind: IssueDifficultyOverflow, ConceptID: con.ID,
				Message: fmt.Sprintf("difficulty %d above the %d ceiling", con.Difficulty, MaxDifficulty)})
		}
		c.concepts[con.ID] = &con
		c.order = append(c.order, con.ID)
	}

	for _, id := range c.order {
		con := c.concepts[id]
		prereqs := make([]string, 0, len(con.Prerequisites))
		seen := make(map[string]bool, len(con.Prerequisites))
		for _, raw := range con.Prerequisites {
			p := NormalizeID(raw)
			switch {
			case p == id:
				issues = append(issues, Issue{Kind: IssueSelfReference, ConceptID: id, Message: "self reference removed"})
			case c.concepts[p] == nil:
				issues = append(issues, Issue{Kind: IssueDanglingPrerequisite, ConceptID: id,
					Message: fmt.Sprintf("references nonexistent prerequisite %q", p)})
			case !seen[p]:
				seen[p] = true
				prereqs = append(prereqs, p)
			}
		}
		con.Prerequisites = prereqs
	}

	c.rebuildDependents()
	return c, issues
}

func (c *Catalog) rebuildDependents() {
	c.dependents = make(map[string][]string, len(c.concepts))
	for _, id := range c.order {
		for _, p := range c.concepts[id].Prerequisites {
			c.dependents[p] = append(c.dependents[p], id)
		}
	}
}

// Len returns the number of concepts.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Has reports whether id is present.
func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.concepts[NormalizeID(id)]
	return ok
}

// Get returns a concept by id.
func (c *Catalog) Get(id string) (Concept, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	con, ok := c.concepts[NormalizeID(id)]
	if !ok {
		return Concept{}, &NotFoundError{ID: NormalizeID(id)}
	}
	return con.clone(), nil
}

// All returns every concept in insertion order.
func (c *Catalog) All() []Concept {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collect(c.order)
}

// List returns concepts sorted by category then difficulty, paginated.
// A limit of 0 means no limit.
func (c *Catalog) List(offset, limit int) []Concept {
	all := c.All()
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Category != all[j].Category {
			return all[i].Category < all[j].Category
		}
		return all[i].Difficulty < all[j].Difficulty
	})
	if offset >= len(all) {
		return nil
	}
	all = all[max(offset, 0):]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// ByCategory returns a category's concepts ordered by difficulty.
func (c *Catalog) ByCategory(category string) []Concept {
	return c.ByDifficulty(category, MinDifficulty, 1<<31-1)
}

// ByDifficulty returns a category's concepts whose difficulty is in [minLevel, maxLevel].
func (c *Catalog) ByDifficulty(category string, minLevel, maxLevel int) []Concept {
	var out []Concept
	for _, con := range c.All() {
		if strings.EqualFold(con.Category, category) && con.Difficulty >= minLevel && con.Difficulty <= maxLevel {
			out = append(out, con)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Difficulty < out[j].Difficulty })
	return out
}

// Categories returns the distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	var out []string
	seen := make(map[string]bool)
	for _, con := range c.All() {
		if !seen[con.Category] {
			seen[con.Category] = true
			out = append(out, con.Category)
		}
	}
	return out
}

// Search matches query case-insensitively against titles and descriptions,
// optionally restricted to one category.
func (c *Catalog) Search(query, category string) []Concept {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Concept
	for _, con := range c.All() {
		if category != "" && !strings.EqualFold(con.Category, category) {
			continue
		}
		if strings.Contains(strings.ToLower(con.Title), q) || strings.Contains(strings.ToLower(con.Description), q) {
			out = append(out, con)
		}
	}
	return out
}

// Roots returns all concepts with no prerequisites.
func (c *Catalog) Roots() []Concept {
	var out []Concept
	for _, con := range c.All() {
		if con.IsRoot() {
			out = append(out, con)
		}
	}
	return out
}

// Prerequisites returns the direct prerequisite concepts of id.
func (c *Catalog) Prerequisites(id string) []Concept {
	c.mu.RLock()
	defer c.mu.RUnlock()
	con, ok := c.concepts[NormalizeID(id)]
	if !ok {
		return nil
	}
	return c.collect(con.Prerequisites)
}

// PrerequisiteIDs returns the direct prerequisite ids of id.
func (c *Catalog) PrerequisiteIDs(id string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	con, ok := c.concepts[NormalizeID(id)]
	if !ok {
		return nil
	}
	return slices.Clone(con.Prerequisites)
}

// Dependents returns concepts that directly require id.
func (c *Catalog) Dependents(id string) []Concept {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collect(c.dependents[NormalizeID(id)])
}

// IsUnlocked reports whether every prerequisite of id is in the mastered set.
func (c *Catalog) IsUnlocked(id string, mastered map[string]bool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	con, ok := c.concepts[NormalizeID(id)]
	if !ok {
		return false
	}
	for _, p := range con.Prerequisites {
		if !mastered[p] {
			return false
		}
	}
	return true
}

// TopologicalOrder returns concepts so that prerequisites precede dependents.
// Concepts caught in cycles are omitted and returned separately by id.
func (c *Catalog) TopologicalOrder() (ordered []Concept, cyclic []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, cyclic := c.topoOrder()
	return c.collect(ids), cyclic
}

// CategoryTree returns a category's concepts ordered by difficulty, each with
// its prerequisite summaries.
func (c *Catalog) CategoryTree(category string) []TreeEntry {
	concepts := c.ByCategory(category)
	out := make([]TreeEntry, len(concepts))
	for i, con := range concepts {
		out[i] = TreeEntry{Concept: con, Prerequisites: Summaries(c.Prerequisites(con.ID))}
	}
	return out
}

// TreeEntry pairs a concept with its resolved prerequisites.
type TreeEntry struct {
	Concept       Concept
	Prerequisites []ConceptSummary
}

// AddConcept inserts a new concept. If the id already exists the stored
// concept is returned unchanged with created=false.
func (c *Catalog) AddConcept(in Concept) (Concept, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	con := in.clone()
	con.ID = NormalizeID(con.ID)
	if con.ID == "" {
		return Concept{}, false, fmt.Errorf("%w: concept %q has no id", ErrInvalidConcept, con.Title)
	}
	if existing, ok := c.concepts[con.ID]; ok {
		return existing.clone(), false, nil
	}
	if con.Difficulty == 0 {
		con.Difficulty = MinDifficulty
	}
	if con.Difficulty < MinDifficulty || con.Difficulty > MaxDifficulty {
		return Concept{}, false, fmt.Errorf("%w: concept %q difficulty %d outside [%d, %d]", ErrInvalidConcept, con.ID, con.Difficulty, MinDifficulty, MaxDifficulty)
	}

	prereqs := make([]string, 0, len(con.Prerequisites))
	for _, raw := range con.Prerequisites {
		p := NormalizeID(raw)
		if p == con.ID {
			return Concept{}, false, ErrSelfReference
		}
		if c.concepts[p] == nil {
			return Concept{}, false, &NotFoundError{ID: p}
		}
		if !slices.Contains(prereqs, p) {
			prereqs = append(prereqs, p)
		}
	}
	con.Prerequisites = prereqs

	now := time.Now().UTC()
	if con.CreatedAt.IsZero() {
		con.CreatedAt = now
	}
	con.UpdatedAt = now

	c.concepts[con.ID] = &con
	c.order = append(c.order, con.ID)
	for _, p := range prereqs {
		c.dependents[p] = append(c.dependents[p], con.ID)
	}
	return con.clone(), true, nil
}

// Update applies a patch to an existing concept.
func (c *Catalog) Update(id string, patch ConceptPatch) (Concept, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	con, ok := c.concepts[NormalizeID(id)]
	if !ok {
		return Concept{}, &NotFoundError{ID: NormalizeID(id)}
	}
	if patch.Difficulty != nil {
		if *patch.Difficulty < MinDifficulty || *patch.Difficulty > MaxDifficulty {
			return Concept{}, fmt.Errorf("%w: concept %q difficulty %d outside [%d, %d]", ErrInvalidConcept, con.ID, *patch.Difficulty, MinDifficulty, MaxDifficulty)
		}
		con.Difficulty = *patch.Difficulty
	}
	if patch.Title != nil {
		con.Title = *patch.Title
	}
	if patch.Description != nil {
		con.Description = *patch.Description
	}
	if patch.Category != nil {
		con.Category = *patch.Category
	}
	con.UpdatedAt = time.Now().UTC()
	return con.clone(), nil
}

// AddPrerequisite makes prereqID a direct prerequisite of id. Adding an
// existing edge is a no-op. Edges that would close a cycle are rejected.
func (c *Catalog) AddPrerequisite(id, prereqID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, prereqID = NormalizeID(id), NormalizeID(prereqID)
	con, ok := c.concepts[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if _, ok := c.concepts[prereqID]; !ok {
		return &NotFoundError{ID: prereqID}
	}
	if id == prereqID {
		return ErrSelfReference
	}
	if slices.Contains(con.Prerequisites, prereqID) {
		return nil
	}
	if chain := c.reachChain(prereqID, id); chain != nil {
		return &CycleError{Chain: append([]string{id}, chain...)}
	}

	con.Prerequisites = append(con.Prerequisites, prereqID)
	con.UpdatedAt = time.Now().UTC()
	c.dependents[prereqID] = append(c.dependents[prereqID], id)
	return nil
}

// RemovePrerequisite drops the edge id -> prereqID if present.
func (c *Catalog) RemovePrerequisite(id, prereqID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, prereqID = NormalizeID(id), NormalizeID(prereqID)
	if _, ok := c.concepts[id]; !ok {
		return &NotFoundError{ID: id}
	}
	if _, ok := c.concepts[prereqID]; !ok {
		return &NotFoundError{ID: prereqID}
	}
	c.removeEdge(id, prereqID)
	return nil
}

// RemoveConcept deletes a concept after stripping it from every dependent's
// prerequisite list. It returns the ids of the dependents that were touched.
func (c *Catalog) RemoveConcept(id string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id = NormalizeID(id)
	con, ok := c.concepts[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}

	touched := slices.Clone(c.dependents[id])
	for _, dep := range touched {
		c.removeEdge(dep, id)
	}
	for _, p := range slices.Clone(con.Prerequisites) {
		c.removeEdge(id, p)
	}

	delete(c.concepts, id)
	delete(c.dependents, id)
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == id })
	return touched, nil
}

func (c *Catalog) removeEdge(id, prereqID string) bool {
	con := c.concepts[id]
	if con == nil || !slices.Contains(con.Prerequisites, prereqID) {
		return false
	}
	con.Prerequisites = slices.DeleteFunc(con.Prerequisites, func(s string) bool { return s == prereqID })
	con.UpdatedAt = time.Now().UTC()
	c.dependents[prereqID] = slices.DeleteFunc(c.dependents[prereqID], func(s string) bool { return s == id })
	return true
}

// reachChain returns the prerequisite chain from -> ... -> to, or nil when to
// is not a transitive prerequisite of from.
func (c *Catalog) reachChain(from, to string) []string {
	type frame struct {
		id   string
		next int
	}
	stack := []frame{{id: from}}
	visited := map[string]bool{from: true}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.id == to {
			chain := make([]string, len(stack))
			for i, f := range stack {
				chain[i] = f.id
			}
			return chain
		}
		prereqs := c.concepts[top.id].Prerequisites
		if top.next >= len(prereqs) {
			stack = stack[:len(stack)-1]
			continue
		}
		next := prereqs[top.next]
		top.next++
		if visited[next] || c.concepts[next] == nil {
			continue
		}
		visited[next] = true
		stack = append(stack, frame{id: next})
	}
	return nil
}

// topoOrder computes a topological order by repeated removal of zero
// in-degree nodes, seeded and broken in insertion order.
func (c *Catalog) topoOrder() (ordered, cyclic []string) {
	inDegree := make(map[string]int, len(c.concepts))
	for _, id := range c.order {
		inDegree[id] = len(c.concepts[id].Prerequisites)
	}

	var queue []string
	for _, id := range c.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	ordered = make([]string, 0, len(c.order))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		ordered = append(ordered, id)
		for _, dep := range c.dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	for _, id := range c.order {
		if inDegree[id] > 0 {
			cyclic = append(cyclic, id)
		}
	}
	return ordered, cyclic
}

func (c *Catalog) collect(ids []string) []Concept {
	out := make([]Concept, 0, len(ids))
	for _, id := range ids {
		if con, ok := c.concepts[id]; ok {
			out = append(out, con.clone())
		}
	}
	return out
}
