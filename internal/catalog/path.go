package catalog

// ResolvePath returns the concepts needed to reach targetID, each exactly once,
// with every prerequisite ahead of its dependents and the target last.
// Edges that would revisit a concept on the current walk are skipped, so a
// corrupt catalog still yields a best-effort path.
func (c *Catalog) ResolvePath(targetID string) ([]ConceptSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	targetID = NormalizeID(targetID)
	if _, ok := c.concepts[targetID]; !ok {
		return nil, &NotFoundError{ID: targetID}
	}

	const (
		unseen = iota
		active
		emitted
	)
	type frame struct {
		id   string
		next int
	}

	state := map[string]int{targetID: active}
	stack := []frame{{id: targetID}}
	var path []ConceptSummary

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		con := c.concepts[top.id]
		if top.next >= len(con.Prerequisites) {
			state[top.id] = emitted
			path = append(path, con.Summary())
			stack = stack[:len(stack)-1]
			continue
		}
		next := con.Prerequisites[top.next]
		top.next++
		if state[next] != unseen || c.concepts[next] == nil {
			continue
		}
		state[next] = active
		stack = append(stack, frame{id: next})
	}
	return path, nil
}
