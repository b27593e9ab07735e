package catalog

// DetectCycle walks prerequisite edges depth-first from startID and reports
// whether it reaches a node already on the current path. The returned chain
// is the path walked, ending with the repeated node, so a cycle through
// startID has startID at both ends. An unknown startID reports no cycle.
func (c *Catalog) DetectCycle(startID string) (bool, []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.detectCycle(NormalizeID(startID))
}

func (c *Catalog) detectCycle(startID string) (bool, []string) {
	if _, ok := c.concepts[startID]; !ok {
		return false, nil
	}

	type frame struct {
		id   string
		next int
	}
	stack := []frame{{id: startID}}
	onPath := map[string]bool{startID: true}
	done := make(map[string]bool)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		prereqs := c.concepts[top.id].Prerequisites
		if top.next >= len(prereqs) {
			onPath[top.id] = false
			done[top.id] = true
			stack = stack[:len(stack)-1]
			continue
		}
		next := prereqs[top.next]
		top.next++

		if onPath[next] {
			chain := make([]string, 0, len(stack)+1)
			for _, f := range stack {
				chain = append(chain, f.id)
			}
			return true, append(chain, next)
		}
		if done[next] || c.concepts[next] == nil {
			continue
		}
		onPath[next] = true
		stack = append(stack, frame{id: next})
	}
	return false, nil
}
