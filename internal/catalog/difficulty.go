package catalog

// FixRecord describes one automatic difficulty correction.
type FixRecord struct {
	ConceptID     string `json:"concept_id"`
	Title         string `json:"title"`
	OldDifficulty int    `json:"old_difficulty"`
	NewDifficulty int    `json:"new_difficulty"`
}

// ValidateAndFix raises every concept's difficulty above the highest
// difficulty among its direct prerequisites. Concepts are visited in
// topological order so one pass converges along chains of violations.
// Concepts in cycles are left untouched.
func (c *Catalog) ValidateAndFix() []FixRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateAndFix()
}

func (c *Catalog) validateAndFix() []FixRecord {
	ordered, _ := c.topoOrder()

	var fixes []FixRecord
	for _, id := range ordered {
		con := c.concepts[id]
		if len(con.Prerequisites) == 0 {
			continue
		}
		maxPrereq := 0
		for _, p := range con.Prerequisites {
			maxPrereq = max(maxPrereq, c.concepts[p].Difficulty)
		}
		if con.Difficulty > maxPrereq {
			continue
		}
		fixes = append(fixes, FixRecord{
			ConceptID:     id,
			Title:         con.Title,
			OldDifficulty: con.Difficulty,
			NewDifficulty: maxPrereq + 1,
		})
		con.Difficulty = maxPrereq + 1
	}
	return fixes
}
