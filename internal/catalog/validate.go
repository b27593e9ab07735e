package catalog

import (
	"fmt"
	"strings"
)

// IssueKind classifies a catalog integrity finding.
type IssueKind string

const (
	IssueInvalidConcept       IssueKind = "invalid_concept"
	IssueDuplicateID          IssueKind = "duplicate_id"
	IssueDanglingPrerequisite IssueKind = "dangling_prerequisite"
	IssueSelfReference        IssueKind = "self_reference"
	IssueCycleDetected        IssueKind = "circular_dependency"
	IssueInvalidDifficulty    IssueKind = "invalid_difficulty"
	IssueDifficultyOverflow   IssueKind = "difficulty_overflow"
)

// Issue is a structured integrity warning. Issues never abort a query.
type Issue struct {
	Kind      IssueKind `json:"type"`
	ConceptID string    `json:"concept_id,omitempty"`
	Message   string    `json:"message"`
	Chain     []string  `json:"chain,omitempty"`
}

// Edge is a single prerequisite relation: ConceptID requires Prerequisite.
type Edge struct {
	ConceptID    string `json:"concept_id"`
	Prerequisite string `json:"prerequisite_id"`
}

// Validation statuses.
const (
	StatusPassed    = "passed"
	StatusHasIssues = "has_issues"
)

// ValidationReport summarizes a full catalog validation pass.
type ValidationReport struct {
	TotalConcepts int         `json:"total_concepts"`
	Issues        []Issue     `json:"issues"`
	Fixes         []FixRecord `json:"fixes"`
	RemovedEdges  []Edge      `json:"removed_edges,omitempty"`
	Status        string      `json:"validation_status"`
}

// HasIssues reports whether the pass found anything to warn about or fix.
func (r ValidationReport) HasIssues() bool {
	return len(r.Issues) > 0 || len(r.Fixes) > 0
}

// Validate breaks every prerequisite cycle by removing the edge that closes
// it, then raises difficulties along prerequisite edges. Afterwards no
// concept transitively requires itself.
func (c *Catalog) Validate() ValidationReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := ValidationReport{TotalConcepts: len(c.order)}

	for _, id := range c.order {
		for {
			found, chain := c.detectCycle(id)
			if !found {
				break
			}
			from, to := chain[len(chain)-2], chain[len(chain)-1]
			c.removeEdge(from, to)
			report.RemovedEdges = append(report.RemovedEdges, Edge{ConceptID: from, Prerequisite: to})
			report.Issues = append(report.Issues, Issue{
				Kind:      IssueCycleDetected,
				ConceptID: id,
				Message:   fmt.Sprintf("circular dependency %s; removed %s -> %s", strings.Join(chain, " -> "), from, to),
				Chain:     chain,
			})
		}
	}

	report.Fixes = c.validateAndFix()
	for _, f := range report.Fixes {
		if f.NewDifficulty > MaxDifficulty {
			report.Issues = append(report.Issues, Issue{
				Kind:      IssueDifficultyOverflow,
				ConceptID: f.ConceptID,
				Message:   fmt.Sprintf("difficulty raised to %d, above the %d ceiling", f.NewDifficulty, MaxDifficulty),
			})
		}
	}

	report.Status = StatusPassed
	if report.HasIssues() {
		report.Status = StatusHasIssues
	}
	return report
}
