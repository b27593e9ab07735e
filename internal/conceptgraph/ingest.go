package conceptgraph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/extraction"
	"github.com/abhisek/conceptree/internal/interpolate"
	"github.com/abhisek/conceptree/internal/metrics"
)

// IngestRequest is the input of Ingest. Category is an optional hint.
type IngestRequest struct {
	Text     string `json:"text" binding:"required"`
	Category string `json:"category"`
}

// EstablishedRelationship is a prerequisite edge created by an ingest.
type EstablishedRelationship struct {
	ConceptID    string `json:"concept"`
	Prerequisite string `json:"prerequisite"`
	Reason       string `json:"reason,omitempty"`
}

// IngestReport describes what an ingest changed.
type IngestReport struct {
	Category      string                    `json:"category"`
	Created       []catalog.ConceptSummary  `json:"created_concepts"`
	Existing      []string                  `json:"existing_concepts,omitempty"`
	Interpolated  []string                  `json:"interpolated_concepts"`
	Relationships []EstablishedRelationship `json:"established_relationships"`
	Skipped       []string                  `json:"skipped,omitempty"`
	Validation    catalog.ValidationReport  `json:"validation"`
	Summary       string                    `json:"summary"`
	LearningPath  string                    `json:"learning_path"`
}

// Ingest runs IngestWith using the configured extractor.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestReport, error) {
	return s.IngestWith(ctx, s.extractor, req)
}

// IngestWith runs the ingest pipeline with an explicit extractor: extract,
// interpolate missing foundations, create fundamentals before dependents,
// match relationships by title, validate and persist.
func (s *Service) IngestWith(ctx context.Context, ex extraction.Extractor, req IngestRequest) (*IngestReport, error) {
	if ex == nil {
		return nil, ErrNoExtractor
	}
	res, err := ex.Extract(ctx, req.Text, req.Category)
	if err != nil {
		return nil, err
	}

	category := firstNonEmpty(res.Category, strings.TrimSpace(req.Category))
	if category == "" {
		category = interpolate.InferCategory(req.Text)
	}

	report := &IngestReport{
		Category:     category,
		Skipped:      slices.Clone(res.Skipped),
		Summary:      res.Summary,
		LearningPath: res.LearningPath,
	}

	extractedTitles := make(map[string]bool, len(res.Concepts))
	for _, d := range res.Concepts {
		extractedTitles[titleKey(d.Title)] = true
	}
	drafts := s.interp.Interpolate(res.Concepts)
	for _, d := range drafts {
		if !extractedTitles[titleKey(d.Title)] {
			report.Interpolated = append(report.Interpolated, d.Title)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	byTitle := make(map[string]string, len(drafts))
	create := func(d catalog.ConceptDraft) {
		con, created, err := s.catalog.AddConcept(catalog.Concept{
			ID:          d.ID,
			Title:       strings.TrimSpace(d.Title),
			Description: d.Description,
			Category:    category,
			Difficulty:  clampDifficulty(d.Difficulty),
			Fundamental: d.Fundamental,
		})
		if err != nil {
			s.log.Warn("could not create concept", "title", d.Title, "error", err)
			report.Skipped = append(report.Skipped, fmt.Sprintf("concept %q: %v", d.Title, err))
			return
		}
		byTitle[titleKey(d.Title)] = con.ID
		if created {
			report.Created = append(report.Created, con.Summary())
		} else {
			report.Existing = append(report.Existing, con.ID)
		}
	}
	for _, d := range drafts {
		if d.Fundamental {
			create(d)
		}
	}
	for _, d := range drafts {
		if !d.Fundamental {
			create(d)
		}
	}

	for _, rel := range res.Relationships {
		id, ok := s.resolveTitle(byTitle, rel.Concept)
		if !ok {
			report.Skipped = append(report.Skipped, fmt.Sprintf("relationship %q -> %q: unknown concept", rel.Concept, rel.Prerequisite))
			continue
		}
		prereq, ok := s.resolveTitle(byTitle, rel.Prerequisite)
		if !ok {
			report.Skipped = append(report.Skipped, fmt.Sprintf("relationship %q -> %q: unknown prerequisite", rel.Concept, rel.Prerequisite))
			continue
		}
		if slices.Contains(s.catalog.PrerequisiteIDs(id), prereq) {
			continue
		}
		if err := s.catalog.AddPrerequisite(id, prereq); err != nil {
			if errors.Is(err, catalog.ErrCycle) || errors.Is(err, catalog.ErrSelfReference) {
				s.log.Warn("skipping relationship", "concept_id", id, "prerequisite_id", prereq, "error", err)
			}
			report.Skipped = append(report.Skipped, fmt.Sprintf("relationship %q -> %q: %v", rel.Concept, rel.Prerequisite, err))
			continue
		}
		report.Relationships = append(report.Relationships, EstablishedRelationship{
			ConceptID:    id,
			Prerequisite: prereq,
			Reason:       rel.Reason,
		})
	}

	report.Validation, err = s.commitLocked(ctx, true)
	if err != nil {
		return nil, err
	}

	metrics.RecordIngest(len(drafts)-len(report.Interpolated), len(report.Interpolated))
	s.log.Info("ingest complete",
		"category", category,
		"created", len(report.Created),
		"interpolated", len(report.Interpolated),
		"relationships", len(report.Relationships),
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// resolveTitle finds a concept by title within the batch, falling back to
// a catalog concept whose id is derived from the same title.
func (s *Service) resolveTitle(byTitle map[string]string, title string) (string, bool) {
	if id, ok := byTitle[titleKey(title)]; ok {
		return id, true
	}
	id := interpolate.GenerateID(title)
	if id != "" && s.catalog.Has(id) {
		return id, true
	}
	return "", false
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func clampDifficulty(d int) int {
	return min(max(d, catalog.MinDifficulty), catalog.MaxDifficulty)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
