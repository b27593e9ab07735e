// Package conceptgraph ties the concept catalog, per-learner mastery and the
// extraction and verification collaborators into one engine.
package conceptgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/extraction"
	"github.com/abhisek/conceptree/internal/interpolate"
	"github.com/abhisek/conceptree/internal/logger"
	"github.com/abhisek/conceptree/internal/mastery"
	"github.com/abhisek/conceptree/internal/metrics"
	"github.com/abhisek/conceptree/internal/scoring"
	"github.com/abhisek/conceptree/internal/store"
)

var (
	// ErrExplanationTooShort is returned for explanations below the minimum length.
	ErrExplanationTooShort = errors.New("explanation is too short")

	// ErrNoExtractor is returned by Ingest when no extractor is configured.
	ErrNoExtractor = errors.New("no extractor configured")
)

// Deps are the collaborators of a Service. Only CatalogRepo and LearnerRepo
// are required.
type Deps struct {
	CatalogRepo store.CatalogRepo
	LearnerRepo store.LearnerRepo
	EventRepo   store.EventRepo
	Extractor   extraction.Extractor
	Verifier    scoring.Verifier
	Logger      *logger.Logger
}

// Service is the engine's public surface.
type Service struct {
	cfg         Config
	catalog     *catalog.Catalog
	catalogRepo store.CatalogRepo
	mastery     *mastery.Service
	interp      *interpolate.Interpolator
	extractor   extraction.Extractor
	verifier    scoring.Verifier
	log         *logger.Logger

	// writeMu serializes catalog mutations with their persistence.
	writeMu sync.Mutex
}

// New loads the catalog and builds a Service. Integrity issues found while
// loading are logged and returned; they never fail construction.
func New(ctx context.Context, cfg Config, deps Deps) (*Service, []catalog.Issue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if deps.CatalogRepo == nil || deps.LearnerRepo == nil {
		return nil, nil, errors.New("catalog and learner repositories are required")
	}
	log := logger.OrNop(deps.Logger)

	concepts, err := deps.CatalogRepo.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	cat, issues := catalog.New(concepts)
	for _, is := range issues {
		log.Warn("catalog integrity issue", "kind", is.Kind, "concept_id", is.ConceptID, "message", is.Message)
		metrics.RecordCatalogIssue(string(is.Kind))
	}
	metrics.SetCatalogSize(cat.Len())

	rules, err := interpolate.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, nil, err
	}

	verifier := deps.Verifier
	if verifier == nil {
		if cfg.ScoreSeed != nil {
			verifier = scoring.NewSeededHeuristic(*cfg.ScoreSeed)
		} else {
			verifier = scoring.NewHeuristic(nil)
		}
	}

	opts := []mastery.Option{
		mastery.WithLogger(log),
		mastery.WithMaxRetries(cfg.MaxCASRetries),
	}
	if deps.EventRepo != nil {
		opts = append(opts, mastery.WithEventRepo(deps.EventRepo))
	}

	s := &Service{
		cfg:         cfg,
		catalog:     cat,
		catalogRepo: deps.CatalogRepo,
		mastery:     mastery.NewService(cat, deps.LearnerRepo, opts...),
		interp:      interpolate.New(rules, log),
		extractor:   deps.Extractor,
		verifier:    verifier,
		log:         log,
	}
	return s, issues, nil
}

// Catalog returns the shared concept catalog.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Mastery returns the learner mastery service.
func (s *Service) Mastery() *mastery.Service {
	return s.mastery
}

// GetConcept returns a concept by id.
func (s *Service) GetConcept(id string) (catalog.Concept, error) {
	return s.catalog.Get(id)
}

// GetAvailableConcepts returns the concepts a learner can attempt now.
func (s *Service) GetAvailableConcepts(ctx context.Context, learnerID string) ([]catalog.Concept, error) {
	return s.mastery.Available(ctx, learnerID)
}

// GetLearningPath returns the prerequisite-first path to targetID.
func (s *Service) GetLearningPath(targetID string) ([]catalog.ConceptSummary, error) {
	return s.catalog.ResolvePath(targetID)
}

// PathStep is one concept on a learner's path with its current status.
type PathStep struct {
	catalog.ConceptSummary
	Status    mastery.Status `json:"status"`
	BestScore *int           `json:"best_score,omitempty"`
}

// GetLearnerPath resolves the path to targetID annotated with the learner's
// status on each step.
func (s *Service) GetLearnerPath(ctx context.Context, learnerID, targetID string) ([]PathStep, error) {
	path, err := s.catalog.ResolvePath(targetID)
	if err != nil {
		return nil, err
	}
	states, err := s.mastery.States(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]mastery.ConceptState, len(states))
	for _, st := range states {
		byID[st.ConceptID] = st
	}
	steps := make([]PathStep, len(path))
	for i, p := range path {
		st := byID[p.ID]
		steps[i] = PathStep{ConceptSummary: p, Status: st.Status, BestScore: st.BestScore}
	}
	return steps, nil
}

// RecordScore applies a score to a learner's concept.
func (s *Service) RecordScore(ctx context.Context, learnerID, conceptID string, score int) (*mastery.UnlockResult, error) {
	res, err := s.mastery.RecordScore(ctx, learnerID, conceptID, score)
	if err != nil {
		return nil, err
	}
	metrics.RecordScore(string(res.Outcome), len(res.Unlocked))
	return res, nil
}

// ExplanationResult pairs the verifier's verdict with the resulting
// mastery update.
type ExplanationResult struct {
	Verdict *scoring.Verdict      `json:"verification"`
	Result  *mastery.UnlockResult `json:"result"`
}

// SubmitExplanation grades an explanation and records the score. Locked
// concepts are rejected before the verifier is called.
func (s *Service) SubmitExplanation(ctx context.Context, learnerID, conceptID, explanation string) (*ExplanationResult, error) {
	explanation = strings.TrimSpace(explanation)
	if len([]rune(explanation)) < s.cfg.MinExplanationLength {
		return nil, fmt.Errorf("%w: at least %d characters required", ErrExplanationTooShort, s.cfg.MinExplanationLength)
	}

	con, err := s.catalog.Get(conceptID)
	if err != nil {
		return nil, err
	}
	st, err := s.mastery.State(ctx, learnerID, con.ID)
	if err != nil {
		return nil, err
	}
	if st.Status == mastery.StatusLocked {
		return nil, &mastery.NotAvailableError{ConceptID: con.ID, Status: st.Status}
	}

	verdict, err := s.verifier.Verify(ctx, scoring.Submission{
		ConceptID:   con.ID,
		Title:       con.Title,
		Description: con.Description,
		Explanation: explanation,
	})
	if err != nil {
		return nil, fmt.Errorf("verify explanation: %w", err)
	}

	res, err := s.RecordScore(ctx, learnerID, con.ID, verdict.Score)
	if err != nil {
		return nil, err
	}
	return &ExplanationResult{Verdict: verdict, Result: res}, nil
}

// LearnerStates returns every concept state of a learner.
func (s *Service) LearnerStates(ctx context.Context, learnerID string) ([]mastery.ConceptState, error) {
	return s.mastery.States(ctx, learnerID)
}

// Stats summarizes a learner's progress.
func (s *Service) Stats(ctx context.Context, learnerID string) (mastery.Stats, error) {
	return s.mastery.Stats(ctx, learnerID)
}

// ExportLearner snapshots a learner's progress.
func (s *Service) ExportLearner(ctx context.Context, learnerID string) (*mastery.LearnerExport, error) {
	return s.mastery.Export(ctx, learnerID)
}

// ImportLearner restores a learner's progress from an export.
func (s *Service) ImportLearner(ctx context.Context, learnerID string, data *mastery.LearnerExport) (*mastery.ImportResult, error) {
	return s.mastery.Import(ctx, learnerID, data)
}

// ResetLearner resets one concept, or every concept when conceptID is empty.
func (s *Service) ResetLearner(ctx context.Context, learnerID, conceptID string) ([]mastery.StateTransition, error) {
	return s.mastery.Reset(ctx, learnerID, conceptID)
}

// ValidateCatalog runs a full integrity pass, repairing what it can, and
// persists the repaired catalog.
func (s *Service) ValidateCatalog(ctx context.Context) (catalog.ValidationReport, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.validateLocked(ctx)
}

func (s *Service) validateLocked(ctx context.Context) (catalog.ValidationReport, error) {
	report := s.checkLocked()
	if len(report.Fixes) == 0 && len(report.RemovedEdges) == 0 {
		return report, nil
	}
	if err := s.persistLocked(ctx); err != nil {
		return report, err
	}
	if len(report.RemovedEdges) > 0 {
		if err := s.reconcileAll(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

// checkLocked runs the integrity pass over the in-memory catalog and
// records what it found.
func (s *Service) checkLocked() catalog.ValidationReport {
	report := s.catalog.Validate()
	for _, is := range report.Issues {
		s.log.Warn("catalog integrity issue", "kind", is.Kind, "concept_id", is.ConceptID, "message", is.Message)
		metrics.RecordCatalogIssue(string(is.Kind))
	}
	metrics.RecordDifficultyFixes(len(report.Fixes))
	return report
}

// commitLocked validates a mutated catalog and persists it. Learners are
// reconciled when edges changed.
func (s *Service) commitLocked(ctx context.Context, edgesChanged bool) (catalog.ValidationReport, error) {
	report := s.checkLocked()
	if err := s.persistLocked(ctx); err != nil {
		return report, err
	}
	if edgesChanged || len(report.RemovedEdges) > 0 {
		if err := s.reconcileAll(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

// AddConcept inserts a concept. An existing id returns the stored concept
// with created=false.
func (s *Service) AddConcept(ctx context.Context, in catalog.Concept) (catalog.Concept, bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	con, created, err := s.catalog.AddConcept(in)
	if err != nil || !created {
		return con, created, err
	}
	if _, err := s.commitLocked(ctx, len(con.Prerequisites) > 0); err != nil {
		return con, created, err
	}
	con, err = s.catalog.Get(con.ID)
	return con, true, err
}

// UpdateConcept applies a patch to a concept.
func (s *Service) UpdateConcept(ctx context.Context, id string, patch catalog.ConceptPatch) (catalog.Concept, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	con, err := s.catalog.Update(id, patch)
	if err != nil {
		return catalog.Concept{}, err
	}
	if _, err := s.commitLocked(ctx, false); err != nil {
		return catalog.Concept{}, err
	}
	return s.catalog.Get(con.ID)
}

// AddPrerequisite adds an edge and re-locks learners who no longer qualify.
func (s *Service) AddPrerequisite(ctx context.Context, id, prereqID string) error {
	return s.mutateEdges(ctx, func() error { return s.catalog.AddPrerequisite(id, prereqID) })
}

// RemovePrerequisite drops an edge and unlocks learners who now qualify.
func (s *Service) RemovePrerequisite(ctx context.Context, id, prereqID string) error {
	return s.mutateEdges(ctx, func() error { return s.catalog.RemovePrerequisite(id, prereqID) })
}

// RemoveConcept deletes a concept and returns the dependents that lost it
// as a prerequisite.
func (s *Service) RemoveConcept(ctx context.Context, id string) ([]string, error) {
	var touched []string
	err := s.mutateEdges(ctx, func() error {
		var err error
		touched, err = s.catalog.RemoveConcept(id)
		return err
	})
	return touched, err
}

func (s *Service) mutateEdges(ctx context.Context, fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := fn(); err != nil {
		return err
	}
	_, err := s.commitLocked(ctx, true)
	return err
}

func (s *Service) persistLocked(ctx context.Context) error {
	if err := s.catalogRepo.Replace(ctx, s.catalog.All()); err != nil {
		return fmt.Errorf("persist catalog: %w", err)
	}
	metrics.SetCatalogSize(s.catalog.Len())
	return nil
}

func (s *Service) reconcileAll(ctx context.Context) error {
	n, err := s.mastery.ReconcileAll(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("learner states reconciled", "transitions", n)
	}
	return nil
}
