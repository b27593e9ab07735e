package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abhisek/conceptree/internal/catalog"
)

// MemLearnerRepo is an in-process LearnerRepo with the same version
// semantics as the SQLite repo. Used when no database is configured.
type MemLearnerRepo struct {
	mu      sync.Mutex
	records map[string]*LearnerRecord
}

// NewMemLearnerRepo returns an empty in-memory learner repo.
func NewMemLearnerRepo() *MemLearnerRepo {
	return &MemLearnerRepo{records: make(map[string]*LearnerRecord)}
}

func (m *MemLearnerRepo) Load(_ context.Context, learnerID string) (*LearnerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[learnerID]; ok {
		return rec.Clone(), nil
	}
	return NewLearnerRecord(learnerID), nil
}

func (m *MemLearnerRepo) Save(_ context.Context, rec *LearnerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	if stored, ok := m.records[rec.LearnerID]; ok {
		current = stored.Version
	}
	if current != rec.Version {
		return ErrVersionConflict
	}
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	m.records[rec.LearnerID] = rec.Clone()
	return nil
}

func (m *MemLearnerRepo) Learners(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// MemCatalogRepo is an in-process CatalogRepo.
type MemCatalogRepo struct {
	mu       sync.Mutex
	concepts []catalog.Concept
}

// NewMemCatalogRepo returns a catalog repo seeded with concepts.
func NewMemCatalogRepo(concepts ...catalog.Concept) *MemCatalogRepo {
	return &MemCatalogRepo{concepts: concepts}
}

func (m *MemCatalogRepo) Load(_ context.Context) ([]catalog.Concept, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]catalog.Concept, len(m.concepts))
	copy(out, m.concepts)
	return out, nil
}

func (m *MemCatalogRepo) Replace(_ context.Context, concepts []catalog.Concept) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.concepts = make([]catalog.Concept, len(concepts))
	copy(m.concepts, concepts)
	return nil
}
