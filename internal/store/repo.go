package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/conceptree/internal/catalog"
)

// ErrVersionConflict is returned by LearnerRepo.Save when the stored version
// no longer matches the version the record was loaded at.
var ErrVersionConflict = errors.New("learner record version conflict")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// CatalogRepo persists the shared concept catalog.
type CatalogRepo interface {
	// Load returns all concepts in insertion order with prerequisites resolved.
	Load(ctx context.Context) ([]catalog.Concept, error)

	// Replace atomically overwrites the stored catalog.
	Replace(ctx context.Context, concepts []catalog.Concept) error
}

// ConceptStateData is the persisted mastery state of one concept for one learner.
type ConceptStateData struct {
	ConceptID  string
	Status     string
	BestScore  *int
	Attempts   int
	MasteredAt *time.Time
}

// LearnerRecord is a learner's complete mastery state. Version is the
// optimistic concurrency token: zero for a learner never saved.
type LearnerRecord struct {
	LearnerID string
	Version   int64
	States    map[string]*ConceptStateData
	UpdatedAt time.Time
}

// NewLearnerRecord returns an empty, unsaved record.
func NewLearnerRecord(learnerID string) *LearnerRecord {
	return &LearnerRecord{LearnerID: learnerID, States: make(map[string]*ConceptStateData)}
}

// Clone returns a deep copy of the record.
func (r *LearnerRecord) Clone() *LearnerRecord {
	out := &LearnerRecord{
		LearnerID: r.LearnerID,
		Version:   r.Version,
		UpdatedAt: r.UpdatedAt,
		States:    make(map[string]*ConceptStateData, len(r.States)),
	}
	for id, st := range r.States {
		cp := *st
		if st.BestScore != nil {
			v := *st.BestScore
			cp.BestScore = &v
		}
		if st.MasteredAt != nil {
			t := *st.MasteredAt
			cp.MasteredAt = &t
		}
		out.States[id] = &cp
	}
	return out
}

// LearnerRepo persists per-learner mastery records.
type LearnerRepo interface {
	// Load returns the learner's record, or an empty record at version 0.
	Load(ctx context.Context, learnerID string) (*LearnerRecord, error)

	// Save writes rec if the stored version still equals rec.Version and
	// then increments rec.Version. Otherwise it returns ErrVersionConflict.
	Save(ctx context.Context, rec *LearnerRecord) error

	// Learners lists every stored learner id.
	Learners(ctx context.Context) ([]string, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// AttemptEventData captures one scoring attempt against a concept.
type AttemptEventData struct {
	AttemptID  string
	LearnerID  string
	ConceptID  string
	Score      int
	Outcome    string
	FromStatus string
	ToStatus   string
	Unlocked   []string
}

// MasteryEventData captures one mastery status transition.
type MasteryEventData struct {
	LearnerID  string
	ConceptID  string
	FromStatus string
	ToStatus   string
	Trigger    string
}

// EventRepo provides append access to domain events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// AppendAttemptEvent records a scoring attempt.
	AppendAttemptEvent(ctx context.Context, data AttemptEventData) error

	// AppendMasteryEvent records a status transition.
	AppendMasteryEvent(ctx context.Context, data MasteryEventData) error
}
