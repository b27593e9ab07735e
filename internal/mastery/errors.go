package mastery

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotAvailable is matched by every NotAvailableError.
	ErrNotAvailable = errors.New("concept not available")

	// ErrInvalidScore is returned for scores outside [0, 100].
	ErrInvalidScore = errors.New("score must be between 0 and 100")

	// ErrConflict is returned when concurrent updates to a learner exhaust
	// the retry budget.
	ErrConflict = errors.New("learner state changed concurrently")
)

// NotAvailableError reports an attempt on a concept whose prerequisites the
// learner has not mastered yet.
type NotAvailableError struct {
	ConceptID            string
	Status               Status
	MissingPrerequisites []string
}

func (e *NotAvailableError) Error() string {
	if len(e.MissingPrerequisites) == 0 {
		return fmt.Sprintf("concept %q is %s", e.ConceptID, e.Status)
	}
	return fmt.Sprintf("concept %q is %s: master %s first", e.ConceptID, e.Status, strings.Join(e.MissingPrerequisites, ", "))
}

func (e *NotAvailableError) Is(target error) bool { return target == ErrNotAvailable }
