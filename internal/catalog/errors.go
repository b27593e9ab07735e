package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("concept not found")

	// ErrSelfReference is returned when a concept is made its own prerequisite.
	ErrSelfReference = errors.New("concept cannot be its own prerequisite")

	// ErrInvalidConcept is returned for concepts that fail field checks.
	ErrInvalidConcept = errors.New("invalid concept")

	// ErrCycle is matched by every CycleError.
	ErrCycle = errors.New("prerequisite cycle")
)

// NotFoundError reports an unknown concept id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("concept not found: %q", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// CycleError reports that an edge would close a prerequisite cycle.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("prerequisite cycle: %s", strings.Join(e.Chain, " -> "))
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }
