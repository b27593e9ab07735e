package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/conceptgraph"
	"github.com/abhisek/conceptree/internal/extraction"
	"github.com/abhisek/conceptree/internal/mastery"
)

// APIError is the error body of every failed request.
type APIError struct {
	Message              string         `json:"message"`
	Code                 string         `json:"code,omitempty"`
	Status               mastery.Status `json:"status,omitempty"`
	MissingPrerequisites []string       `json:"missing_prerequisites,omitempty"`
	Chain                []string       `json:"chain,omitempty"`
}

// ErrorEnvelope wraps an APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// badRequest marks request decoding failures.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func (s *Server) respondError(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "request_id", c.GetString("request_id"), "route", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

func classify(err error) (int, APIError) {
	body := APIError{Message: err.Error()}

	var na *mastery.NotAvailableError
	var ce *catalog.CycleError
	var br badRequest
	switch {
	case errors.As(err, &na):
		body.Code = "not_available"
		body.Status = na.Status
		body.MissingPrerequisites = na.MissingPrerequisites
		return http.StatusConflict, body
	case errors.Is(err, catalog.ErrNotFound):
		body.Code = "not_found"
		return http.StatusNotFound, body
	case errors.As(err, &ce):
		body.Code = "cycle"
		body.Chain = ce.Chain
		return http.StatusConflict, body
	case errors.Is(err, mastery.ErrConflict):
		body.Code = "conflict"
		return http.StatusConflict, body
	case errors.As(err, &br),
		errors.Is(err, mastery.ErrInvalidScore),
		errors.Is(err, catalog.ErrSelfReference),
		errors.Is(err, catalog.ErrInvalidConcept),
		errors.Is(err, conceptgraph.ErrExplanationTooShort),
		errors.Is(err, conceptgraph.ErrUnsupportedVersion),
		errors.Is(err, extraction.ErrEmptyInput):
		body.Code = "invalid_request"
		return http.StatusBadRequest, body
	case errors.Is(err, conceptgraph.ErrNoExtractor):
		body.Code = "unavailable"
		return http.StatusServiceUnavailable, body
	}
	body.Code = "internal"
	return http.StatusInternalServerError, body
}
