package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrRateLimited     = errors.New("llm rate limited")
	ErrInvalidResponse = errors.New("invalid llm response")
	ErrUnavailable     = errors.New("llm provider unavailable")
	ErrRejected        = errors.New("llm request rejected")
	ErrTruncated       = errors.New("llm response truncated")
)

// RateLimitError is returned for HTTP 429 responses.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error        { return e.Err }
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// InvalidResponseError is returned when the model output is empty, is not
// JSON, or does not satisfy the request schema.
type InvalidResponseError struct {
	Schema  string
	Content json.RawMessage
	Err     error
}

func (e *InvalidResponseError) Error() string {
	if e.Schema != "" {
		return fmt.Sprintf("invalid LLM response for %s: %v", e.Schema, e.Err)
	}
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *InvalidResponseError) Unwrap() error        { return e.Err }
func (e *InvalidResponseError) Is(target error) bool { return target == ErrInvalidResponse }

// UnavailableError covers network failures and 5xx responses.
type UnavailableError struct {
	Provider string
	Err      error
}

func (e *UnavailableError) Error() string {
	name := e.Provider
	if name == "" {
		name = "LLM provider"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", name, e.Err)
	}
	return name + " unavailable"
}

func (e *UnavailableError) Unwrap() error        { return e.Err }
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// RejectedError is a 4xx response other than 429: bad key, unknown model,
// malformed request. Retrying cannot help.
type RejectedError struct {
	Provider string
	Status   int
	Err      error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected request (HTTP %d): %v", e.Provider, e.Status, e.Err)
}

func (e *RejectedError) Unwrap() error        { return e.Err }
func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// TruncatedError is returned when generation stopped at MaxTokens.
type TruncatedError struct {
	Content json.RawMessage
}

func (e *TruncatedError) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

func (e *TruncatedError) Is(target error) bool { return target == ErrTruncated }

// statusError classifies an SDK error by its HTTP status. A zero status
// means the request never got a response.
func statusError(provider string, status int, retryAfter string, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(retryAfter), Err: err}
	case status >= 400 && status < 500:
		return &RejectedError{Provider: provider, Status: status, Err: err}
	}
	return &UnavailableError{Provider: provider, Err: err}
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// retryClass says whether err may succeed on another attempt. Invalid
// responses are reported separately because they get a single retry.
func retryClass(err error) (retry, invalid bool) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false, false
	case errors.Is(err, ErrTruncated), errors.Is(err, ErrRejected):
		return false, false
	case errors.Is(err, ErrInvalidResponse):
		return true, true
	}
	return true, false
}
