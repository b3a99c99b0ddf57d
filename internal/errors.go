package internal

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind partitions upstream failures by how the reconciler must
// react: auth failures invalidate identity and can abort setup, not
// found is often a meaningful answer rather than a failure, rate
// limited and transient are retryable, inconsistent state is a hard
// data problem that retrying will not fix.
type ErrorKind string

const (
	ErrAuth              ErrorKind = "auth"
	ErrNotFound          ErrorKind = "not_found"
	ErrRateLimited       ErrorKind = "rate_limited"
	ErrTransient         ErrorKind = "transient"
	ErrInconsistentState ErrorKind = "inconsistent_state"
)

// APIError carries the kind, the HTTP status when one was received,
// and the underlying cause.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func NewAuthError(message string) *APIError {
	return &APIError{Kind: ErrAuth, Message: message}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{Kind: ErrNotFound, Message: message}
}

func NewRateLimitError(message string) *APIError {
	return &APIError{Kind: ErrRateLimited, Message: message}
}

func NewTransientError(message string, err error) *APIError {
	return &APIError{Kind: ErrTransient, Message: message, Err: err}
}

func NewInconsistentStateError(message string) *APIError {
	return &APIError{Kind: ErrInconsistentState, Message: message}
}

// classifyStatus maps a non-200 Riot response to an error kind. The
// body is already truncated by the caller and kept only for the
// message.
func classifyStatus(status int, body string) *APIError {
	kind := ErrTransient
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrAuth
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusTooManyRequests:
		kind = ErrRateLimited
	}
	return &APIError{Kind: kind, Status: status, Message: body}
}

func hasKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func IsAuthError(err error) bool {
	return hasKind(err, ErrAuth)
}

func IsNotFoundError(err error) bool {
	return hasKind(err, ErrNotFound)
}

func IsRateLimitError(err error) bool {
	return hasKind(err, ErrRateLimited)
}

func IsTransientError(err error) bool {
	return hasKind(err, ErrTransient)
}

func IsInconsistentError(err error) bool {
	return hasKind(err, ErrInconsistentState)
}

// isRetryable reports whether another immediate attempt can plausibly
// succeed.
func isRetryable(err error) bool {
	return IsRateLimitError(err) || IsTransientError(err)
}
