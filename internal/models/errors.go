package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies user-visible failures so handlers can map them to
// HTTP statuses without string matching.
type ErrorKind string

const (
	// ErrValidation marks a malformed request. Never retried.
	ErrValidation ErrorKind = "validation"

	// ErrCapacity marks a storage ceiling or pool exhaustion. Surfaced to the
	// caller rather than silently retried.
	ErrCapacity ErrorKind = "capacity"

	// ErrUpstreamUnavailable marks an unreachable external collaborator after
	// bounded retries at the call site.
	ErrUpstreamUnavailable ErrorKind = "upstream_unavailable"

	// ErrGroundingViolation is internal only: the generated answer asserted
	// content not traceable to supplied chunks. Triggers the one-shot stricter
	// retry and is never surfaced directly.
	ErrGroundingViolation ErrorKind = "grounding_violation"

	// ErrIngestionConflict marks concurrent re-ingestion of the same book.
	// Rejected, not queued.
	ErrIngestionConflict ErrorKind = "ingestion_conflict"
)

// Error is a structured error with a kind and a human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a structured error of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a structured error that wraps an underlying cause.
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf returns the error kind, or empty string for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
