// Package brainerr defines the closed set of error kinds the core engine
// raises, each carrying the structured context the caller needs to log or
// branch on.
package brainerr

import (
	"errors"
	"fmt"
)

// Kind is a closed classification of failure modes.
type Kind string

const (
	// Transient failures are retryable: 5xx/408 from the embedding
	// service, network errors, timeouts.
	Transient Kind = "transient"
	// BadRequest covers embedding 4xx (other than 408), invalid vector
	// dimensions, chunk-count mismatches.
	BadRequest Kind = "bad_request"
	// Protocol covers malformed responses or unexpected wire schema.
	Protocol Kind = "protocol"
	// NotFound covers a missing session or note.
	NotFound Kind = "not_found"
	// InvalidStatusTransition covers a session state-machine violation.
	InvalidStatusTransition Kind = "invalid_status_transition"
	// VersionConflict covers an optimistic-lock retry exhaustion.
	VersionConflict Kind = "version_conflict"
	// SignatureInvalid covers an HMAC mismatch on session load.
	SignatureInvalid Kind = "signature_invalid"
	// AutoPauseFailed covers failure to pause a conflicting IN_PROGRESS
	// session during create/resume.
	AutoPauseFailed Kind = "auto_pause_failed"
	// Config covers a configuration resolution failure (missing secret,
	// invalid range).
	Config Kind = "config"
)

// Error is the typed error carried through the core engine. Fields is a
// free-form structured context bag logged alongside the error (note ID,
// elapsed/deadline ms, expected/actual version, etc.).
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the error kind is, by definition, retryable.
func (e *Error) Retryable() bool { return e.Kind == Transient }

// New constructs an Error with the given kind and message.
func New(kind Kind, message string, fields map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Fields: fields}
}

// Wrap constructs an Error wrapping cause.
func Wrap(kind Kind, message string, cause error, fields map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Fields: fields, Cause: cause}
}

// Is reports whether err (or something it wraps) is a *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and ok=true.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
