// Package feederr defines the error taxonomy shared by the ingestion core and
// the HTTP boundary. Collaborator errors are re-wrapped into one of these
// kinds before crossing the core's public interface.
package feederr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	FetchFailed
	Timeout
	ParseFailed
	UpstreamError
	MissingCredential
	Unauthorized
	NotFound
	Conflict
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case FetchFailed:
		return "fetch_failed"
	case Timeout:
		return "timeout"
	case ParseFailed:
		return "parse_failed"
	case UpstreamError:
		return "upstream_error"
	case MissingCredential:
		return "missing_credential"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error carries a kind, a human-readable message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a taxonomy error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a taxonomy error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to a cause. A nil cause yields nil.
func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, defaulting to Internal for errors that
// never passed through the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return Internal
}

// MessageOf extracts the human-readable message from err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}

	return "internal error"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}

	return false
}
