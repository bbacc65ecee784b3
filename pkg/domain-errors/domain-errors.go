package domainerrors

import "errors"

// Code represents a failure category independent of transport details.
// Codes describe what went wrong for the caller, not which HTTP status
// or storage backend produced it.
type Code string

const (
	// CodeConfiguration means the layer itself is wired incorrectly
	// (no token provider, unusable base URL). Never retried.
	CodeConfiguration Code = "configuration_error"
	// CodeNoActiveSession means the caller is not signed in.
	CodeNoActiveSession Code = "no_active_session"
	// CodeSessionExpired is raised only after a credential refresh has
	// already failed; the provider has been signed out as a side effect.
	CodeSessionExpired Code = "session_expired"
	// CodeTransport wraps network level failures, propagated untouched.
	CodeTransport Code = "transport_error"
	// CodeAPI carries a server-provided detail message for non-2xx replies.
	CodeAPI Code = "api_error"
	// CodeStorageUnavailable marks a persistence medium that cannot be
	// reached; callers degrade to "no persistence" rather than failing.
	CodeStorageUnavailable Code = "storage_unavailable"
	CodeInternal           Code = "internal_error"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across pipeline, session,
// and storage layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
