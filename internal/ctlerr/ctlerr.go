// Package ctlerr defines the controller's error taxonomy: a small set of
// kinds that every API and engine boundary maps its errors onto, so
// transport layers (internal/api) can decide status codes and logging
// severity without inspecting error strings.
package ctlerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purpose of transport-level handling.
type Kind string

const (
	// InvalidRequest means the caller sent something the controller will
	// never accept as-is: malformed XML, an unknown task-runner id, a
	// reference to a definition that does not exist.
	InvalidRequest Kind = "invalid_request"

	// AccessDenied means the request was well-formed but the caller's
	// token or role does not permit it.
	AccessDenied Kind = "access_denied"

	// Presentable means the error is expected, user-facing text: surface
	// it directly rather than logging it as a failure.
	Presentable Kind = "presentable"

	// ArgsCorrected means the request named something close to valid
	// (e.g. a typo'd resource ref) and the error should suggest the
	// likely intended value.
	ArgsCorrected Kind = "args_corrected"

	// Internal means the controller itself is in a state it didn't
	// expect; log with a stack-bearing entry and return an opaque 500.
	Internal Kind = "internal"

	// Redirect means no error occurred, but the caller should be sent
	// to a different location (e.g. after a state-changing POST).
	Redirect Kind = "redirect"
)

// Error is a classified controller error. It wraps an underlying cause so
// errors.Is/errors.As keep working through internal/api and internal/engine.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string // set only for ArgsCorrected
	Location   string // set only for Redirect
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func newf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// InvalidRequestf builds an InvalidRequest error.
func InvalidRequestf(format string, args ...any) *Error {
	return newf(InvalidRequest, nil, format, args...)
}

// AccessDeniedf builds an AccessDenied error.
func AccessDeniedf(format string, args ...any) *Error {
	return newf(AccessDenied, nil, format, args...)
}

// Presentablef builds a Presentable error.
func Presentablef(format string, args ...any) *Error {
	return newf(Presentable, nil, format, args...)
}

// Internalf wraps cause as an Internal error, preserving it for logging and
// errors.Is/As.
func Internalf(cause error, format string, args ...any) *Error {
	return newf(Internal, cause, format, args...)
}

// ArgsCorrectedf builds an error suggesting suggestion in place of the bad
// argument referenced by format/args.
func ArgsCorrectedf(suggestion string, format string, args ...any) *Error {
	e := newf(ArgsCorrected, nil, format, args...)
	e.Suggestion = suggestion
	return e
}

// RedirectTo builds a Redirect "error" carrying the target location.
// Handlers treat it as a normal response, not a failure.
func RedirectTo(location string) *Error {
	return &Error{Kind: Redirect, Location: location}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, defaulting
// to Internal for anything else so unclassified errors fail closed.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
