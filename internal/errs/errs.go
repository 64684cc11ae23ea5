// Package errs defines the failure taxonomy shared by the repository, service
// and HTTP layers.
//
// Expected failures (a missing document, a stale concurrency token, malformed
// input) are returned as *Error values carrying a Kind, a short machine-readable
// Code such as "User.NotFound", and a human-readable Description. Success is a
// nil error; the None sentinel exists only to name "no error" and is never
// returned as the error of a failed operation.
//
// Callers classify failures either with errors.Is against the per-kind
// sentinels (ErrNotFound, ErrConflict, ...) or with KindOf.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind uint8

const (
	KindNone Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindDatabase
	KindExternal
	KindNullValue
	KindCanceled
	KindInternal
)

var kindNames = [...]string{
	KindNone:         "none",
	KindValidation:   "validation",
	KindNotFound:     "not_found",
	KindConflict:     "conflict",
	KindUnauthorized: "unauthorized",
	KindForbidden:    "forbidden",
	KindDatabase:     "database",
	KindExternal:     "external",
	KindNullValue:    "null_value",
	KindCanceled:     "canceled",
	KindInternal:     "internal",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Sentinels matched by errors.Is for every *Error of the corresponding kind.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrDatabase     = errors.New("database error")
	ErrExternal     = errors.New("external service error")
	ErrNullValue    = errors.New("null value")
	ErrCanceled     = errors.New("request canceled")
)

func sentinel(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindDatabase:
		return ErrDatabase
	case KindExternal:
		return ErrExternal
	case KindNullValue:
		return ErrNullValue
	case KindCanceled:
		return ErrCanceled
	}
	return nil
}

// Error is a classified failure.
type Error struct {
	Kind        Kind
	Code        string
	Description string
	// Err is the underlying cause, if any. It is never shown to clients.
	Err error
}

// None is the "no error" value.
var None = Error{}

// IsNone reports whether e is the None sentinel.
func (e Error) IsNone() bool { return e.Kind == KindNone && e.Code == "" }

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinel so errors.Is(err, ErrNotFound) works for any
// *Error of KindNotFound regardless of its code.
func (e *Error) Is(target error) bool {
	s := sentinel(e.Kind)
	return s != nil && target == s
}

// KindOf returns the Kind of the first *Error in err's chain. A nil error is
// KindNone; any other unclassified error is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// NullValue is returned when a required entity argument is nil.
var NullValue = &Error{Kind: KindNullValue, Code: "Error.NullValue", Description: "The specified result value is null."}

func NotFound(entity, id string) *Error {
	return &Error{
		Kind:        KindNotFound,
		Code:        entity + ".NotFound",
		Description: fmt.Sprintf("%s with ID '%s' was not found.", entity, id),
	}
}

func Validation(property, message string) *Error {
	return &Error{Kind: KindValidation, Code: "Validation." + property, Description: message}
}

func Conflict(entity, message string) *Error {
	return &Error{Kind: KindConflict, Code: entity + ".Conflict", Description: message}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required."
	}
	return &Error{Kind: KindUnauthorized, Code: "Auth.Unauthorized", Description: message}
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "You do not have permission to perform this action."
	}
	return &Error{Kind: KindForbidden, Code: "Auth.Forbidden", Description: message}
}

// Database wraps a backend failure. cause is kept for logging only.
func Database(message string, cause error) *Error {
	return &Error{Kind: KindDatabase, Code: "Database.Error", Description: message, Err: cause}
}

func External(service, message string) *Error {
	return &Error{Kind: KindExternal, Code: "External." + service, Description: message}
}

// Canceled wraps a context cancellation or deadline.
func Canceled(cause error) *Error {
	return &Error{Kind: KindCanceled, Code: "Request.Canceled", Description: "The operation was canceled.", Err: cause}
}
