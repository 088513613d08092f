package collection

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed operation.
type ErrorKind string

const (
	InvalidPayload   ErrorKind = "InvalidPayload"
	InvalidFilter    ErrorKind = "InvalidFilter"
	InvalidID        ErrorKind = "InvalidId"
	InvalidName      ErrorKind = "InvalidName"
	NotFound         ErrorKind = "NotFound"
	StoreUnavailable ErrorKind = "StoreUnavailable"
)

// Error is the structured failure returned by collection operations.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var ErrNotFound = &Error{Kind: NotFound, Message: "document not found"}

// Errorf builds an *Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// StoreError wraps an unexpected store fault.
func StoreError(op string, err error) *Error {
	return &Error{Kind: StoreUnavailable, Message: op + " failed", Err: err}
}

// KindOf extracts the kind of err, or "" when err is nil or not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
