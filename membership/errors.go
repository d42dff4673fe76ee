package membership

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine for a rejected request
// unwraps to exactly one of these.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// ErrVersionConflict is returned by an ActivityStore when a compare-and-swap
// lost against a concurrent write. The engine retries it and never surfaces it.
var ErrVersionConflict = errors.New("activity version changed")

// Codes carried on *Error so callers can tell conflicts apart
const (
	CodeNotFound               = "NOT_FOUND"
	CodeForbidden              = "FORBIDDEN"
	CodeAlreadyJoined          = "ALREADY_JOINED"
	CodeFull                   = "FULL"
	CodeNotAParticipant        = "NOT_A_PARTICIPANT"
	CodeNoInvitation           = "NO_INVITATION"
	CodeAlreadyResponded       = "ALREADY_RESPONDED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeValidation             = "VALIDATION"
)

// Error is a rejected membership request
type Error struct {
	Kind    error
	Code    string
	Message string
}

// Error implements error interface
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

// Unwrap lets errors.Is match the kind
func (e *Error) Unwrap() error {
	return e.Kind
}

// Is matches another *Error with the same code, so the package level values
// below work as errors.Is targets.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(kind error, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Comparable values for the state machine outcomes
var (
	ErrActivityNotFound  = &Error{Kind: ErrNotFound, Code: CodeNotFound, Message: "activity not found"}
	ErrNotCreator        = &Error{Kind: ErrForbidden, Code: CodeForbidden, Message: "only the creator may do this"}
	ErrAlreadyJoined     = &Error{Kind: ErrConflict, Code: CodeAlreadyJoined, Message: "already joined"}
	ErrFull              = &Error{Kind: ErrConflict, Code: CodeFull, Message: "activity is full"}
	ErrNotAParticipant   = &Error{Kind: ErrConflict, Code: CodeNotAParticipant, Message: "not a participant"}
	ErrNoInvitation      = &Error{Kind: ErrConflict, Code: CodeNoInvitation, Message: "no invitation for this user"}
	ErrAlreadyResponded  = &Error{Kind: ErrConflict, Code: CodeAlreadyResponded, Message: "invitation already answered"}
	ErrConcurrentChanges = &Error{Kind: ErrConflict, Code: CodeConcurrentModification, Message: "activity is being modified concurrently, retry"}
)

func validationError(format string, args ...interface{}) *Error {
	return newError(ErrValidation, CodeValidation, format, args...)
}
