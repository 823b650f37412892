package drive

import (
	"errors"
	"fmt"
)

// Error is a domain error returned by DriveService operations.
//
// These are business outcomes (entry not found, access denied) as opposed to
// infrastructure failures, which are returned wrapped with %w.
// The transport layer translates Code into a status code.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ErrorCode is the category of a domain error.
type ErrorCode int

const (
	// ErrNotFound indicates a missing entry, user, permission or link.
	ErrNotFound ErrorCode = iota + 1

	// ErrConflict indicates a path collision on create or move.
	ErrConflict

	// ErrBadRequest indicates malformed or missing input.
	ErrBadRequest

	// ErrForbidden indicates an authorization denial or a missing principal.
	ErrForbidden
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not found"
	case ErrConflict:
		return "conflict"
	case ErrBadRequest:
		return "bad request"
	case ErrForbidden:
		return "forbidden"
	}
	return "unknown"
}

func newError(code ErrorCode, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error   { return newError(ErrNotFound, format, args...) }
func conflict(format string, args ...any) error   { return newError(ErrConflict, format, args...) }
func badRequest(format string, args ...any) error { return newError(ErrBadRequest, format, args...) }
func forbidden(format string, args ...any) error  { return newError(ErrForbidden, format, args...) }

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return 0, false
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

func IsNotFound(err error) bool   { return IsCode(err, ErrNotFound) }
func IsConflict(err error) bool   { return IsCode(err, ErrConflict) }
func IsBadRequest(err error) bool { return IsCode(err, ErrBadRequest) }
func IsForbidden(err error) bool  { return IsCode(err, ErrForbidden) }
