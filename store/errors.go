package store

import (
	"errors"
	"fmt"
)

// ErrorCode classifies store failures.
type ErrorCode string

const (
	// CodeInvalidRange means an event would end at or before its start.
	CodeInvalidRange ErrorCode = "INVALID_RANGE"
	// CodeNotFound means no event (or calendar) matched.
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeAmbiguousTarget means more than one event matched a selector; Candidates lists them.
	CodeAmbiguousTarget ErrorCode = "AMBIGUOUS_TARGET"
	// CodeTransport covers connectivity, authentication and server failures, timeouts included.
	CodeTransport ErrorCode = "TRANSPORT"
)

// ErrCalendarNotFound is wrapped by NOT_FOUND errors about the calendar rather than an event.
var ErrCalendarNotFound = errors.New("calendar not found")

// Error is returned by Store operations.
type Error struct {
	Code       ErrorCode
	Message    string
	Candidates []*Event
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a store Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == code
}

// AsError returns the store Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var se *Error
	ok := errors.As(err, &se)
	return se, ok
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func transport(call string, err error) *Error {
	return &Error{Code: CodeTransport, Message: call + " failed", Err: err}
}
