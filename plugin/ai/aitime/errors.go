package aitime

import (
	"errors"
	"fmt"
)

// ErrorCode classifies resolution failures.
type ErrorCode string

const (
	// CodeAmbiguousTime means a start clock time was required but not given.
	CodeAmbiguousTime ErrorCode = "AMBIGUOUS_TIME"
	// CodeUnparseable means nothing usable was recognized, or the result was inconsistent.
	CodeUnparseable ErrorCode = "UNPARSEABLE"
)

// ResolutionError is returned by Resolver operations.
type ResolutionError struct {
	Code       ErrorCode
	Expression string
	Reason     string
}

func (e *ResolutionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("[%s] %q: %s", e.Code, e.Expression, e.Reason)
	}
	return fmt.Sprintf("[%s] %q", e.Code, e.Expression)
}

// IsCode reports whether err is a ResolutionError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func ambiguous(expr, reason string) error {
	return &ResolutionError{Code: CodeAmbiguousTime, Expression: expr, Reason: reason}
}

func unparseable(expr, reason string) error {
	return &ResolutionError{Code: CodeUnparseable, Expression: expr, Reason: reason}
}
