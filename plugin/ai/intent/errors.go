package intent

import (
	"errors"
	"fmt"
)

// ErrorCode classifies extraction failures.
type ErrorCode string

const (
	// CodeMalformedResponse means the reply could not be parsed or named an unknown operation.
	CodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	// CodeTimeout means the language service did not answer within its deadline.
	CodeTimeout ErrorCode = "TIMEOUT"
	// CodeServiceUnavailable covers transport and API failures, or no configured service.
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrEmptyUtterance is returned for blank input; no extractor is consulted.
var ErrEmptyUtterance = errors.New("empty utterance")

// ExtractionError is returned by the language service extractor.
type ExtractionError struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is an ExtractionError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ee *ExtractionError
	return errors.As(err, &ee) && ee.Code == code
}

func malformed(reason string, err error) *ExtractionError {
	return &ExtractionError{Code: CodeMalformedResponse, Reason: reason, Err: err}
}
