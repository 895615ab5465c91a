package agent

import (
	"errors"
	"fmt"

	"github.com/zwrong/Calendar-Agent/plugin/ai/aitime"
	"github.com/zwrong/Calendar-Agent/plugin/ai/intent"
	"github.com/zwrong/Calendar-Agent/store"
)

// Request validation errors raised before any calendar call.
var (
	// ErrMissingTitle means a create request named no event title.
	ErrMissingTitle = errors.New("missing event title")

	// ErrMissingTarget means an update or delete request named no event.
	ErrMissingTarget = errors.New("missing target event")

	// ErrNothingToUpdate means an update request carried no change.
	ErrNothingToUpdate = errors.New("nothing to update")
)

// Error codes reported in Payload.ErrorCode besides the typed error codes of the pipeline.
const (
	CodeCancelled     = "CANCELLED"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeInternal      = "INTERNAL"
	CodeEmptyCommand  = "EMPTY_COMMAND"
	CodeCalendarError = "CALENDAR_NOT_FOUND"
)

// classified is an error mapped to its reply.
type classified struct {
	status Status
	code   string
	text   string
}

// classify maps any pipeline error to a terminal reply. Ambiguity is handled by the caller.
func classify(p *printer, err error) classified {
	var re *aitime.ResolutionError
	var se *store.Error
	var ee *intent.ExtractionError

	switch {
	case errors.Is(err, intent.ErrEmptyUtterance):
		return classified{StatusError, CodeEmptyCommand, p.text(msgErrEmpty)}
	case errors.Is(err, ErrMissingTitle):
		return classified{StatusError, CodeInvalidInput, p.text(msgErrMissingTitle)}
	case errors.Is(err, ErrMissingTarget):
		return classified{StatusError, CodeInvalidInput, p.text(msgErrMissingTarget)}
	case errors.Is(err, ErrNothingToUpdate):
		return classified{StatusError, CodeInvalidInput, p.text(msgErrNothingToUpdate)}

	case errors.As(err, &re):
		if re.Code == aitime.CodeAmbiguousTime {
			return classified{StatusError, string(re.Code), p.text(msgErrAmbiguousTime)}
		}
		return classified{StatusError, string(re.Code), p.text(msgErrUnparseable, re.Expression)}

	case errors.As(err, &se):
		switch se.Code {
		case store.CodeNotFound:
			if errors.Is(err, store.ErrCalendarNotFound) {
				return classified{StatusError, CodeCalendarError, p.text(msgErrCalendar, se.Message)}
			}
			return classified{StatusNotFound, string(se.Code), p.text(msgNotFound)}
		case store.CodeInvalidRange:
			return classified{StatusError, string(se.Code), p.text(msgErrInvalidRange)}
		case store.CodeTransport:
			return classified{StatusError, string(se.Code), p.text(msgErrTransport)}
		}

	case errors.As(err, &ee):
		return classified{StatusError, string(ee.Code), p.text(msgErrInternal)}
	}
	return classified{StatusError, CodeInternal, p.text(msgErrInternal)}
}

// panicError wraps a recovered panic value.
func panicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", v)
}
