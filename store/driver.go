package store

import (
	"context"
	"time"
)

// Driver is the calendar protocol boundary. The Store adds matching, validation,
// identity and timeout handling on top of it.
// Implementations must be safe for concurrent use.
type Driver interface {
	// ListCalendars returns the event calendars of the account.
	ListCalendars(ctx context.Context) ([]*Calendar, error)

	// ListEvents returns the events of a calendar overlapping [start, end), with recurring
	// series expanded into occurrences.
	ListEvents(ctx context.Context, cal *Calendar, start, end time.Time) ([]*Event, error)

	// CreateEvent stores a new event and fills its Path and ETag.
	CreateEvent(ctx context.Context, cal *Calendar, ev *Event) error

	// UpdateEvent replaces the stored event old with updated. For a recurring occurrence the
	// series is shifted by the same offset.
	UpdateEvent(ctx context.Context, old, updated *Event) error

	// DeleteEvent removes the stored object of an event.
	DeleteEvent(ctx context.Context, ev *Event) error

	// Close releases the driver's resources.
	Close() error
}
