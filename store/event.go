package store

import (
	"time"
)

// Event is the object representing a calendar event. It is a transient view of an object owned
// by the calendar server.
type Event struct {
	UID         string
	Title       string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool

	// Calendar is the path of the calendar collection holding the event.
	Calendar     string
	CalendarName string

	// Path and ETag identify the stored object on the server.
	Path string
	ETag string

	// Recurring marks an occurrence expanded from a recurring series. All occurrences share the
	// series UID; changes apply to the whole series.
	Recurring bool
}

// Duration returns End - Start.
func (e *Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Overlaps reports whether the event intersects [start, end).
func (e *Event) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && start.Before(e.End)
}

// Clone returns a copy of the event.
func (e *Event) Clone() *Event {
	c := *e
	return &c
}

// EventFields are the fields of a new event.
type EventFields struct {
	Title       string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Calendar    CalendarRef
}

// EventPatch is the update request for an event. Nil fields are left unchanged.
// Moving only Start keeps the event's duration.
type EventPatch struct {
	Title       *string
	Location    *string
	Description *string
	Start       *time.Time
	End         *time.Time
	AllDay      *bool
	// Day moves the event to the date of Day keeping its time of day. Ignored when Start is set.
	Day *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Location == nil && p.Description == nil &&
		p.Start == nil && p.End == nil && p.AllDay == nil && p.Day == nil
}

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Selector locates existing events for update and delete.
type Selector struct {
	Calendar CalendarRef
	// UID matches exactly.
	UID string
	// Title matches as a case-folded substring of the title.
	Title string
	// Window narrows matches to events overlapping it. Without a window the search horizon applies.
	Window *TimeRange
}

// CalendarRef names a calendar by display name or collection path. Empty means the default calendar.
type CalendarRef string

// Calendar is a calendar collection on the server.
type Calendar struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default"`
}
