// Package aitime resolves natural-language time expressions (Chinese and English)
// into absolute time ranges relative to a reference instant.
package aitime

import (
	"time"
)

// Mode tells the resolver what the caller needs the range for.
type Mode int

const (
	// ModeCreate requires an explicit start clock time.
	ModeCreate Mode = iota
	// ModeRead treats a missing clock time as "the whole day" (or week/month for span tokens).
	ModeRead
	// ModeUpdate resolves the new time of an existing event; like ModeCreate it needs a clock time.
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeRead:
		return "read"
	case ModeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Resolver defines the temporal resolution contract.
// Consumers: intent extractor, agent orchestrator.
type Resolver interface {
	// Resolve converts an expression such as "明天下午3点", "tomorrow 3pm" or "从2点到4点"
	// into an absolute range. Deterministic given ref.
	Resolve(expr string, ref time.Time, mode Mode) (*TimeRange, error)

	// ResolveSpan resolves an explicit start/end pair. A clock-only end attaches to the start's date.
	ResolveSpan(startExpr, endExpr string, ref time.Time, mode Mode) (*TimeRange, error)

	// Split separates the temporal phrases found in free text from the rest of the text.
	Split(text string) (expr string, rest string)
}

// TimeRange represents a resolved time range. End is always after Start.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// AllDay is set when no clock time was given and the range covers whole days.
	AllDay bool `json:"all_day"`
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Contains reports whether t falls in [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Overlaps reports whether [start, end) intersects the range.
func (r TimeRange) Overlaps(start, end time.Time) bool {
	return start.Before(r.End) && r.Start.Before(end)
}

// SingleDay reports whether the range covers at most one calendar day.
func (r TimeRange) SingleDay() bool {
	return !r.End.After(StartOfDay(r.Start).AddDate(0, 0, 1))
}

// StartOfDay returns midnight of t's date in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayRange returns the half-open whole-day range of t's date.
func DayRange(t time.Time) TimeRange {
	start := StartOfDay(t)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1), AllDay: true}
}
