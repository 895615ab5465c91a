// Package agent provides the calendar agent orchestrator: it turns one utterance into an intent,
// resolves its times, runs the matching calendar operation and formats a localized reply.
package agent

import (
	"time"

	"github.com/zwrong/Calendar-Agent/plugin/ai/session"
	"github.com/zwrong/Calendar-Agent/store"
)

// Status is the outcome of one handled utterance.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusNotFound  Status = "not_found"
	StatusAmbiguous Status = "ambiguous"
	StatusError     Status = "error"
)

// Response is the formatted outcome returned for every utterance.
type Response struct {
	Status  Status   `json:"status"`
	Text    string   `json:"text"`
	Payload *Payload `json:"payload,omitempty"`
}

// Payload carries structured data for programmatic consumers.
type Payload struct {
	Operation string `json:"operation,omitempty"`
	// Language is the BCP 47 tag of the reply.
	Language   string            `json:"language"`
	Source     string            `json:"source,omitempty"`
	Events     []EventView       `json:"events,omitempty"`
	Candidates []EventView       `json:"candidates,omitempty"`
	UIDs       []string          `json:"uids,omitempty"`
	Calendars  []*store.Calendar `json:"calendars,omitempty"`
	ErrorCode  string            `json:"error_code,omitempty"`
}

// EventView is the JSON form of an event.
type EventView struct {
	UID         string    `json:"uid"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day,omitempty"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Calendar    string    `json:"calendar,omitempty"`
}

func viewOf(ev *store.Event, loc *time.Location) EventView {
	calendar := ev.CalendarName
	if calendar == "" {
		calendar = ev.Calendar
	}
	return EventView{
		UID:         ev.UID,
		Title:       ev.Title,
		Start:       ev.Start.In(loc),
		End:         ev.End.In(loc),
		AllDay:      ev.AllDay,
		Location:    ev.Location,
		Description: ev.Description,
		Calendar:    calendar,
	}
}

func viewsOf(events []*store.Event, loc *time.Location) []EventView {
	views := make([]EventView, 0, len(events))
	for _, ev := range events {
		views = append(views, viewOf(ev, loc))
	}
	return views
}

func candidateViews(candidates []session.Candidate, loc *time.Location) []EventView {
	views := make([]EventView, 0, len(candidates))
	for _, c := range candidates {
		views = append(views, EventView{
			UID:      c.UID,
			Title:    c.Title,
			Start:    c.Start.In(loc),
			End:      c.End.In(loc),
			Location: c.Location,
			Calendar: c.Calendar,
		})
	}
	return views
}

func candidatesOf(events []*store.Event) []session.Candidate {
	list := make([]session.Candidate, 0, len(events))
	for _, ev := range events {
		list = append(list, session.Candidate{
			UID:      ev.UID,
			Title:    ev.Title,
			Start:    ev.Start,
			End:      ev.End,
			Location: ev.Location,
			Calendar: ev.Calendar,
		})
	}
	return list
}

func uidsOf(events []*store.Event) []string {
	uids := make([]string, 0, len(events))
	for _, ev := range events {
		uids = append(uids, ev.UID)
	}
	return uids
}
