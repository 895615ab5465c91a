package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/zwrong/Calendar-Agent/plugin/ai/aitime"
	"github.com/zwrong/Calendar-Agent/plugin/ai/session"
	"github.com/zwrong/Calendar-Agent/store"
)

const (
	dateLayout     = "2006-01-02"
	clockLayout    = "15:04"
	dateTimeLayout = dateLayout + " " + clockLayout
)

// formatSpan renders a time range with its date: "2025-10-04 15:00 - 16:00".
func (p *printer) formatSpan(start, end time.Time, allDay bool) string {
	if allDay {
		last := end.AddDate(0, 0, -1)
		if !last.After(start) {
			return fmt.Sprintf("%s (%s)", start.Format(dateLayout), p.raw(msgAllDay))
		}
		return fmt.Sprintf("%s - %s (%s)", start.Format(dateLayout), last.Format(dateLayout), p.raw(msgAllDay))
	}
	if aitime.StartOfDay(start).Equal(aitime.StartOfDay(end)) {
		return start.Format(dateTimeLayout) + " - " + end.Format(clockLayout)
	}
	return start.Format(dateTimeLayout) + " - " + end.Format(dateTimeLayout)
}

// formatClock renders the time of an event inside a single-day listing: "15:00 - 16:00".
func (p *printer) formatClock(start, end time.Time, allDay bool) string {
	if allDay {
		return p.raw(msgAllDay)
	}
	if aitime.StartOfDay(start).Equal(aitime.StartOfDay(end)) || end.Equal(aitime.StartOfDay(end)) {
		return start.Format(clockLayout) + " - " + end.Format(clockLayout)
	}
	return p.formatSpan(start, end, false)
}

// eventDetails renders the confirmation lines of a created or changed event.
func (p *printer) eventDetails(ev *store.Event, loc *time.Location) string {
	location := ev.Location
	if location == "" {
		location = p.raw(msgUnspecified)
	}
	description := ev.Description
	if description == "" {
		description = p.raw(msgNone)
	}
	return strings.Join([]string{
		p.text(msgTimeLine, p.formatSpan(ev.Start.In(loc), ev.End.In(loc), ev.AllDay)),
		p.text(msgLocationLine, location),
		p.text(msgDescriptionLine, description),
	}, "\n")
}

// eventList renders a numbered listing. withDate adds the date to every item.
func (p *printer) eventList(b *strings.Builder, events []*store.Event, loc *time.Location, withDate bool) {
	for i, ev := range events {
		start, end := ev.Start.In(loc), ev.End.In(loc)
		when := p.formatClock(start, end, ev.AllDay)
		if withDate {
			when = p.formatSpan(start, end, ev.AllDay)
		}
		fmt.Fprintf(b, "%d. %s\n", i+1, ev.Title)
		b.WriteString(p.text(msgItemTime, when) + "\n")
		if ev.Location != "" {
			b.WriteString(p.text(msgItemLocation, ev.Location) + "\n")
		}
		if ev.Description != "" {
			b.WriteString(p.text(msgItemDescription, ev.Description) + "\n")
		}
		b.WriteString("\n")
	}
}

// candidateList renders the disambiguation choices with their distinguishing times.
func (p *printer) candidateList(b *strings.Builder, candidates []session.Candidate, loc *time.Location) {
	for i, c := range candidates {
		fmt.Fprintf(b, "%d. %s (%s)", i+1, c.Title, p.formatSpan(c.Start.In(loc), c.End.In(loc), false))
		if c.Location != "" {
			fmt.Fprintf(b, " @ %s", c.Location)
		}
		b.WriteString("\n")
	}
}

// emptyRead renders the reply of a read that found nothing, relative to ref's date.
func (p *printer) emptyRead(r aitime.TimeRange, ref time.Time) string {
	today := aitime.StartOfDay(ref)
	day := aitime.StartOfDay(r.Start)
	if r.SingleDay() {
		switch {
		case day.Equal(today):
			return p.text(msgEmptyToday)
		case day.Equal(today.AddDate(0, 0, 1)):
			return p.text(msgEmptyTomorrow)
		default:
			return p.text(msgEmptyDate, day.Format(p.raw(msgDateLayout)))
		}
	}
	last := r.End.Add(-time.Nanosecond)
	return p.text(msgEmptyRange, day.Format(p.raw(msgDateLayout)), last.Format(p.raw(msgDateLayout)))
}
