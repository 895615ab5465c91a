package caldav

import (
	"strconv"
	"time"

	"github.com/emersion/go-ical"
	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	"github.com/zwrong/Calendar-Agent/store"
)

const prodID = "-//Calendar Agent//CalDAV Driver//EN"

// defaultDuration applies to timed events stored without DTEND or DURATION.
const defaultDuration = time.Hour

// encodeEvent builds a VCALENDAR object holding one VEVENT.
func encodeEvent(ev *store.Event, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, ev.UID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropCreated, now.UTC())
	setTimes(event.Component, ev.Start, ev.End, ev.AllDay)
	setText(event.Component, ical.PropSummary, ev.Title)
	setText(event.Component, ical.PropLocation, ev.Location)
	setText(event.Component, ical.PropDescription, ev.Description)

	cal.Children = append(cal.Children, event.Component)
	return cal
}

// decodeEvents returns the events of a calendar object overlapping [start, end). Recurring
// masters are expanded into occurrences; RECURRENCE-ID overrides replace the occurrence they name.
func decodeEvents(cal *ical.Calendar, start, end time.Time, loc *time.Location) ([]*store.Event, error) {
	var masters []ical.Event
	overrides := make(map[int64]*store.Event)
	var list []*store.Event

	for _, event := range cal.Events() {
		if event.Props.Get(ical.PropRecurrenceID) == nil {
			masters = append(masters, event)
			continue
		}
		ev, err := decodeEvent(event, loc)
		if err != nil {
			return nil, err
		}
		rid, err := event.Props.Get(ical.PropRecurrenceID).DateTime(loc)
		if err != nil {
			return nil, errors.Wrap(err, "invalid RECURRENCE-ID")
		}
		ev.Recurring = true
		overrides[rid.Unix()] = ev
		if ev.Overlaps(start, end) {
			list = append(list, ev)
		}
	}

	for _, event := range masters {
		ev, err := decodeEvent(event, loc)
		if err != nil {
			return nil, err
		}
		set, err := event.RecurrenceSet(loc)
		if err != nil {
			return nil, errors.Wrap(err, "invalid recurrence rule")
		}
		if set == nil {
			if ev.Overlaps(start, end) {
				list = append(list, ev)
			}
			continue
		}

		duration := ev.Duration()
		for _, at := range occurrences(set, start.Add(-duration), end) {
			if _, overridden := overrides[at.Unix()]; overridden {
				continue
			}
			occ := ev.Clone()
			occ.Start, occ.End = at.In(loc), at.Add(duration).In(loc)
			occ.Recurring = true
			if occ.Overlaps(start, end) {
				list = append(list, occ)
			}
		}
	}
	return list, nil
}

// occurrences returns the recurrence instants within [from, to].
func occurrences(set *rrule.Set, from, to time.Time) []time.Time {
	return set.Between(from, to, true)
}

func decodeEvent(event ical.Event, loc *time.Location) (*store.Event, error) {
	uid, err := event.Props.Text(ical.PropUID)
	if err != nil || uid == "" {
		return nil, errors.New("event without UID")
	}
	dtstart := event.Props.Get(ical.PropDateTimeStart)
	if dtstart == nil {
		return nil, errors.Errorf("event %s without DTSTART", uid)
	}
	start, err := event.DateTimeStart(loc)
	if err != nil {
		return nil, errors.Wrapf(err, "event %s has an invalid DTSTART", uid)
	}
	allDay := dtstart.ValueType() == ical.ValueDate

	end, err := event.DateTimeEnd(loc)
	if err != nil {
		return nil, errors.Wrapf(err, "event %s has an invalid end", uid)
	}
	if !end.After(start) {
		if allDay {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start.Add(defaultDuration)
		}
	}

	ev := &store.Event{
		UID:    uid,
		Start:  start.In(loc),
		End:    end.In(loc),
		AllDay: allDay,
	}
	ev.Title, _ = event.Props.Text(ical.PropSummary)
	ev.Location, _ = event.Props.Text(ical.PropLocation)
	ev.Description, _ = event.Props.Text(ical.PropDescription)
	return ev, nil
}

// applyUpdate rewrites the master VEVENT of cal from old to updated. A recurring series is
// shifted by the offset between the two occurrences and takes the new duration.
func applyUpdate(cal *ical.Calendar, old, updated *store.Event, now time.Time, loc *time.Location) error {
	master := findMaster(cal, old.UID)
	if master == nil {
		return errors.Errorf("event %s not found in calendar object", old.UID)
	}

	start, end := updated.Start, updated.End
	if old.Recurring {
		masterStart, err := (&ical.Event{Component: master}).DateTimeStart(loc)
		if err != nil {
			return errors.Wrap(err, "invalid DTSTART")
		}
		start = masterStart.Add(updated.Start.Sub(old.Start))
		end = start.Add(updated.End.Sub(updated.Start))
	}

	delete(master.Props, ical.PropDuration)
	setTimes(master, start, end, updated.AllDay)
	setText(master, ical.PropSummary, updated.Title)
	setText(master, ical.PropLocation, updated.Location)
	setText(master, ical.PropDescription, updated.Description)

	sequence := 0
	if prop := master.Props.Get(ical.PropSequence); prop != nil {
		sequence, _ = strconv.Atoi(prop.Value)
	}
	seq := ical.NewProp(ical.PropSequence)
	seq.Value = strconv.Itoa(sequence + 1)
	master.Props.Set(seq)
	master.Props.SetDateTime(ical.PropLastModified, now.UTC())
	master.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	return nil
}

func findMaster(cal *ical.Calendar, uid string) *ical.Component {
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent || child.Props.Get(ical.PropRecurrenceID) != nil {
			continue
		}
		if v, _ := child.Props.Text(ical.PropUID); v == uid {
			return child
		}
	}
	return nil
}

func setTimes(comp *ical.Component, start, end time.Time, allDay bool) {
	if allDay {
		comp.Props.SetDate(ical.PropDateTimeStart, start)
		comp.Props.SetDate(ical.PropDateTimeEnd, end)
		return
	}
	comp.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	comp.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
}

func setText(comp *ical.Component, name, value string) {
	if value == "" {
		delete(comp.Props, name)
		return
	}
	comp.Props.SetText(name, value)
}
