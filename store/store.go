package store

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/zwrong/Calendar-Agent/plugin/ai/lang"
	"github.com/zwrong/Calendar-Agent/plugin/ai/metrics"
	"github.com/zwrong/Calendar-Agent/plugin/ai/timeout"
)

// DefaultConcurrency bounds the number of in-flight driver calls.
const DefaultConcurrency = 4

// Store provides calendar operations on top of a Driver.
type Store struct {
	driver          Driver
	metrics         metrics.MetricsService
	defaultCalendar string
	timeout         time.Duration
	sem             *semaphore.Weighted
	now             func() time.Time
	newUID          func() string

	mu         sync.Mutex
	tombstones map[string]struct{} // UIDs deleted through this store
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records every driver call.
func WithMetrics(m metrics.MetricsService) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithDefaultCalendar sets the display name used when a calendar reference is empty.
func WithDefaultCalendar(name string) Option {
	return func(s *Store) { s.defaultCalendar = strings.TrimSpace(name) }
}

// WithConcurrency bounds concurrent driver calls.
func WithConcurrency(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithTimeout overrides the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock sets the clock used for the search horizon.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithUIDGenerator replaces the random UID source.
func WithUIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newUID = gen
		}
	}
}

// New creates a new instance of Store.
func New(driver Driver, opts ...Option) *Store {
	s := &Store{
		driver:     driver,
		metrics:    metrics.Nop{},
		timeout:    timeout.CalendarTimeout,
		sem:        semaphore.NewWeighted(DefaultConcurrency),
		now:        time.Now,
		newUID:     func() string { return strings.ToUpper(uuid.NewString()) },
		tombstones: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// ListCalendars returns the calendars of the account with the default one marked.
func (s *Store) ListCalendars(ctx context.Context) ([]*Calendar, error) {
	cals, err := s.listCalendars(ctx)
	if err != nil {
		return nil, err
	}
	def := s.pickDefault(cals)
	list := make([]*Calendar, 0, len(cals))
	for _, c := range cals {
		cc := *c
		cc.Default = def != nil && c.Path == def.Path
		list = append(list, &cc)
	}
	return list, nil
}

// Create stores a new event and returns it with its generated UID.
func (s *Store) Create(ctx context.Context, fields EventFields) (*Event, error) {
	if !fields.End.After(fields.Start) {
		return nil, newError(CodeInvalidRange, "event end must be after its start")
	}
	cal, err := s.resolveCalendar(ctx, fields.Calendar)
	if err != nil {
		return nil, err
	}

	ev := &Event{
		UID:          s.generateUID(),
		Title:        strings.TrimSpace(fields.Title),
		Location:     strings.TrimSpace(fields.Location),
		Description:  strings.TrimSpace(fields.Description),
		Start:        fields.Start,
		End:          fields.End,
		AllDay:       fields.AllDay,
		Calendar:     cal.Path,
		CalendarName: cal.Name,
	}
	if err := s.call(ctx, "create", func(ctx context.Context) error {
		return s.driver.CreateEvent(ctx, cal, ev)
	}); err != nil {
		return nil, err
	}
	slog.Info("event created", slog.String("uid", ev.UID), slog.String("calendar", cal.Name))
	return ev.Clone(), nil
}

// Read returns the events overlapping r, ordered by start. An empty result is not an error.
func (s *Store) Read(ctx context.Context, r TimeRange, ref CalendarRef) ([]*Event, error) {
	if !r.End.After(r.Start) {
		return nil, newError(CodeInvalidRange, "range end must be after its start")
	}
	cal, err := s.resolveCalendar(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.listEvents(ctx, cal, r.Start, r.End)
}

// Search returns the events whose title or description contains query, case-insensitively,
// within the search horizon, ordered by start.
func (s *Store) Search(ctx context.Context, query string, ref CalendarRef) ([]*Event, error) {
	cal, err := s.resolveCalendar(ctx, ref)
	if err != nil {
		return nil, err
	}
	horizon := s.horizon()
	events, err := s.listEvents(ctx, cal, horizon.Start, horizon.End)
	if err != nil {
		return nil, err
	}

	needle := lang.Fold(strings.TrimSpace(query))
	matched := events[:0]
	for _, ev := range events {
		if strings.Contains(lang.Fold(ev.Title), needle) || strings.Contains(lang.Fold(ev.Description), needle) {
			matched = append(matched, ev)
		}
	}
	return matched, nil
}

// Update applies patch to the single event matching sel and returns the updated event.
func (s *Store) Update(ctx context.Context, sel Selector, patch EventPatch) (*Event, error) {
	target, err := s.findOne(ctx, sel)
	if err != nil {
		return nil, err
	}

	updated := applyPatch(target, patch)
	if !updated.End.After(updated.Start) {
		return nil, newError(CodeInvalidRange, "event end must be after its start")
	}
	if err := s.call(ctx, "update", func(ctx context.Context) error {
		return s.driver.UpdateEvent(ctx, target, updated)
	}); err != nil {
		return nil, err
	}
	slog.Info("event updated", slog.String("uid", updated.UID))
	return updated.Clone(), nil
}

// Delete removes the single event matching sel and returns it.
func (s *Store) Delete(ctx context.Context, sel Selector) (*Event, error) {
	target, err := s.findOne(ctx, sel)
	if err != nil {
		return nil, err
	}
	if err := s.remove(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// DeleteAll removes every event matching sel. On failure the events removed so far are
// returned with the error.
func (s *Store) DeleteAll(ctx context.Context, sel Selector) ([]*Event, error) {
	matches, err := s.find(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, newError(CodeNotFound, "no matching event")
	}

	deleted := make([]*Event, 0, len(matches))
	for _, ev := range matches {
		if err := s.remove(ctx, ev); err != nil {
			return deleted, err
		}
		deleted = append(deleted, ev)
	}
	return deleted, nil
}

func (s *Store) remove(ctx context.Context, ev *Event) error {
	if err := s.call(ctx, "delete", func(ctx context.Context) error {
		return s.driver.DeleteEvent(ctx, ev)
	}); err != nil {
		return err
	}
	s.mu.Lock()
	s.tombstones[ev.UID] = struct{}{}
	s.mu.Unlock()
	slog.Info("event deleted", slog.String("uid", ev.UID))
	return nil
}

func (s *Store) findOne(ctx context.Context, sel Selector) (*Event, error) {
	matches, err := s.find(ctx, sel)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, newError(CodeNotFound, "no matching event")
	case 1:
		return matches[0], nil
	default:
		return nil, &Error{Code: CodeAmbiguousTarget, Message: "more than one event matches", Candidates: matches}
	}
}

// find returns the events matching sel, one per UID.
func (s *Store) find(ctx context.Context, sel Selector) ([]*Event, error) {
	if sel.UID != "" && s.isDeleted(sel.UID) {
		return nil, nil
	}
	cal, err := s.resolveCalendar(ctx, sel.Calendar)
	if err != nil {
		return nil, err
	}
	window := s.horizon()
	if sel.Window != nil {
		window = *sel.Window
	}
	events, err := s.listEvents(ctx, cal, window.Start, window.End)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(sel.Title)
	seen := make(map[string]bool)
	var matches []*Event
	for _, ev := range events {
		if sel.UID != "" && ev.UID != sel.UID {
			continue
		}
		if title != "" && !lang.ContainsFold(ev.Title, title) {
			continue
		}
		// Occurrences of one series share a UID; the earliest stands for the series.
		if seen[ev.UID] {
			continue
		}
		seen[ev.UID] = true
		matches = append(matches, ev)
	}
	return matches, nil
}

func (s *Store) listEvents(ctx context.Context, cal *Calendar, start, end time.Time) ([]*Event, error) {
	var events []*Event
	if err := s.call(ctx, "list_events", func(ctx context.Context) error {
		var err error
		events, err = s.driver.ListEvents(ctx, cal, start, end)
		return err
	}); err != nil {
		return nil, err
	}

	list := make([]*Event, 0, len(events))
	for _, ev := range events {
		if s.isDeleted(ev.UID) || !ev.Overlaps(start, end) {
			continue
		}
		if ev.CalendarName == "" {
			ev.CalendarName = cal.Name
		}
		list = append(list, ev)
	}
	SortEvents(list)
	return list, nil
}

func (s *Store) listCalendars(ctx context.Context) ([]*Calendar, error) {
	var cals []*Calendar
	err := s.call(ctx, "list_calendars", func(ctx context.Context) error {
		var err error
		cals, err = s.driver.ListCalendars(ctx)
		return err
	})
	return cals, err
}

func (s *Store) resolveCalendar(ctx context.Context, ref CalendarRef) (*Calendar, error) {
	cals, err := s.listCalendars(ctx)
	if err != nil {
		return nil, err
	}
	if len(cals) == 0 {
		return nil, &Error{Code: CodeNotFound, Message: "no calendars available", Err: ErrCalendarNotFound}
	}

	name := strings.TrimSpace(string(ref))
	if name == "" {
		return s.pickDefault(cals), nil
	}
	for _, c := range cals {
		if c.Path == name || lang.Fold(c.Name) == lang.Fold(name) {
			return c, nil
		}
	}
	return nil, &Error{Code: CodeNotFound, Message: name, Err: ErrCalendarNotFound}
}

// pickDefault returns the configured default calendar, else the first listed.
func (s *Store) pickDefault(cals []*Calendar) *Calendar {
	if len(cals) == 0 {
		return nil
	}
	if s.defaultCalendar != "" {
		for _, c := range cals {
			if lang.Fold(c.Name) == lang.Fold(s.defaultCalendar) {
				return c
			}
		}
	}
	return cals[0]
}

// call runs one driver call under the concurrency bound and the per-call deadline.
func (s *Store) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return transport(name, err)
	}
	defer s.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	s.metrics.RecordCall(ctx, metrics.DependencyCalendar, name, time.Since(start), err == nil)
	if err != nil {
		slog.Warn("calendar call failed", slog.String("call", name), slog.Any("error", err))
		return transport(name, err)
	}
	return nil
}

// horizon is the window searched when no time narrows a lookup.
func (s *Store) horizon() TimeRange {
	now := s.now()
	return TimeRange{Start: now.AddDate(0, -3, 0), End: now.AddDate(1, 0, 0)}
}

func (s *Store) isDeleted(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tombstones[uid]
	return ok
}

// generateUID never returns a UID deleted through this store.
func (s *Store) generateUID() string {
	for {
		uid := s.newUID()
		if !s.isDeleted(uid) {
			return uid
		}
	}
}

func applyPatch(ev *Event, patch EventPatch) *Event {
	updated := ev.Clone()
	if patch.Title != nil {
		updated.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Location != nil {
		updated.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.Description != nil {
		updated.Description = strings.TrimSpace(*patch.Description)
	}
	switch {
	case patch.Start != nil && patch.End != nil:
		updated.Start, updated.End = *patch.Start, *patch.End
	case patch.Start != nil:
		updated.Start, updated.End = *patch.Start, patch.Start.Add(ev.Duration())
	case patch.Day != nil:
		updated.Start = onDay(*patch.Day, ev.Start)
		updated.End = updated.Start.Add(ev.Duration())
		if patch.End != nil {
			updated.End = *patch.End
		}
	case patch.End != nil:
		updated.End = *patch.End
	}
	if patch.AllDay != nil {
		updated.AllDay = *patch.AllDay
	}
	return updated
}

// onDay returns the time of day of t on the date of day, in day's location.
func onDay(day, t time.Time) time.Time {
	t = t.In(day.Location())
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, day.Location())
}

// SortEvents orders events by start, then title, then UID.
func SortEvents(events []*Event) {
	slices.SortFunc(events, func(a, b *Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.UID, b.UID)
	})
}
