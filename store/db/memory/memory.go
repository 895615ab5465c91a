// Package memory is an in-process calendar driver for offline use and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/zwrong/Calendar-Agent/store"
)

// DefaultCalendar is the calendar a driver starts with when none are given.
var DefaultCalendar = store.Calendar{Name: "Calendar", Path: "/calendars/default/"}

// ErrObjectNotFound is returned when an event object does not exist.
var ErrObjectNotFound = errors.New("calendar object not found")

// Driver keeps calendars and events in memory. Safe for concurrent use.
type Driver struct {
	mu        sync.RWMutex
	calendars []*store.Calendar
	events    map[string]map[string]*store.Event // calendar path -> uid -> event
	etag      int

	failErr error
	delay   time.Duration
}

// New creates a driver holding the given calendars, or DefaultCalendar when none are given.
func New(calendars ...store.Calendar) *Driver {
	if len(calendars) == 0 {
		calendars = []store.Calendar{DefaultCalendar}
	}
	d := &Driver{events: make(map[string]map[string]*store.Event)}
	for _, c := range calendars {
		d.calendars = append(d.calendars, &c)
		d.events[c.Path] = make(map[string]*store.Event)
	}
	return d
}

// Fail makes every following call return err; nil restores normal operation.
func (d *Driver) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failErr = err
}

// SetDelay makes every following call wait for delay or the context, whichever ends first.
func (d *Driver) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

// Seed stores events directly, bypassing the store. Events without a calendar go to the first one.
func (d *Driver) Seed(events ...*store.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ev := range events {
		ev = ev.Clone()
		if ev.Calendar == "" {
			ev.Calendar = d.calendars[0].Path
		}
		if _, ok := d.events[ev.Calendar]; !ok {
			d.events[ev.Calendar] = make(map[string]*store.Event)
		}
		ev.Path = ev.Calendar + ev.UID + ".ics"
		ev.ETag = d.nextETag()
		d.events[ev.Calendar][ev.UID] = ev
	}
}

// Len returns the number of stored events across calendars.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, objs := range d.events {
		n += len(objs)
	}
	return n
}

func (d *Driver) ListCalendars(ctx context.Context) ([]*store.Calendar, error) {
	if err := d.begin(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	list := make([]*store.Calendar, 0, len(d.calendars))
	for _, c := range d.calendars {
		cc := *c
		list = append(list, &cc)
	}
	return list, nil
}

func (d *Driver) ListEvents(ctx context.Context, cal *store.Calendar, start, end time.Time) ([]*store.Event, error) {
	if err := d.begin(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	objs, ok := d.events[cal.Path]
	if !ok {
		return nil, errors.Errorf("calendar %s does not exist", cal.Path)
	}
	var list []*store.Event
	for _, ev := range objs {
		if ev.Overlaps(start, end) {
			list = append(list, ev.Clone())
		}
	}
	return list, nil
}

func (d *Driver) CreateEvent(ctx context.Context, cal *store.Calendar, ev *store.Event) error {
	if err := d.begin(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	objs, ok := d.events[cal.Path]
	if !ok {
		return errors.Errorf("calendar %s does not exist", cal.Path)
	}
	if _, exists := objs[ev.UID]; exists {
		return errors.Errorf("event %s already exists", ev.UID)
	}
	ev.Path = cal.Path + ev.UID + ".ics"
	ev.ETag = d.nextETag()
	objs[ev.UID] = ev.Clone()
	return nil
}

func (d *Driver) UpdateEvent(ctx context.Context, old, updated *store.Event) error {
	if err := d.begin(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	objs := d.events[old.Calendar]
	if _, ok := objs[old.UID]; !ok {
		return errors.Wrap(ErrObjectNotFound, old.UID)
	}
	updated.ETag = d.nextETag()
	objs[old.UID] = updated.Clone()
	return nil
}

func (d *Driver) DeleteEvent(ctx context.Context, ev *store.Event) error {
	if err := d.begin(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	objs := d.events[ev.Calendar]
	if _, ok := objs[ev.UID]; !ok {
		return errors.Wrap(ErrObjectNotFound, ev.UID)
	}
	delete(objs, ev.UID)
	return nil
}

func (*Driver) Close() error {
	return nil
}

// begin applies the injected delay and failure.
func (d *Driver) begin(ctx context.Context) error {
	d.mu.RLock()
	failErr, delay := d.failErr, d.delay
	d.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if failErr != nil {
		return failErr
	}
	return ctx.Err()
}

// nextETag must be called with the write lock held.
func (d *Driver) nextETag() string {
	d.etag++
	return fmt.Sprintf(`"%d"`, d.etag)
}

var _ store.Driver = (*Driver)(nil)
