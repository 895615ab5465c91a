package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/zwrong/Calendar-Agent/plugin/ai/aitime"
	"github.com/zwrong/Calendar-Agent/plugin/ai/intent"
	"github.com/zwrong/Calendar-Agent/plugin/ai/lang"
	"github.com/zwrong/Calendar-Agent/plugin/ai/metrics"
	"github.com/zwrong/Calendar-Agent/plugin/ai/session"
	"github.com/zwrong/Calendar-Agent/plugin/ai/timeout"
	"github.com/zwrong/Calendar-Agent/store"
)

// CalendarStore is the calendar surface the agent drives.
type CalendarStore interface {
	ListCalendars(ctx context.Context) ([]*store.Calendar, error)
	Create(ctx context.Context, fields store.EventFields) (*store.Event, error)
	Read(ctx context.Context, r store.TimeRange, ref store.CalendarRef) ([]*store.Event, error)
	Update(ctx context.Context, sel store.Selector, patch store.EventPatch) (*store.Event, error)
	Delete(ctx context.Context, sel store.Selector) (*store.Event, error)
	DeleteAll(ctx context.Context, sel store.Selector) ([]*store.Event, error)
	Search(ctx context.Context, query string, ref store.CalendarRef) ([]*store.Event, error)
}

// CalendarAgent handles one utterance at a time. It holds no per-conversation state;
// disambiguation state lives on the session passed to Handle.
type CalendarAgent struct {
	extractor intent.Extractor
	resolver  aitime.Resolver
	store     CalendarStore
	metrics   metrics.MetricsService
	loc       *time.Location
	now       func() time.Time
}

// Option configures a CalendarAgent.
type Option func(*CalendarAgent)

// WithMetrics records one request per handled utterance.
func WithMetrics(m metrics.MetricsService) Option {
	return func(a *CalendarAgent) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithLocation sets the reference location for relative times and replies.
func WithLocation(loc *time.Location) Option {
	return func(a *CalendarAgent) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithClock sets the source of the reference instant.
func WithClock(now func() time.Time) Option {
	return func(a *CalendarAgent) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates a calendar agent.
func New(extractor intent.Extractor, resolver aitime.Resolver, cs CalendarStore, opts ...Option) *CalendarAgent {
	a := &CalendarAgent{
		extractor: extractor,
		resolver:  resolver,
		store:     cs,
		metrics:   metrics.Nop{},
		loc:       time.Local,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// request is the state of one utterance moving through the pipeline.
type request struct {
	utterance string
	ref       time.Time
	p         *printer
	sess      *session.Session
	op        string
	source    string
}

// Handle runs one utterance through extraction, time resolution, the calendar operation
// and formatting. It always returns a Response.
func (a *CalendarAgent) Handle(ctx context.Context, utterance string, sess *session.Session) (resp *Response) {
	started := time.Now()
	req := &request{
		utterance: strings.TrimSpace(utterance),
		ref:       a.now().In(a.loc),
		p:         newPrinter(lang.Detect(utterance)),
		sess:      sess,
	}

	defer func() {
		if v := recover(); v != nil {
			slog.Error("panic while handling utterance", slog.Any("panic", v))
			resp = a.fail(req, panicError(v))
		}
		a.metrics.RecordRequest(ctx, req.op, string(resp.Status), time.Since(started))
		slog.Info("handled utterance",
			slog.String("operation", req.op),
			slog.String("status", string(resp.Status)),
			slog.String("source", req.source),
			slog.Duration("latency", time.Since(started)),
		)
	}()

	if sess != nil {
		if pending := sess.TakePending(req.ref); pending != nil {
			if resp, handled := a.resolvePending(ctx, req, pending); handled {
				return resp
			}
		}
	}

	if req.utterance == "" {
		return a.fail(req, intent.ErrEmptyUtterance)
	}
	it, err := a.extractor.Extract(ctx, req.utterance, req.ref)
	if err != nil {
		return a.fail(req, err)
	}
	req.op, req.source = string(it.Operation), string(it.Source)
	slog.Debug("extracted intent",
		slog.String("utterance", timeout.Truncate(req.utterance)),
		slog.Any("intent", it),
	)
	return a.dispatch(ctx, req, it)
}

// Calendars renders the list of available calendars.
func (a *CalendarAgent) Calendars(ctx context.Context, tag language.Tag) *Response {
	req := &request{op: "calendars", p: newPrinter(tag), ref: a.now().In(a.loc)}
	cals, err := a.store.ListCalendars(ctx)
	if err != nil {
		return a.fail(req, err)
	}
	if len(cals) == 0 {
		return a.reply(req, StatusSuccess, req.p.text(msgCalendarsEmpty), &Payload{})
	}

	var b strings.Builder
	b.WriteString(req.p.text(msgCalendarsHeader))
	for _, c := range cals {
		b.WriteString("\n• " + c.Name)
		if c.Default {
			b.WriteString(req.p.raw(msgDefaultMark))
		}
	}
	return a.reply(req, StatusSuccess, b.String(), &Payload{Calendars: cals})
}

func (a *CalendarAgent) dispatch(ctx context.Context, req *request, it intent.Intent) *Response {
	switch it.Operation {
	case intent.OpCreate:
		return a.create(ctx, req, it)
	case intent.OpRead:
		return a.read(ctx, req, it)
	case intent.OpSearch:
		return a.search(ctx, req, it)
	case intent.OpUpdate:
		return a.update(ctx, req, it)
	case intent.OpDelete:
		return a.delete(ctx, req, it)
	default:
		return a.fail(req, errors.New("unsupported operation "+string(it.Operation)))
	}
}

func (a *CalendarAgent) create(ctx context.Context, req *request, it intent.Intent) *Response {
	title := strings.TrimSpace(it.Title)
	if title == "" {
		return a.fail(req, ErrMissingTitle)
	}
	if !it.HasTime() {
		return a.fail(req, &aitime.ResolutionError{Code: aitime.CodeAmbiguousTime, Reason: "no time given"})
	}
	r, err := a.resolver.ResolveSpan(it.Start, it.End, req.ref, aitime.ModeCreate)
	if err != nil {
		return a.fail(req, err)
	}

	ev, err := a.store.Create(ctx, store.EventFields{
		Title:       title,
		Location:    it.Location,
		Description: it.Description,
		Start:       r.Start,
		End:         r.End,
		AllDay:      r.AllDay,
		Calendar:    a.calendarRef(req, it),
	})
	if err != nil {
		return a.fail(req, err)
	}
	text := req.p.text(msgCreated, ev.Title) + "\n" + req.p.eventDetails(ev, a.loc)
	return a.reply(req, StatusSuccess, text, &Payload{
		Events: []EventView{viewOf(ev, a.loc)},
		UIDs:   []string{ev.UID},
	})
}

func (a *CalendarAgent) read(ctx context.Context, req *request, it intent.Intent) *Response {
	r, err := a.readRange(req, it.Start, it.End)
	if err != nil {
		return a.fail(req, err)
	}
	events, err := a.store.Read(ctx, store.TimeRange{Start: r.Start, End: r.End}, a.calendarRef(req, it))
	if err != nil {
		return a.fail(req, err)
	}
	if len(events) == 0 {
		return a.reply(req, StatusSuccess, req.p.emptyRead(*r, req.ref), &Payload{})
	}

	var b strings.Builder
	b.WriteString(req.p.text(msgScheduleHeader) + "\n\n")
	req.p.eventList(&b, events, a.loc, !r.SingleDay())
	return a.reply(req, StatusSuccess, strings.TrimSpace(b.String()), &Payload{Events: viewsOf(events, a.loc)})
}

func (a *CalendarAgent) search(ctx context.Context, req *request, it intent.Intent) *Response {
	query := strings.TrimSpace(it.SearchQuery)
	if query == "" {
		query = strings.TrimSpace(it.Title)
	}
	if query == "" {
		req.op = string(intent.OpRead)
		return a.read(ctx, req, it)
	}

	var events []*store.Event
	var err error
	if it.HasTime() {
		events, err = a.searchWithin(ctx, req, it, query)
	} else {
		events, err = a.store.Search(ctx, query, a.calendarRef(req, it))
	}
	if err != nil {
		return a.fail(req, err)
	}
	if len(events) == 0 {
		return a.reply(req, StatusNotFound, req.p.text(msgSearchEmpty, query), &Payload{})
	}

	var b strings.Builder
	b.WriteString(req.p.text(msgSearchHeader, len(events), query) + "\n\n")
	req.p.eventList(&b, events, a.loc, true)
	return a.reply(req, StatusSuccess, strings.TrimSpace(b.String()), &Payload{Events: viewsOf(events, a.loc)})
}

// searchWithin matches query against the events of the intent's time range.
func (a *CalendarAgent) searchWithin(ctx context.Context, req *request, it intent.Intent, query string) ([]*store.Event, error) {
	r, err := a.readRange(req, it.Start, it.End)
	if err != nil {
		return nil, err
	}
	events, err := a.store.Read(ctx, store.TimeRange{Start: r.Start, End: r.End}, a.calendarRef(req, it))
	if err != nil {
		return nil, err
	}
	matched := events[:0]
	for _, ev := range events {
		if lang.ContainsFold(ev.Title, query) || lang.ContainsFold(ev.Description, query) {
			matched = append(matched, ev)
		}
	}
	return matched, nil
}

func (a *CalendarAgent) update(ctx context.Context, req *request, it intent.Intent) *Response {
	sel, err := a.selector(req, it)
	if err != nil {
		return a.fail(req, err)
	}

	patch := &session.Patch{Location: it.Location, Description: it.Description}
	if it.Target != "" && it.Title != "" && it.Title != it.Target {
		patch.Title = it.Title
	}
	if it.HasTime() {
		if err := a.resolveNewTime(req, it, patch); err != nil {
			return a.fail(req, err)
		}
	}
	if patchIsEmpty(patch) {
		return a.fail(req, ErrNothingToUpdate)
	}
	return a.execUpdate(ctx, req, sel, patch)
}

// resolveNewTime fills the patch from the new time of an update. A date without a clock time
// moves the event to that date and keeps its time of day.
func (a *CalendarAgent) resolveNewTime(req *request, it intent.Intent, patch *session.Patch) error {
	r, err := a.resolver.ResolveSpan(it.Start, it.End, req.ref, aitime.ModeUpdate)
	if err == nil {
		patch.Start, patch.End = &r.Start, &r.End
		if it.End == "" && !r.AllDay {
			// Only the start was given; the store keeps the event's duration.
			patch.End = nil
		}
		return nil
	}
	if !aitime.IsCode(err, aitime.CodeAmbiguousTime) {
		return err
	}

	day, dayErr := a.resolver.Resolve(it.Start, req.ref, aitime.ModeRead)
	if dayErr != nil {
		return err
	}
	if !day.SingleDay() {
		return err
	}
	patch.Day = &day.Start
	return nil
}

func (a *CalendarAgent) execUpdate(ctx context.Context, req *request, sel store.Selector, patch *session.Patch) *Response {
	ev, err := a.store.Update(ctx, sel, toStorePatch(patch))
	if err != nil {
		if se, ok := store.AsError(err); ok && se.Code == store.CodeAmbiguousTarget {
			return a.ask(req, string(intent.OpUpdate), se.Candidates, patch)
		}
		return a.fail(req, err)
	}
	text := req.p.text(msgUpdated, ev.Title) + "\n" + req.p.eventDetails(ev, a.loc)
	return a.reply(req, StatusSuccess, text, &Payload{
		Events: []EventView{viewOf(ev, a.loc)},
		UIDs:   []string{ev.UID},
	})
}

func (a *CalendarAgent) delete(ctx context.Context, req *request, it intent.Intent) *Response {
	sel, err := a.selector(req, it)
	if err != nil {
		return a.fail(req, err)
	}
	if it.TargetAll {
		return a.execDeleteAll(ctx, req, sel)
	}
	return a.execDelete(ctx, req, sel)
}

func (a *CalendarAgent) execDelete(ctx context.Context, req *request, sel store.Selector) *Response {
	ev, err := a.store.Delete(ctx, sel)
	if err != nil {
		if se, ok := store.AsError(err); ok && se.Code == store.CodeAmbiguousTarget {
			return a.ask(req, string(intent.OpDelete), se.Candidates, nil)
		}
		return a.fail(req, err)
	}
	text := req.p.text(msgDeleted, ev.Title) + "\n" +
		req.p.text(msgTimeLine, req.p.formatSpan(ev.Start.In(a.loc), ev.End.In(a.loc), ev.AllDay))
	return a.reply(req, StatusSuccess, text, &Payload{
		Events: []EventView{viewOf(ev, a.loc)},
		UIDs:   []string{ev.UID},
	})
}

func (a *CalendarAgent) execDeleteAll(ctx context.Context, req *request, sel store.Selector) *Response {
	deleted, err := a.store.DeleteAll(ctx, sel)
	if err != nil {
		resp := a.fail(req, err)
		if len(deleted) > 0 {
			resp.Payload.UIDs = uidsOf(deleted)
		}
		return resp
	}
	return a.reply(req, StatusSuccess, req.p.text(msgDeletedMany, len(deleted)), &Payload{
		Events: viewsOf(deleted, a.loc),
		UIDs:   uidsOf(deleted),
	})
}

// selector builds the target lookup of an update or delete.
func (a *CalendarAgent) selector(req *request, it intent.Intent) (store.Selector, error) {
	sel := store.Selector{
		Calendar: a.calendarRef(req, it),
		Title:    strings.TrimSpace(it.Selector()),
	}
	if it.TargetTime != "" {
		r, err := a.resolver.Resolve(it.TargetTime, req.ref, aitime.ModeRead)
		if err != nil {
			return sel, err
		}
		sel.Window = &store.TimeRange{Start: r.Start, End: r.End}
	}
	if sel.Title == "" && sel.Window == nil {
		return sel, ErrMissingTarget
	}
	return sel, nil
}

// readRange resolves the range of a read; no time means the reference day.
func (a *CalendarAgent) readRange(req *request, start, end string) (*aitime.TimeRange, error) {
	if strings.TrimSpace(start) == "" && strings.TrimSpace(end) == "" {
		r := aitime.DayRange(req.ref)
		return &r, nil
	}
	if strings.TrimSpace(start) == "" {
		start = end
		end = ""
	}
	return a.resolver.ResolveSpan(start, end, req.ref, aitime.ModeRead)
}

func (a *CalendarAgent) calendarRef(req *request, it intent.Intent) store.CalendarRef {
	if it.Calendar != "" {
		return store.CalendarRef(it.Calendar)
	}
	if req.sess != nil {
		return store.CalendarRef(req.sess.Calendar)
	}
	return ""
}

func (a *CalendarAgent) reply(req *request, status Status, text string, payload *Payload) *Response {
	if payload == nil {
		payload = &Payload{}
	}
	payload.Operation = req.op
	payload.Language = req.p.tag.String()
	payload.Source = req.source
	return &Response{Status: status, Text: text, Payload: payload}
}

func (a *CalendarAgent) fail(req *request, err error) *Response {
	c := classify(req.p, err)
	if c.status == StatusError {
		slog.Warn("utterance failed", slog.String("operation", req.op), slog.String("code", c.code), slog.Any("error", err))
	}
	return a.reply(req, c.status, c.text, &Payload{ErrorCode: c.code})
}

func patchIsEmpty(p *session.Patch) bool {
	return p.Title == "" && p.Location == "" && p.Description == "" &&
		p.Start == nil && p.End == nil && p.Day == nil
}

func toStorePatch(p *session.Patch) store.EventPatch {
	var patch store.EventPatch
	if p == nil {
		return patch
	}
	if p.Title != "" {
		patch.Title = &p.Title
	}
	if p.Location != "" {
		patch.Location = &p.Location
	}
	if p.Description != "" {
		patch.Description = &p.Description
	}
	patch.Start, patch.End, patch.Day = p.Start, p.End, p.Day
	return patch
}
