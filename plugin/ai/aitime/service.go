package aitime

import (
	"strings"
	"time"
)

// DefaultDuration is applied when an expression has a start but no end or duration.
const DefaultDuration = time.Hour

// Service implements Resolver with table-driven rules plus an English fallback parser.
type Service struct {
	policy   MeridiemPolicy
	duration time.Duration
	fallback fallbackParser
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMeridiemPolicy overrides the bare-hour policy.
func WithMeridiemPolicy(p MeridiemPolicy) Option {
	return func(s *Service) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithDefaultDuration overrides the 1 hour default duration.
func WithDefaultDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.duration = d
		}
	}
}

// WithoutFallback disables the English fallback parser.
func WithoutFallback() Option {
	return func(s *Service) {
		s.fallback = nil
	}
}

// NewService creates a new resolver.
func NewService(opts ...Option) *Service {
	s := &Service{
		policy:   DefaultMeridiemPolicy,
		duration: DefaultDuration,
		fallback: newEnglishParser(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve implements Resolver.
func (s *Service) Resolve(expr string, ref time.Time, mode Mode) (*TimeRange, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, unparseable(expr, "empty expression")
	}

	sc := newScanner(expr, ref).run()
	if !sc.recognized() && s.fallback != nil {
		if t, hasClock, ok := s.fallback.parse(expr, ref); ok {
			if hasClock {
				sc.instant = &t
			} else {
				day := StartOfDay(t)
				sc.day = &day
			}
		}
	}
	if !sc.recognized() {
		return nil, unparseable(expr, "no date or time found")
	}
	return s.build(expr, sc, mode)
}

func (s *Service) build(expr string, sc *scanner, mode Mode) (*TimeRange, error) {
	var start time.Time

	switch {
	case sc.instant != nil:
		start = *sc.instant
	case sc.start != nil:
		day := sc.midnight()
		if sc.day != nil {
			day = *sc.day
		} else if sc.anchor != nil {
			day = *sc.anchor
		}
		c := *sc.start
		if c.period == periodNone && sc.part != nil && !c.cue24 {
			c.period = sc.part.period
		}
		start = atClock(day, c.hour24(s.policy), c.minute)
	default:
		if mode != ModeRead {
			return nil, ambiguous(expr, "no start time given")
		}
		return readRange(sc), nil
	}

	var end time.Time
	switch {
	case sc.endAt != nil:
		end = *sc.endAt
	case sc.end != nil:
		c := *sc.end
		h := c.hour24(s.policy)
		end = atClock(StartOfDay(start), h, c.minute)
		if !end.After(start) && c.period == periodNone && !c.cue24 && h < 12 {
			end = end.Add(12 * time.Hour)
		}
		if !end.After(start) {
			end = nextDayEnd(start, c, h, end)
		}
	case sc.duration > 0:
		end = start.Add(sc.duration)
	default:
		end = start.Add(s.duration)
	}

	if !end.After(start) {
		return nil, unparseable(expr, "end is not after start")
	}
	return &TimeRange{Start: start, End: end}, nil
}

// maxOvernight bounds a range that runs past midnight ("晚上11点半到1点").
const maxOvernight = 12 * time.Hour

// nextDayEnd moves a range end that is not after an evening start to the next day. An end with
// its own afternoon period is left alone.
func nextDayEnd(start time.Time, c clock, hour int, end time.Time) time.Time {
	if start.Hour() < 18 {
		return end
	}
	if !c.inherited && (c.period == periodPM || c.period == periodNoon || c.period == periodNight) {
		return end
	}
	if !c.cue24 {
		hour %= 12
	}
	next := atClock(StartOfDay(start).AddDate(0, 0, 1), hour, c.minute)
	if next.Sub(start) > maxOvernight {
		return end
	}
	return next
}

// readRange builds the whole-day (or part-of-day, week, month) range used when no clock was given.
func readRange(sc *scanner) *TimeRange {
	if sc.span != nil && sc.day == nil {
		r := *sc.span
		return &r
	}
	day := sc.midnight()
	if sc.day != nil {
		day = *sc.day
	}
	if sc.part != nil {
		return &TimeRange{
			Start: atClock(day, sc.part.from, 0),
			End:   atClock(day, sc.part.to, 0),
		}
	}
	r := DayRange(day)
	return &r
}

// ResolveSpan implements Resolver.
func (s *Service) ResolveSpan(startExpr, endExpr string, ref time.Time, mode Mode) (*TimeRange, error) {
	r, err := s.Resolve(startExpr, ref, mode)
	if err != nil || strings.TrimSpace(endExpr) == "" {
		return r, err
	}

	endExpr = strings.TrimSpace(endExpr)
	sc := newScanner(endExpr, ref).run()
	var end time.Time
	switch {
	case sc.instant != nil:
		end = *sc.instant
	case sc.start != nil:
		day := StartOfDay(r.Start)
		if sc.day != nil {
			day = *sc.day
		}
		c := *sc.start
		end = atClock(day, c.hour24(s.policy), c.minute)
	case sc.day != nil && mode == ModeRead:
		end = sc.day.AddDate(0, 0, 1)
	default:
		return nil, unparseable(endExpr, "no end time found")
	}

	if !end.After(r.Start) {
		return nil, unparseable(startExpr+" - "+endExpr, "end is not after start")
	}
	return &TimeRange{Start: r.Start, End: end, AllDay: r.AllDay && sc.start == nil && sc.instant == nil}, nil
}

// Split implements Resolver.
func (s *Service) Split(text string) (string, string) {
	sc := newScanner(text, s.now()).run()
	spans := sc.mergedSpans()
	if len(spans) == 0 {
		return "", strings.TrimSpace(text)
	}

	parts := make([]string, 0, len(spans))
	var rest strings.Builder
	prev := 0
	for _, sp := range spans {
		rest.WriteString(text[prev:sp[0]])
		rest.WriteByte(' ')
		parts = append(parts, text[sp[0]:sp[1]])
		prev = sp[1]
	}
	rest.WriteString(text[prev:])
	return strings.Join(parts, " "), collapse(rest.String())
}

func atClock(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

// collapse joins the fields of s with single spaces, dropping the space between two CJK runs.
func collapse(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fields[0])
	for _, f := range fields[1:] {
		if !isASCII(lastRune(b.String())) && !isASCII(firstRune(f)) {
			b.WriteString(f)
			continue
		}
		b.WriteByte(' ')
		b.WriteString(f)
	}
	return b.String()
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

func lastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return ""
	}
	return string(r[len(r)-1])
}

var _ Resolver = (*Service)(nil)
