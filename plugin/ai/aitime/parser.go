package aitime

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	cnNum    = `[零〇一二两三四五六七八九十]{1,3}`
	zhPeriod = `凌晨|早上|早晨|上午|中午|下午|傍晚|晚上|今晚|夜里|夜间`
	// Chinese minutes without a trailing 分 are only accepted when they contain 十 ("三点十五").
	cnMinute = `[一二三四五]十[一二三四五六七八九]?|十[一二三四五六七八九]?`
	ampm     = `a\.m\.|p\.m\.|am\b|pm\b`
)

// period is the meridiem class of a clock time.
type period int

const (
	periodNone period = iota
	periodAM
	periodPM
	periodNoon
	periodEarly
	// periodNight is an evening part running to midnight; 12 in it is 24:00.
	periodNight
)

// dayPart is a named part of the day ("下午", "morning") with its default window in hours.
type dayPart struct {
	period period
	from   int
	to     int
}

var dayParts = map[string]dayPart{
	"凌晨":        {periodEarly, 0, 6},
	"早上":        {periodAM, 6, 9},
	"早晨":        {periodAM, 6, 9},
	"上午":        {periodAM, 6, 12},
	"中午":        {periodNoon, 11, 14},
	"下午":        {periodPM, 12, 18},
	"傍晚":        {periodPM, 17, 19},
	"晚上":        {periodNight, 18, 24},
	"今晚":        {periodNight, 18, 24},
	"夜里":        {periodNight, 21, 24},
	"夜间":        {periodNight, 21, 24},
	"morning":   {periodAM, 6, 12},
	"afternoon": {periodPM, 12, 18},
	"evening":   {periodNight, 18, 24},
	"tonight":   {periodNight, 18, 24},
	"night":     {periodNight, 21, 24},
}

// relDateOffsets maps relative date keywords to day offsets.
var relDateOffsets = map[string]int{
	"大后天":       3,
	"后天":        2,
	"明天":        1,
	"明日":        1,
	"今天":        0,
	"今日":        0,
	"昨天":        -1,
	"昨日":        -1,
	"前天":        -2,
	"today":     0,
	"tomorrow":  1,
	"yesterday": -1,
}

// weekdayIndex maps weekday names to an offset from Monday.
var weekdayIndex = map[string]int{
	"一": 0, "二": 1, "三": 2, "四": 3, "五": 4, "六": 5, "日": 6, "天": 6,
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

// weekOffsets maps week prefixes to a week offset.
var weekOffsets = map[string]int{
	"": 0, "这": 0, "这个": 0, "本": 0, "this": 0,
	"下": 1, "下个": 1, "下一": 1, "next": 1,
	"下下": 2, "下下个": 2,
	"上": -1, "上个": -1, "上一": -1, "last": -1,
}

var englishNumbers = map[string]float64{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
}

var cnDigits = map[rune]int{
	'零': 0, '〇': 0, '一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// clock is a time of day as written, before meridiem resolution.
type clock struct {
	hour   int
	minute int
	period period
	// cue24 marks hours that are unambiguous on a 24-hour clock ("15点", "08:00").
	cue24 bool
	// inherited marks a period taken from the other end of a range.
	inherited bool
}

func (c clock) hour24(policy MeridiemPolicy) int {
	h := c.hour
	switch c.period {
	case periodPM:
		if h < 12 {
			h += 12
		}
	case periodNight:
		if h <= 12 {
			h += 12
		}
	case periodNoon:
		if h < 11 {
			h += 12
		}
	case periodEarly:
		if h == 12 {
			h = 0
		}
	case periodAM:
	default:
		if !c.cue24 {
			h = policy.Hour(h)
		}
	}
	return h
}

type posClock struct {
	pos int
	clock
}

// scanner runs the matcher table over an expression. Matched text is masked so later
// matchers cannot reuse it; the masked spans are what Split reports as temporal text.
type scanner struct {
	ref   time.Time
	text  string
	buf   []byte
	spans [][2]int

	day      *time.Time
	span     *TimeRange
	anchor   *time.Time
	instant  *time.Time
	endAt    *time.Time
	start    *clock
	end      *clock
	clocks   []posClock
	part     *dayPart
	duration time.Duration
}

type match struct {
	text  string
	loc   []int
	names []string
}

func (m match) group(name string) string {
	for i, n := range m.names {
		if n == name && m.loc[2*i] >= 0 {
			return m.text[m.loc[2*i]:m.loc[2*i+1]]
		}
	}
	return ""
}

func (m match) start() int { return m.loc[0] }
func (m match) end() int   { return m.loc[1] }

// matcher applies one pattern. apply returns the end offset to mask, or -1 to reject the match.
type matcher struct {
	re    *regexp.Regexp
	apply func(s *scanner, m match) int
}

func newScanner(text string, ref time.Time) *scanner {
	return &scanner{ref: ref, text: text, buf: []byte(text)}
}

func (s *scanner) run() *scanner {
	for _, mt := range matchers {
		cur := string(s.buf)
		for _, loc := range mt.re.FindAllStringSubmatchIndex(cur, -1) {
			m := match{text: cur, loc: loc, names: mt.re.SubexpNames()}
			if end := mt.apply(s, m); end >= 0 {
				s.mask(m.start(), end)
			}
		}
	}
	sort.SliceStable(s.clocks, func(i, j int) bool { return s.clocks[i].pos < s.clocks[j].pos })
	for _, c := range s.clocks {
		switch {
		case s.start == nil && s.instant == nil:
			cc := c.clock
			s.start = &cc
		case s.end == nil && s.endAt == nil:
			cc := c.clock
			s.end = &cc
		}
	}
	return s
}

func (s *scanner) mask(from, to int) {
	for from < to && isSpace(s.buf[from]) {
		from++
	}
	for to > from && isSpace(s.buf[to-1]) {
		to--
	}
	if from >= to {
		return
	}
	for i := from; i < to; i++ {
		s.buf[i] = ' '
	}
	s.spans = append(s.spans, [2]int{from, to})
}

func (s *scanner) recognized() bool {
	return s.day != nil || s.span != nil || s.instant != nil || s.start != nil ||
		s.part != nil || s.duration > 0
}

func (s *scanner) midnight() time.Time {
	return StartOfDay(s.ref)
}

// mergedSpans returns the masked spans sorted by position with overlaps merged.
func (s *scanner) mergedSpans() [][2]int {
	spans := append([][2]int(nil), s.spans...)
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	var out [][2]int
	for _, sp := range spans {
		if n := len(out); n > 0 && sp[0] <= out[n-1][1] {
			if sp[1] > out[n-1][1] {
				out[n-1][1] = sp[1]
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}

var matchers = []matcher{
	// Explicit dates.
	{regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}(?:[T ]\d{1,2}:\d{2}(?::\d{2})?(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)?`), applyISO},
	{regexp.MustCompile(`(?:(?P<y>\d{4})\s*年\s*)?(?P<mo>\d{1,2})\s*月\s*(?P<d>\d{1,2})\s*[日号]?`), applyDate},
	{regexp.MustCompile(`\b(?P<y>\d{4})/(?P<mo>\d{1,2})/(?P<d>\d{1,2})\b`), applyDate},

	// Offsets from now: "2小时后", "in 3 days".
	{regexp.MustCompile(`(?P<n>\d+|` + cnNum + `|半)\s*个?\s*(?P<half>半)?\s*(?P<u>小时|钟头|分钟|天|周|星期|月)\s*(?:后|以后|之后)`), applyOffset},
	{regexp.MustCompile(`(?i)\bin\s+(?P<n>\d+|an?|one|two|three|four|five|six)\s+(?P<u>hours?|minutes?|mins?|days?|weeks?|months?)\b`), applyOffset},

	// Clock ranges.
	{regexp.MustCompile(`(?i)(?:from\s+|从\s*)?(?P<p1>` + zhPeriod + `)?\s*(?P<h1>\d{1,2})[:：](?P<m1>\d{2})\s*(?P<a1>` + ampm + `)?\s*(?:到|至|-|–|~|～|to|until|till)\s*(?P<p2>` + zhPeriod + `)?\s*(?P<h2>\d{1,2})[:：](?P<m2>\d{2})\s*(?P<a2>` + ampm + `)?`), applyRange},
	{regexp.MustCompile(`(?P<from>从)?\s*(?P<p1>` + zhPeriod + `)?\s*(?P<h1>\d{1,2}|` + cnNum + `)\s*(?P<u1>点钟|点|时)?\s*(?:(?P<half1>半)|(?P<m1>\d{1,2})\s*分?)?\s*(?:到|至|-|–|~|～)\s*(?P<p2>` + zhPeriod + `)?\s*(?P<h2>\d{1,2}|` + cnNum + `)\s*(?:点钟|点|时)\s*(?:(?P<half2>半)|(?P<m2>\d{1,2})\s*分?|(?P<m2cn>` + cnNum + `)\s*分)?`), applyRange},
	{regexp.MustCompile(`(?i)\b(?P<from>from\s+)?(?P<h1>\d{1,2})(?::(?P<m1>\d{2}))?\s*(?P<a1>` + ampm + `)?\s*(?:-|–|to|until|till)\s*(?P<h2>\d{1,2})(?::(?P<m2>\d{2}))?\s*(?P<a2>` + ampm + `)?`), applyRange},

	// Weekdays.
	{regexp.MustCompile(`(?P<pre>下下个|下下|下个|下一|下|上个|上一|上|这个|这|本)?\s*(?:周|星期|礼拜)(?P<d>[一二三四五六日天])`), applyWeekday},
	{regexp.MustCompile(`(?i)\b(?:on\s+)?(?:(?P<pre>this|next|last|coming)\s+)?(?P<d>monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`), applyWeekday},

	// Relative days.
	{regexp.MustCompile(`大后天|后天|明天|明日|今天|今日|昨天|昨日|前天`), applyRelativeDay},
	{regexp.MustCompile(`(?i)\b(?:(?P<dat>(?:the\s+)?day\s+after\s+tomorrow)|(?P<dby>(?:the\s+)?day\s+before\s+yesterday)|(?P<w>tomorrow|today|yesterday))\b`), applyRelativeDay},

	// Week and month spans.
	{regexp.MustCompile(`(?P<dir>下下个|下个|下一|下|上个|上一|上|这个|这|本)\s*(?P<unit>周|星期|礼拜|月)`), applySpan},
	{regexp.MustCompile(`(?i)\b(?P<dir>this|next|last)\s+(?P<unit>week|month)\b`), applySpan},

	// Durations.
	{regexp.MustCompile(`(?i)\bfor\s+an?\s+hour\s+and\s+a\s+half\b`), applyFixedDuration(90 * time.Minute)},
	{regexp.MustCompile(`(?i)\bfor\s+half\s+an?\s+hour\b`), applyFixedDuration(30 * time.Minute)},
	{regexp.MustCompile(`(?i)\bfor\s+(?P<n>\d+(?:\.\d+)?|an?|one|two|three|four|five|six)\s*(?P<u>hours?|hrs?|h|minutes?|mins?|m)\b`), applyDuration},
	{regexp.MustCompile(`(?P<n>\d+(?:\.\d+)?|` + cnNum + `)\s*个?\s*(?P<half>半)?\s*(?P<u>小时|钟头)`), applyDuration},
	{regexp.MustCompile(`半\s*个?\s*(?:小时|钟头)`), applyFixedDuration(30 * time.Minute)},
	{regexp.MustCompile(`(?P<n>\d+|` + cnNum + `)\s*(?P<u>分钟)`), applyDuration},

	// Clock times.
	{regexp.MustCompile(`(?i)(?:\bat\s+)?(?P<p>` + zhPeriod + `)?\s*(?P<h>\d{1,2})[:：](?P<m>\d{2})(?:\s*(?P<a>` + ampm + `))?`), applyClock},
	{regexp.MustCompile(`(?P<p>` + zhPeriod + `)?\s*(?P<h>\d{1,2}|` + cnNum + `)\s*(?:点钟|点|时)\s*(?:(?P<half>半)|(?P<q1>一刻)|(?P<q3>三刻)|(?P<m>\d{1,2})\s*分?|(?P<mcn>` + cnNum + `)\s*分|(?P<mcn2>` + cnMinute + `))?`), applyClock},
	{regexp.MustCompile(`(?i)(?:\bat\s+)?\b(?P<h>\d{1,2})(?:\.(?P<m>\d{2}))?\s*(?P<a>` + ampm + `)`), applyClock},
	{regexp.MustCompile(`(?i)(?:\bat\s+)?\b(?P<h>\d{1,2})\s*o'?clock\b`), applyClock},
	{regexp.MustCompile(`(?i)(?:\bat\s+)?\b(?P<w>noon|midnight)\b`), applyClock},
	{regexp.MustCompile(`(?i)\bat\s+(?P<h>\d{1,2})\b`), applyClock},

	// Parts of the day without a clock time.
	{regexp.MustCompile(zhPeriod), applyDayPart},
	{regexp.MustCompile(`(?i)\b(?:this\s+|in\s+the\s+)?(?P<p>morning|afternoon|evening|tonight|night)\b`), applyDayPart},
}

func applyISO(s *scanner, m match) int {
	v := strings.Replace(m.text[m.start():m.end()], " ", "T", 1)
	loc := s.ref.Location()

	zoned := []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00", "2006-01-02T15:04:05-0700"}
	for _, layout := range zoned {
		if t, err := time.Parse(layout, v); err == nil {
			return s.setInstant(t.In(loc), m.end())
		}
	}
	local := []string{"2006-1-2T15:04:05.999999999", "2006-1-2T15:04:05", "2006-1-2T15:04"}
	for _, layout := range local {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return s.setInstant(t, m.end())
		}
	}
	if t, err := time.ParseInLocation("2006-1-2", v, loc); err == nil {
		if s.day != nil {
			return -1
		}
		s.day = &t
		return m.end()
	}
	return -1
}

func (s *scanner) setInstant(t time.Time, end int) int {
	switch {
	case s.instant == nil:
		s.instant = &t
	case s.endAt == nil:
		s.endAt = &t
	default:
		return -1
	}
	return end
}

func applyDate(s *scanner, m match) int {
	if s.day != nil {
		return -1
	}
	year := s.ref.Year()
	if y := m.group("y"); y != "" {
		year, _ = strconv.Atoi(y)
	}
	month, _ := strconv.Atoi(m.group("mo"))
	day, _ := strconv.Atoi(m.group("d"))
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, s.ref.Location())
	if t.Month() != time.Month(month) || t.Day() != day {
		return -1
	}
	s.day = &t
	return m.end()
}

func applyOffset(s *scanner, m match) int {
	n, ok := parseAmount(m.group("n"))
	if !ok {
		return -1
	}
	if m.group("half") != "" {
		n += 0.5
	}
	unit := strings.ToLower(m.group("u"))
	switch {
	case unit == "小时" || unit == "钟头" || strings.HasPrefix(unit, "hour"):
		return s.setInstant(s.ref.Add(time.Duration(n*float64(time.Hour))), m.end())
	case unit == "分钟" || strings.HasPrefix(unit, "min"):
		return s.setInstant(s.ref.Add(time.Duration(n*float64(time.Minute))), m.end())
	}
	count := int(n)
	if s.day != nil || float64(count) != n {
		return -1
	}
	var t time.Time
	switch {
	case unit == "天" || strings.HasPrefix(unit, "day"):
		t = s.midnight().AddDate(0, 0, count)
	case unit == "周" || unit == "星期" || strings.HasPrefix(unit, "week"):
		t = s.midnight().AddDate(0, 0, 7*count)
	default:
		t = s.midnight().AddDate(0, count, 0)
	}
	s.day = &t
	return m.end()
}

func applyRange(s *scanner, m match) int {
	if s.start != nil {
		return -1
	}
	h1, ok1 := parseNumber(m.group("h1"))
	h2, ok2 := parseNumber(m.group("h2"))
	if !ok1 || !ok2 {
		return -1
	}
	u1 := m.group("u1")
	from := m.group("from")
	a1, a2 := normalizeAMPM(m.group("a1")), normalizeAMPM(m.group("a2"))
	colon := m.group("m1") != "" && strings.ContainsAny(m.text[m.start():m.end()], ":：")

	if !colon {
		if isDigits(m.group("h1")) && u1 == "" && from == "" && a1 == "" && a2 == "" && !strings.ContainsAny(m.text[m.start():m.end()], "点时") {
			// "2-4" on its own is not a time range.
			return -1
		}
		if !isDigits(m.group("h1")) && u1 == "" && from == "" {
			return -1
		}
	}

	start := clock{hour: h1, period: periodOf(m.group("p1"), a1)}
	end := clock{hour: h2, period: periodOf(m.group("p2"), a2)}
	start.minute = minuteOf(m.group("m1"), m.group("half1"), "", "")
	end.minute = minuteOf(m.group("m2"), m.group("half2"), m.group("m2cn"), "")
	if colon {
		start.cue24 = is24(m.group("h1"), h1)
		end.cue24 = is24(m.group("h2"), h2)
	} else {
		start.cue24 = h1 >= 13 || h1 == 0
		end.cue24 = h2 >= 13 || h2 == 0
	}
	if end.period == periodNone && start.period != periodNone && !end.cue24 {
		end.period, end.inherited = start.period, true
	}
	if start.period == periodNone && end.period != periodNone && !start.cue24 && h1 <= h2 {
		start.period, start.inherited = end.period, true
	}
	if !validClock(start) || !validClock(end) {
		return -1
	}
	s.start, s.end = &start, &end
	return m.end()
}

func applyWeekday(s *scanner, m match) int {
	if s.day != nil {
		return -1
	}
	target, ok := weekdayIndex[strings.ToLower(m.group("d"))]
	if !ok {
		return -1
	}
	pre := strings.ToLower(m.group("pre"))
	cur := mondayIndex(s.ref)
	var diff int
	switch pre {
	case "", "coming":
		if isASCII(m.group("d")) {
			// "friday" means the next friday on or after today.
			diff = (target - cur + 7) % 7
		} else {
			diff = target - cur
		}
	default:
		diff = weekOffsets[pre]*7 + target - cur
	}
	t := s.midnight().AddDate(0, 0, diff)
	s.day = &t
	return m.end()
}

func applyRelativeDay(s *scanner, m match) int {
	if s.day != nil {
		return -1
	}
	var offset int
	switch {
	case m.group("dat") != "":
		offset = 2
	case m.group("dby") != "":
		offset = -2
	case m.group("w") != "":
		offset = relDateOffsets[strings.ToLower(m.group("w"))]
	default:
		offset = relDateOffsets[m.text[m.start():m.end()]]
	}
	t := s.midnight().AddDate(0, 0, offset)
	s.day = &t
	return m.end()
}

func applySpan(s *scanner, m match) int {
	if s.span != nil || s.day != nil {
		return -1
	}
	offset, ok := weekOffsets[strings.ToLower(m.group("dir"))]
	if !ok {
		return -1
	}
	midnight := s.midnight()
	var rng TimeRange
	var anchor time.Time
	switch strings.ToLower(m.group("unit")) {
	case "月", "month":
		first := time.Date(midnight.Year(), midnight.Month(), 1, 0, 0, 0, 0, midnight.Location()).AddDate(0, offset, 0)
		rng = TimeRange{Start: first, End: first.AddDate(0, 1, 0), AllDay: true}
		anchor = midnight.AddDate(0, offset, 0)
	default:
		monday := midnight.AddDate(0, 0, -mondayIndex(midnight)+7*offset)
		rng = TimeRange{Start: monday, End: monday.AddDate(0, 0, 7), AllDay: true}
		anchor = midnight.AddDate(0, 0, 7*offset)
	}
	s.span, s.anchor = &rng, &anchor
	return m.end()
}

func applyFixedDuration(d time.Duration) func(s *scanner, m match) int {
	return func(s *scanner, m match) int {
		if s.duration > 0 {
			return -1
		}
		s.duration = d
		return m.end()
	}
}

func applyDuration(s *scanner, m match) int {
	if s.duration > 0 {
		return -1
	}
	n, ok := parseAmount(m.group("n"))
	if !ok || n <= 0 {
		return -1
	}
	unit := strings.ToLower(m.group("u"))
	switch {
	case unit == "小时" || unit == "钟头" || strings.HasPrefix(unit, "h"):
		if m.group("half") != "" {
			n += 0.5
		}
		s.duration = time.Duration(n * float64(time.Hour))
	default:
		s.duration = time.Duration(n * float64(time.Minute))
	}
	return m.end()
}

func applyClock(s *scanner, m match) int {
	var c clock
	switch strings.ToLower(m.group("w")) {
	case "noon":
		c = clock{hour: 12, cue24: true}
	case "midnight":
		c = clock{hour: 0, cue24: true}
	default:
		h, ok := parseNumber(m.group("h"))
		if !ok {
			return -1
		}
		a := normalizeAMPM(m.group("a"))
		c = clock{hour: h, period: periodOf(m.group("p"), a)}
		if a == "am" && h == 12 {
			c.period = periodEarly
		}
		if strings.ContainsAny(m.text[m.start():m.end()], ":：") {
			c.cue24 = is24(m.group("h"), h)
		} else {
			c.cue24 = h >= 13 || h == 0
		}
		switch {
		case m.group("q1") != "":
			c.minute = 15
		case m.group("q3") != "":
			c.minute = 45
		default:
			c.minute = minuteOf(m.group("m"), m.group("half"), m.group("mcn"), m.group("mcn2"))
		}
	}
	if !validClock(c) {
		return -1
	}
	s.clocks = append(s.clocks, posClock{pos: m.start(), clock: c})
	return m.end()
}

func applyDayPart(s *scanner, m match) int {
	if s.part != nil {
		return -1
	}
	word := m.group("p")
	if word == "" {
		word = m.text[m.start():m.end()]
	}
	part, ok := dayParts[strings.ToLower(word)]
	if !ok {
		return -1
	}
	s.part = &part
	return m.end()
}

func periodOf(zh, ampm string) period {
	switch ampm {
	case "am":
		return periodAM
	case "pm":
		return periodPM
	}
	if part, ok := dayParts[zh]; ok {
		return part.period
	}
	return periodNone
}

func normalizeAMPM(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), ".", "")
}

func minuteOf(digits, half, cn, cnBare string) int {
	switch {
	case half != "":
		return 30
	case digits != "":
		n, _ := strconv.Atoi(digits)
		return n
	case cn != "":
		n, _ := parseChineseNumber(cn)
		return n
	case cnBare != "":
		n, _ := parseChineseNumber(cnBare)
		return n
	}
	return 0
}

func validClock(c clock) bool {
	return c.hour >= 0 && c.hour <= 24 && c.minute >= 0 && c.minute < 60 && !(c.hour == 24 && c.minute > 0)
}

// is24 reports a 24-hour cue in a colon clock: zero-padded ("08:00"), 0 or >= 13.
func is24(raw string, hour int) bool {
	return (len(raw) == 2 && raw[0] == '0') || hour == 0 || hour >= 13
}

func mondayIndex(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return wd - 1
}

func parseNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	return parseChineseNumber(s)
}

func parseAmount(s string) (float64, bool) {
	switch s {
	case "":
		return 0, false
	case "半":
		return 0.5, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if f, ok := englishNumbers[strings.ToLower(s)]; ok {
		return f, true
	}
	n, ok := parseChineseNumber(s)
	return float64(n), ok
}

// parseChineseNumber parses numbers up to 99 written with Chinese numerals ("十五", "二十三", "两").
func parseChineseNumber(s string) (int, bool) {
	total, cur := 0, 0
	seen := false
	for _, r := range s {
		if r == '十' {
			if cur == 0 {
				cur = 1
			}
			total += cur * 10
			cur = 0
			seen = true
			continue
		}
		d, ok := cnDigits[r]
		if !ok {
			return 0, false
		}
		cur = d
		seen = true
	}
	return total + cur, seen
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
