package aitime

import (
	"regexp"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// fallbackParser handles English phrases the rule tables do not cover ("next friday at 5", "march 3rd").
type fallbackParser interface {
	parse(expr string, ref time.Time) (t time.Time, hasClock bool, ok bool)
}

var (
	latinPattern = regexp.MustCompile(`[A-Za-z]`)
	clockCue     = regexp.MustCompile(`(?i)\d\s*(?:am|pm|a\.m\.|p\.m\.|o'?clock)|\d:\d{2}|\bnoon\b|\bmidnight\b`)
)

type englishParser struct {
	w *when.Parser
}

func newEnglishParser() *englishParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &englishParser{w: w}
}

func (p *englishParser) parse(expr string, ref time.Time) (time.Time, bool, bool) {
	if !latinPattern.MatchString(expr) {
		return time.Time{}, false, false
	}
	result, err := p.w.Parse(expr, ref)
	if err != nil || result == nil {
		return time.Time{}, false, false
	}
	return result.Time.In(ref.Location()), clockCue.MatchString(result.Text), true
}
