package agent

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zwrong/Calendar-Agent/plugin/ai/aitime"
	"github.com/zwrong/Calendar-Agent/plugin/ai/intent"
	"github.com/zwrong/Calendar-Agent/plugin/ai/lang"
	"github.com/zwrong/Calendar-Agent/plugin/ai/session"
	"github.com/zwrong/Calendar-Agent/store"
)

var (
	digitOrdinal   = regexp.MustCompile(`^(?:#|no\.?|number|option|第)?\s*(\d{1,2})\s*(?:个|号|项|st|nd|rd|th)?$`)
	chineseOrdinal = regexp.MustCompile(`^第?([一二两三四五六七八九十])个?$`)
)

var chineseDigits = map[string]int{
	"一": 1, "二": 2, "两": 2, "三": 3, "四": 4, "五": 5,
	"六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
}

var englishOrdinals = map[string]int{
	"one": 1, "first": 1,
	"two": 2, "second": 2,
	"three": 3, "third": 3,
	"four": 4, "fourth": 4,
	"five": 5, "fifth": 5,
	"six": 6, "sixth": 6,
	"seven": 7, "seventh": 7,
	"eight": 8, "eighth": 8,
	"nine": 9, "ninth": 9,
	"ten": 10, "tenth": 10,
}

// choicePrefixes and choiceSuffixes wrap an ordinal in a selection reply ("选第二个", "the first one").
var (
	choicePrefixes = []string{"我选择", "我选", "选择", "选", "就", "要", "the ", "pick ", "choose ", "take "}
	choiceSuffixes = []string{"吧", "那个", "那一个", " one", " please"}
)

// ask stores a pending selection on the session and renders the candidates.
func (a *CalendarAgent) ask(req *request, op string, events []*store.Event, patch *session.Patch) *Response {
	candidates := candidatesOf(events)
	if req.sess != nil {
		req.sess.SetPending(&session.PendingSelection{
			Operation:  op,
			Candidates: candidates,
			Patch:      patch,
			Lang:       req.p.tag.String(),
		}, req.ref)
	}

	var b strings.Builder
	b.WriteString(req.p.text(msgAmbiguous, len(candidates), req.p.verb(op)) + "\n")
	req.p.candidateList(&b, candidates, a.loc)
	b.WriteString(req.p.text(msgAmbiguousFooter))
	return a.reply(req, StatusAmbiguous, b.String(), &Payload{Candidates: candidateViews(candidates, a.loc)})
}

// resolvePending answers a disambiguation question. A reply naming another operation is handled
// as a new command and reported as not handled; any other reply that selects no candidate cancels
// the pending operation.
func (a *CalendarAgent) resolvePending(ctx context.Context, req *request, pending *session.PendingSelection) (*Response, bool) {
	idx, ok := a.selectCandidate(req.utterance, pending.Candidates, req.ref)
	if !ok {
		op, rest, isCommand := intent.CommandKeyword(req.utterance)
		if isCommand && string(op) == pending.Operation {
			// "删除第二个"
			idx, ok = a.selectCandidate(rest, pending.Candidates, req.ref)
		}
		if !ok && isCommand && rest != "" {
			slog.Info("pending selection replaced by a new command",
				slog.String("operation", pending.Operation),
				slog.String("command", string(op)),
			)
			return nil, false
		}
	}

	req.op = pending.Operation
	req.p = newPrinter(lang.Parse(pending.Lang))
	if !ok {
		slog.Info("pending selection cancelled",
			slog.String("operation", pending.Operation),
			slog.Int("candidates", len(pending.Candidates)),
		)
		return a.reply(req, StatusError, req.p.text(msgCancelled), &Payload{ErrorCode: CodeCancelled}), true
	}

	c := pending.Candidates[idx]
	sel := store.Selector{
		Calendar: store.CalendarRef(c.Calendar),
		UID:      c.UID,
		Window:   &store.TimeRange{Start: c.Start, End: c.End},
	}
	switch intent.Operation(pending.Operation) {
	case intent.OpUpdate:
		return a.execUpdate(ctx, req, sel, pending.Patch), true
	case intent.OpDelete:
		return a.execDelete(ctx, req, sel), true
	default:
		return a.reply(req, StatusError, req.p.text(msgCancelled), &Payload{ErrorCode: CodeCancelled}), true
	}
}

// selectCandidate picks a candidate by ordinal, by time, or by a title or location unique to it.
func (a *CalendarAgent) selectCandidate(reply string, candidates []session.Candidate, ref time.Time) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	text := normalizeChoice(reply)
	if text == "" {
		return 0, false
	}

	if n, ok := parseOrdinal(text, len(candidates)); ok {
		if n >= 1 && n <= len(candidates) {
			return n - 1, true
		}
		return 0, false
	}
	if idx, ok := a.matchTime(reply, candidates, ref); ok {
		return idx, true
	}
	return matchText(text, candidates)
}

// parseOrdinal reads a 1-based position. last is the position of the final candidate.
func parseOrdinal(text string, last int) (int, bool) {
	if m := digitOrdinal.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	if m := chineseOrdinal.FindStringSubmatch(text); m != nil {
		return chineseDigits[m[1]], true
	}
	if n, ok := englishOrdinals[text]; ok {
		return n, true
	}
	switch text {
	case "last", "最后", "最后一个", "最后那个":
		return last, true
	}
	return 0, false
}

// matchTime resolves the reply as a time and picks the candidate starting then, or the only
// candidate on the resolved day.
func (a *CalendarAgent) matchTime(reply string, candidates []session.Candidate, ref time.Time) (int, bool) {
	r, err := a.resolver.Resolve(reply, ref, aitime.ModeRead)
	if err != nil {
		return 0, false
	}
	if !r.AllDay {
		if idx, ok := unique(candidates, func(c session.Candidate) bool { return c.Start.Equal(r.Start) }); ok {
			return idx, true
		}
	}
	return unique(candidates, func(c session.Candidate) bool { return r.Contains(c.Start) })
}

func matchText(text string, candidates []session.Candidate) (int, bool) {
	if idx, ok := unique(candidates, func(c session.Candidate) bool { return lang.ContainsFold(c.Title, text) }); ok {
		return idx, true
	}
	return unique(candidates, func(c session.Candidate) bool {
		return c.Location != "" && lang.ContainsFold(c.Location, text)
	})
}

// unique returns the index of the only candidate matching fn.
func unique(candidates []session.Candidate, fn func(session.Candidate) bool) (int, bool) {
	found := -1
	for i, c := range candidates {
		if !fn(c) {
			continue
		}
		if found >= 0 {
			return 0, false
		}
		found = i
	}
	return found, found >= 0
}

// normalizeChoice folds a selection reply and strips punctuation and filler words.
func normalizeChoice(reply string) string {
	text := strings.TrimSpace(lang.Fold(reply))
	text = strings.TrimRight(text, "。.!！?？ ")
	for _, p := range choicePrefixes {
		if rest, ok := strings.CutPrefix(text, p); ok {
			text = strings.TrimSpace(rest)
			break
		}
	}
	for _, s := range choiceSuffixes {
		if rest, ok := strings.CutSuffix(text, s); ok && rest != "" {
			text = strings.TrimSpace(rest)
			break
		}
	}
	if rest, ok := strings.CutPrefix(text, "the "); ok {
		text = rest
	}
	return text
}
