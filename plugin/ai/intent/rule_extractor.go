package intent

import (
	"context"
	"strings"
	"time"

	"github.com/zwrong/Calendar-Agent/plugin/ai/lang"
)

// Splitter separates temporal phrases from the rest of a text.
// aitime.Resolver satisfies it.
type Splitter interface {
	Split(text string) (expr string, rest string)
}

// RuleExtractor is the local keyword-driven extractor. It never fails on non-empty input.
type RuleExtractor struct {
	splitter Splitter
}

// NewRuleExtractor creates a rule extractor.
func NewRuleExtractor(splitter Splitter) *RuleExtractor {
	return &RuleExtractor{splitter: splitter}
}

// Extract implements Extractor.
func (e *RuleExtractor) Extract(_ context.Context, utterance string, _ time.Time) (Intent, error) {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return Intent{}, ErrEmptyUtterance
	}
	lex := LexiconFor(lang.Detect(text))

	kw, found := findOperation(text)
	if !found {
		return e.withoutKeyword(text, lex), nil
	}

	it := Intent{Operation: kw.op, Source: SourceRule}
	if kw.op == OpUpdate {
		e.fillUpdate(&it, text, kw, lex)
		return it, nil
	}

	rest := cut(text, kw.start, kw.end)
	switch kw.op {
	case OpCreate:
		rest, it.Location = lex.extractLocation(rest)
		expr, remaining := e.splitter.Split(rest)
		it.Start = expr
		it.Title = lex.clean(remaining)

	case OpRead:
		it.Start, _ = e.splitter.Split(rest)

	case OpDelete:
		rest, it.TargetAll = lex.stripAll(rest)
		expr, remaining := e.splitter.Split(rest)
		it.TargetTime = expr
		it.Target = lex.clean(remaining)
		if lex.isGeneric(it.Target) {
			it.Target = ""
		}

	case OpSearch:
		expr, remaining := e.splitter.Split(rest)
		it.SearchQuery = lex.clean(remaining)
		if it.SearchQuery == "" || lex.isGeneric(it.SearchQuery) {
			// "查找明天的日程" has nothing to search for; list the day instead.
			it.Operation = OpRead
			it.SearchQuery = ""
			it.Start = expr
		}
	}
	return it, nil
}

// fillUpdate splits "<target> <marker> <new time>". Without a marker the time found is the new time.
func (e *RuleExtractor) fillUpdate(it *Intent, text string, kw span, lex *Lexicon) {
	if m, ok := lex.findMarker(text, kw.start); ok {
		after := text[m.end:]
		if newExpr, _ := e.splitter.Split(after); newExpr != "" {
			before := text[:m.start]
			if kw.end <= m.start {
				before = cut(text[:m.start], kw.start, kw.end)
			} else if kw.start < m.start {
				before = text[:kw.start]
			}
			targetExpr, target := e.splitter.Split(before)
			it.Start = newExpr
			it.TargetTime = targetExpr
			it.Target = lex.clean(target)
			return
		}
	}

	expr, remaining := e.splitter.Split(cut(text, kw.start, kw.end))
	it.Start = expr
	it.Target = lex.clean(remaining)
}

// withoutKeyword handles utterances with no operation word: a lone time phrase is a read,
// anything else is a search for the remaining text.
func (e *RuleExtractor) withoutKeyword(text string, lex *Lexicon) Intent {
	expr, remaining := e.splitter.Split(text)
	query := lex.clean(remaining)
	if query == "" || lex.isGeneric(query) {
		return Intent{Operation: OpRead, Start: expr, Source: SourceRule}
	}
	return Intent{Operation: OpSearch, SearchQuery: query, Source: SourceRule}
}

func cut(text string, start, end int) string {
	return text[:start] + " " + text[end:]
}

var _ Extractor = (*RuleExtractor)(nil)
