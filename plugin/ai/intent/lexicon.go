package intent

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/zwrong/Calendar-Agent/plugin/ai/lang"
)

// Lexicon holds the keyword tables of one language. Adding a language means adding a Lexicon.
type Lexicon struct {
	// Operations maps each operation to its trigger words.
	Operations map[Operation][]string
	// All marks a delete that targets every match ("所有", "all").
	All []string
	// MoveMarkers split an update into "<target> <marker> <new time>".
	MoveMarkers []string
	// Locations capture a location in group 1; the match up to the end of group 1 is removed.
	Locations []*regexp.Regexp
	// Prefixes and Suffixes are filler words trimmed from titles.
	Prefixes []string
	Suffixes []string
	// Generic words carry no title on their own ("日程", "schedule").
	Generic []string

	keywords []keyword
	markers  []keyword
}

type keyword struct {
	word string
	op   Operation
	re   *regexp.Regexp
}

// span is a located keyword.
type span struct {
	keyword
	start, end int
}

var zhLexicon = &Lexicon{
	Operations: map[Operation][]string{
		OpCreate: {"创建", "新建", "添加", "新增", "安排", "预定", "预约"},
		OpRead:   {"查看", "看看", "看一下", "显示", "列出", "检查", "有什么", "有哪些", "日程安排"},
		OpUpdate: {"更新", "修改", "改变", "调整", "重新安排", "改到", "改成", "改为", "推迟", "提前", "挪到", "移到"},
		OpDelete: {"删除", "删掉", "取消", "移除"},
		OpSearch: {"查找", "搜索", "寻找", "找一下", "找找", "搜一下"},
	},
	All:         []string{"所有", "全部", "全都"},
	MoveMarkers: []string{"改到", "改成", "改为", "推迟到", "提前到", "调整到", "挪到", "移到", "换到", "时间改为", "时间为"},
	Locations: []*regexp.Regexp{
		regexp.MustCompile(`地点[:：]?\s*([^，,。；;\s]+)`),
		regexp.MustCompile(`在([^，,。；;\s]{1,20}?)(?:开会|举行|召开|见面|碰面|集合|吃饭)`),
	},
	Prefixes: []string{"帮我", "请", "给我", "我要", "我想", "把", "将", "一个", "个", "的", "关于", "一下"},
	Suffixes: []string{"吧", "的", "一下", "。", "！", "!", "？", "?", "，", ","},
	Generic:  []string{"日程安排", "日程", "安排", "日历", "事件", "活动", "事情", "什么事", "事"},
}

var enLexicon = &Lexicon{
	Operations: map[Operation][]string{
		OpCreate: {"create", "add", "schedule", "book", "set up", "plan"},
		OpRead:   {"show", "list", "display", "view", "check", "what's on", "what is on", "what do i have", "agenda"},
		OpUpdate: {"update", "change", "modify", "reschedule", "move", "edit", "postpone", "push"},
		OpDelete: {"delete", "remove", "cancel", "clear", "drop"},
		OpSearch: {"search for", "search", "find", "look for", "look up"},
	},
	All:         []string{"all of", "all", "every"},
	MoveMarkers: []string{"to"},
	Locations: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\blocation\s*:?\s*([^,.;!?]+)`),
		regexp.MustCompile(`(?i)\b(?:at|in)\s+((?:the\s+)?(?:conference room|meeting room|room|office|lobby|cafe|cafeteria|library|gym)(?:\s+[\w-]+)?)`),
	},
	Prefixes: []string{"please", "can you", "could you", "me", "a", "an", "the", "my", "new", "event", "called", "named", "titled"},
	Suffixes: []string{"please", "on", "at", "for", "from", "in", ".", "!", "?", ","},
	Generic:  []string{"schedule", "calendar", "events", "event", "agenda", "meetings", "my", "for", "on", "today's"},
}

var lexicons = map[language.Tag]*Lexicon{
	lang.Chinese: zhLexicon,
	lang.English: enLexicon,
}

func init() {
	for _, lex := range lexicons {
		lex.compile()
	}
}

// LexiconFor returns the lexicon of a language, falling back to the default language.
func LexiconFor(tag language.Tag) *Lexicon {
	if lex, ok := lexicons[lang.Base(tag)]; ok {
		return lex
	}
	return lexicons[lang.Default]
}

func (l *Lexicon) compile() {
	for op, words := range l.Operations {
		for _, w := range words {
			l.keywords = append(l.keywords, keyword{word: w, op: op, re: wordPattern(w)})
		}
	}
	// Stable order keeps matching deterministic across map iteration.
	sort.Slice(l.keywords, func(i, j int) bool { return l.keywords[i].word < l.keywords[j].word })
	for _, w := range l.MoveMarkers {
		l.markers = append(l.markers, keyword{word: w, re: wordPattern(w)})
	}
}

// wordPattern matches Latin words on word boundaries, case-insensitively; CJK words match anywhere.
func wordPattern(w string) *regexp.Regexp {
	if isLatin(w) {
		parts := strings.Fields(regexp.QuoteMeta(w))
		return regexp.MustCompile(`(?i)\b` + strings.Join(parts, `\s+`) + `\b`)
	}
	return regexp.MustCompile(regexp.QuoteMeta(w))
}

// findOperation returns the earliest operation keyword in text across all lexicons,
// preferring the longest keyword at the same position.
func findOperation(text string) (span, bool) {
	var best span
	found := false
	for _, tag := range lang.Supported {
		for _, kw := range lexicons[tag].keywords {
			loc := kw.re.FindStringIndex(text)
			if loc == nil {
				continue
			}
			if !found || loc[0] < best.start || (loc[0] == best.start && loc[1] > best.end) {
				best = span{keyword: kw, start: loc[0], end: loc[1]}
				found = true
			}
		}
	}
	return best, found
}

// CommandKeyword reports the operation named in text and the text with that keyword removed.
func CommandKeyword(text string) (Operation, string, bool) {
	kw, ok := findOperation(text)
	if !ok {
		return "", text, false
	}
	return kw.op, strings.TrimSpace(cut(text, kw.start, kw.end)), true
}

// findMarker returns the earliest move marker starting at or after from.
func (l *Lexicon) findMarker(text string, from int) (span, bool) {
	var best span
	found := false
	for _, lex := range []*Lexicon{l, zhLexicon, enLexicon} {
		for _, kw := range lex.markers {
			for _, loc := range kw.re.FindAllStringIndex(text, -1) {
				if loc[0] < from {
					continue
				}
				if !found || loc[0] < best.start || (loc[0] == best.start && loc[1] > best.end) {
					best = span{keyword: kw, start: loc[0], end: loc[1]}
					found = true
				}
				break
			}
		}
	}
	return best, found
}

// stripAll removes "all" words and reports whether any was present.
func (l *Lexicon) stripAll(text string) (string, bool) {
	found := false
	for _, lex := range []*Lexicon{l, zhLexicon, enLexicon} {
		for _, w := range lex.All {
			re := wordPattern(w)
			if re.MatchString(text) {
				text = re.ReplaceAllString(text, " ")
				found = true
			}
		}
	}
	return text, found
}

// extractLocation removes the first location phrase from text and returns it.
func (l *Lexicon) extractLocation(text string) (string, string) {
	for _, re := range l.Locations {
		m := re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		loc := strings.TrimSpace(text[m[2]:m[3]])
		return text[:m[0]] + " " + text[m[3]:], loc
	}
	return text, ""
}

// clean trims filler words and punctuation from a title candidate.
func (l *Lexicon) clean(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	for changed := true; changed; {
		changed = false
		for _, p := range l.Prefixes {
			if rest, ok := cutPrefix(text, p); ok {
				text, changed = rest, true
			}
		}
		for _, s := range l.Suffixes {
			if rest, ok := cutSuffix(text, s); ok {
				text, changed = rest, true
			}
		}
	}
	return text
}

// isGeneric reports whether text consists only of generic words.
func (l *Lexicon) isGeneric(text string) bool {
	for _, g := range l.Generic {
		text = wordPattern(g).ReplaceAllString(text, " ")
	}
	return l.clean(text) == ""
}

func cutPrefix(text, p string) (string, bool) {
	if len(text) < len(p) || !strings.EqualFold(text[:len(p)], p) {
		return text, false
	}
	rest := text[len(p):]
	if rest != "" && isWordByte(p[len(p)-1]) && isWordByte(rest[0]) {
		return text, false
	}
	return strings.TrimSpace(rest), true
}

func cutSuffix(text, s string) (string, bool) {
	if len(text) < len(s) || !strings.EqualFold(text[len(text)-len(s):], s) {
		return text, false
	}
	rest := text[:len(text)-len(s)]
	if rest != "" && isWordByte(s[0]) && isWordByte(rest[len(rest)-1]) {
		return text, false
	}
	return strings.TrimSpace(rest), true
}

func isLatin(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || b == '\'' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
