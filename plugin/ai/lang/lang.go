// Package lang detects the language of an utterance and provides the language-keyed helpers
// shared by the keyword lexicons and reply templates.
package lang

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// Chinese is the tag used for Han-script utterances.
	Chinese = language.Chinese
	// English is the tag used for Latin-script utterances.
	English = language.English

	// Default is used when an utterance carries no letters at all ("1", "#2").
	Default = Chinese

	// Supported lists the languages that have lexicons and templates, in preference order.
	Supported = []language.Tag{Chinese, English}

	matcher = language.NewMatcher(Supported)
)

// englishCues are words that mark an utterance as English even when it quotes a Chinese title.
var englishCues = []string{
	"create", "add", "schedule", "show", "list", "view", "what", "update", "move",
	"reschedule", "change", "delete", "remove", "cancel", "search", "find", "look for",
}

// Detect returns the reply language for text using script counts.
// Han characters win unless the text starts with an English command word.
func Detect(text string) language.Tag {
	var han, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			han++
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			latin++
		}
	}

	switch {
	case han == 0 && latin == 0:
		return Default
	case han == 0:
		return English
	case latin == 0:
		return Chinese
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	for _, cue := range englishCues {
		if strings.HasPrefix(lower, cue) {
			return English
		}
	}
	return Chinese
}

// Parse maps a free-form language name or BCP 47 tag ("zh-CN", "en-US", "english")
// to the closest supported language.
func Parse(s string) language.Tag {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return Default
	case "chinese", "中文":
		return Chinese
	case "english", "英文":
		return English
	}
	tag, err := language.Parse(s)
	if err != nil {
		return Default
	}
	_, index, conf := matcher.Match(tag)
	if conf == language.No {
		return Default
	}
	return Supported[index]
}

// Base reduces a tag to its supported base language so it can key lookup tables.
func Base(tag language.Tag) language.Tag {
	_, index, _ := matcher.Match(tag)
	return Supported[index]
}

// Fold returns the Unicode case-folded form of s for case-insensitive matching.
// A Caser keeps state, so one is created per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether substr is within s under Unicode case folding.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
