package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zwrong/Calendar-Agent/plugin/ai/aitime"
	"github.com/zwrong/Calendar-Agent/plugin/ai/lang"
)

func TestPrinter_FormatSpan(t *testing.T) {
	zh := newPrinter(lang.Chinese)
	en := newPrinter(lang.English)

	tests := []struct {
		name   string
		p      *printer
		r      aitime.TimeRange
		allDay bool
		want   string
	}{
		{"same day", zh, aitime.TimeRange{Start: at(4, 15, 0), End: at(4, 16, 0)}, false, "2025-10-04 15:00 - 16:00"},
		{"across midnight", zh, aitime.TimeRange{Start: at(4, 23, 0), End: at(5, 1, 0)}, false, "2025-10-04 23:00 - 2025-10-05 01:00"},
		{"all day", zh, aitime.TimeRange{Start: at(4, 0, 0), End: at(5, 0, 0)}, true, "2025-10-04 (全天)"},
		{"all day english", en, aitime.TimeRange{Start: at(4, 0, 0), End: at(5, 0, 0)}, true, "2025-10-04 (all day)"},
		{"several days", en, aitime.TimeRange{Start: at(4, 0, 0), End: at(7, 0, 0)}, true, "2025-10-04 - 2025-10-06 (all day)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.formatSpan(tt.r.Start, tt.r.End, tt.allDay))
		})
	}
}

func TestPrinter_EmptyRead(t *testing.T) {
	zh := newPrinter(lang.Chinese)
	en := newPrinter(lang.English)

	week := aitime.TimeRange{Start: at(6, 0, 0), End: at(13, 0, 0)}
	assert.Equal(t, "📅 2025年10月06日 至 2025年10月12日 没有安排任何事件", zh.emptyRead(week, testRef))
	assert.Equal(t, "📅 Nothing scheduled from Mon, Oct 6 2025 to Sun, Oct 12 2025", en.emptyRead(week, testRef))
	assert.Equal(t, "📅 2025年10月08日 没有安排任何事件", zh.emptyRead(aitime.DayRange(at(8, 0, 0)), testRef))
}

func TestPrinter_Fallback(t *testing.T) {
	p := newPrinter(lang.Parse("fr"))
	assert.Equal(t, lang.Chinese, p.tag)
	assert.Equal(t, "请输入指令", p.text(msgErrEmpty))
	assert.Equal(t, "删除", p.verb("delete"))
}

func TestPrinter_PluralCounts(t *testing.T) {
	en := newPrinter(lang.English)
	zh := newPrinter(lang.Chinese)

	assert.Equal(t, "🔍 Found 1 event matching \"评审\":", en.text(msgSearchHeader, 1, "评审"))
	assert.Equal(t, "🔍 Found 2 events matching \"评审\":", en.text(msgSearchHeader, 2, "评审"))
	assert.Equal(t, "✅ Deleted 1 event", en.text(msgDeletedMany, 1))
	assert.Equal(t, "✅ Deleted 3 events", en.text(msgDeletedMany, 3))
	assert.Equal(t, "🔍 找到 1 个匹配「评审」的事件:", zh.text(msgSearchHeader, 1, "评审"))
}

func TestTemplates_Complete(t *testing.T) {
	for key := range templates[lang.Default] {
		for _, tag := range lang.Supported {
			_, ok := templates[tag][key]
			assert.True(t, ok, "%s has no %q template", tag, key)
		}
	}
}

func TestNormalizeChoice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2", "2"},
		{" 2。", "2"},
		{"我选第二个吧", "第二个"},
		{"The First One!", "first"},
		{"pick the second one", "second"},
		{"#3", "#3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeChoice(tt.in))
		})
	}
}

func TestParseOrdinal(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"1", 1, true},
		{"#3", 3, true},
		{"no.2", 2, true},
		{"第2个", 2, true},
		{"2nd", 2, true},
		{"两", 2, true},
		{"第十", 10, true},
		{"third", 3, true},
		{"last", 4, true},
		{"最后", 4, true},
		{"会议", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseOrdinal(tt.in, 4)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
