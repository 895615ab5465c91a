package intent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zwrong/Calendar-Agent/plugin/ai/aitime"
)

var testRef = time.Date(2025, 10, 3, 10, 0, 0, 0, time.FixedZone("CST", 8*3600))

func newTestRuleExtractor() *RuleExtractor {
	return NewRuleExtractor(aitime.NewService())
}

func TestRuleExtractor_Chinese(t *testing.T) {
	e := newTestRuleExtractor()

	tests := []struct {
		name  string
		input string
		want  Intent
	}{
		{
			name:  "create with time and participant",
			input: "创建明天下午3点和张三的会议",
			want:  Intent{Operation: OpCreate, Title: "和张三的会议", Start: "明天下午3点"},
		},
		{
			name:  "create with polite prefix",
			input: "帮我安排明天下午3点的会议",
			want:  Intent{Operation: OpCreate, Title: "会议", Start: "明天下午3点"},
		},
		{
			name:  "create with location",
			input: "新建后天上午10点的项目评审，地点：A301",
			want:  Intent{Operation: OpCreate, Title: "项目评审", Location: "A301", Start: "后天上午10点"},
		},
		{
			name:  "read today",
			input: "查看今天的日程",
			want:  Intent{Operation: OpRead, Start: "今天"},
		},
		{
			name:  "read with question word",
			input: "明天有什么安排",
			want:  Intent{Operation: OpRead, Start: "明天"},
		},
		{
			name:  "delete by title",
			input: "删除和张三的会议",
			want:  Intent{Operation: OpDelete, Target: "和张三的会议"},
		},
		{
			name:  "delete all matches on a day",
			input: "取消所有明天的会议",
			want:  Intent{Operation: OpDelete, Target: "会议", TargetTime: "明天", TargetAll: true},
		},
		{
			name:  "update with move marker",
			input: "把明天和张三的会议改到后天下午4点",
			want:  Intent{Operation: OpUpdate, Target: "和张三的会议", TargetTime: "明天", Start: "后天下午4点"},
		},
		{
			name:  "update with postpone marker",
			input: "项目评审推迟到下午5点",
			want:  Intent{Operation: OpUpdate, Target: "项目评审", Start: "下午5点"},
		},
		{
			name:  "search",
			input: "搜索项目评审",
			want:  Intent{Operation: OpSearch, SearchQuery: "项目评审"},
		},
		{
			name:  "search without query becomes read",
			input: "查找明天的日程",
			want:  Intent{Operation: OpRead, Start: "明天"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(context.Background(), tt.input, testRef)
			require.NoError(t, err)
			tt.want.Source = SourceRule
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleExtractor_English(t *testing.T) {
	e := newTestRuleExtractor()

	tests := []struct {
		name  string
		input string
		want  Intent
	}{
		{
			name:  "create",
			input: "schedule team sync tomorrow at 3pm",
			want:  Intent{Operation: OpCreate, Title: "team sync", Start: "tomorrow at 3pm"},
		},
		{
			name:  "create with room",
			input: "Add design review tomorrow at 3pm in room 401",
			want:  Intent{Operation: OpCreate, Title: "design review", Location: "room 401", Start: "tomorrow at 3pm"},
		},
		{
			name:  "read",
			input: "show my schedule for tomorrow",
			want:  Intent{Operation: OpRead, Start: "tomorrow"},
		},
		{
			name:  "delete",
			input: "cancel the standup tomorrow",
			want:  Intent{Operation: OpDelete, Target: "standup", TargetTime: "tomorrow"},
		},
		{
			name:  "update with to marker",
			input: "move standup to 4pm tomorrow",
			want:  Intent{Operation: OpUpdate, Target: "standup", Start: "4pm tomorrow"},
		},
		{
			name:  "update from old time to new time",
			input: "update planning from 2pm to 4pm",
			want:  Intent{Operation: OpUpdate, Target: "planning", TargetTime: "2pm", Start: "4pm"},
		},
		{
			name:  "search",
			input: "find dentist appointment",
			want:  Intent{Operation: OpSearch, SearchQuery: "dentist appointment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(context.Background(), tt.input, testRef)
			require.NoError(t, err)
			tt.want.Source = SourceRule
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleExtractor_WithoutKeyword(t *testing.T) {
	e := newTestRuleExtractor()

	got, err := e.Extract(context.Background(), "明天下午", testRef)
	require.NoError(t, err)
	assert.Equal(t, OpRead, got.Operation)
	assert.Equal(t, "明天下午", got.Start)

	got, err = e.Extract(context.Background(), "dentist", testRef)
	require.NoError(t, err)
	assert.Equal(t, OpSearch, got.Operation)
	assert.Equal(t, "dentist", got.SearchQuery)
}

func TestRuleExtractor_EmptyUtterance(t *testing.T) {
	e := newTestRuleExtractor()
	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := e.Extract(context.Background(), input, testRef)
		assert.ErrorIs(t, err, ErrEmptyUtterance)
	}
}

func TestRuleExtractor_NeverFails(t *testing.T) {
	e := newTestRuleExtractor()
	inputs := []string{"???", "随便", "hello there", "123", "删除", "move to", "地点："}
	for _, input := range inputs {
		got, err := e.Extract(context.Background(), input, testRef)
		require.NoError(t, err, input)
		assert.Contains(t, Operations, got.Operation, input)
		assert.Equal(t, SourceRule, got.Source)
	}
}

func TestLexicon_Clean(t *testing.T) {
	tests := []struct {
		lex  *Lexicon
		in   string
		want string
	}{
		{zhLexicon, "帮我 一个 会议吧", "会议"},
		{zhLexicon, "的项目评审，", "项目评审"},
		{enLexicon, "a new event called launch party please", "launch party"},
		{enLexicon, "the meeting on", "meeting"},
		{enLexicon, "another thing", "another thing"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.lex.clean(tt.in), tt.in)
	}
}

func TestFindOperation_EarliestLongest(t *testing.T) {
	kw, ok := findOperation("明天的日程安排")
	require.True(t, ok)
	assert.Equal(t, OpRead, kw.op)
	assert.Equal(t, "日程安排", kw.word)

	kw, ok = findOperation("please reschedule the review")
	require.True(t, ok)
	assert.Equal(t, OpUpdate, kw.op)

	_, ok = findOperation("planning address")
	assert.False(t, ok)
}

func TestCommandKeyword(t *testing.T) {
	op, rest, ok := CommandKeyword("删除第二个")
	require.True(t, ok)
	assert.Equal(t, OpDelete, op)
	assert.Equal(t, "第二个", rest)

	op, _, ok = CommandKeyword("创建明天下午3点的会议")
	require.True(t, ok)
	assert.Equal(t, OpCreate, op)

	_, rest, ok = CommandKeyword("第二个")
	assert.False(t, ok)
	assert.Equal(t, "第二个", rest)
}
