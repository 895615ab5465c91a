package intent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zwrong/Calendar-Agent/plugin/ai"
	"github.com/zwrong/Calendar-Agent/plugin/ai/metrics"
)

// fakeLLM replays a fixed reply and records the request.
type fakeLLM struct {
	reply    string
	err      error
	wait     bool
	messages []ai.Message
	request  openai.ChatCompletionRequest
}

func (f *fakeLLM) Chat(ctx context.Context, messages []ai.Message, opts ...ai.ChatOption) (string, error) {
	f.messages = messages
	for _, opt := range opts {
		opt(&f.request)
	}
	if f.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func TestLLMExtractor_Extract(t *testing.T) {
	llm := &fakeLLM{reply: `{"operation":"create","title":"和张三的会议","start_time":"2025-10-04T15:00:00","end_time":"","location":"A301"}`}
	e := NewLLMExtractor(llm, nil)

	got, err := e.Extract(context.Background(), "创建明天下午3点和张三的会议", testRef)
	require.NoError(t, err)
	assert.Equal(t, Intent{
		Operation: OpCreate,
		Title:     "和张三的会议",
		Location:  "A301",
		Start:     "2025-10-04T15:00:00",
		Source:    SourceLLM,
	}, got)

	require.Len(t, llm.messages, 2)
	assert.Equal(t, "system", llm.messages[0].Role)
	assert.Contains(t, llm.messages[0].Content, "2025-10-03T10:00:00+08:00")
	assert.Contains(t, llm.messages[0].Content, "星期五")
	assert.Equal(t, "创建明天下午3点和张三的会议", llm.messages[1].Content)
	require.NotNil(t, llm.request.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, llm.request.ResponseFormat.Type)
	assert.Empty(t, llm.request.ReasoningEffort)
}

func TestLLMExtractor_ReasoningEffort(t *testing.T) {
	llm := &fakeLLM{reply: `{"operation":"read"}`}
	e := NewLLMExtractor(llm, nil)

	_, err := e.Extract(context.Background(), "下周有什么安排", testRef)
	require.NoError(t, err)
	assert.Equal(t, "medium", llm.request.ReasoningEffort)
}

func TestLLMExtractor_Errors(t *testing.T) {
	t.Run("no service", func(t *testing.T) {
		_, err := NewLLMExtractor(nil, nil).Extract(context.Background(), "查看今天", testRef)
		assert.True(t, IsCode(err, CodeServiceUnavailable))
	})

	t.Run("transport failure", func(t *testing.T) {
		e := NewLLMExtractor(&fakeLLM{err: errors.New("connection refused")}, nil)
		_, err := e.Extract(context.Background(), "查看今天", testRef)
		assert.True(t, IsCode(err, CodeServiceUnavailable))
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("timeout", func(t *testing.T) {
		e := NewLLMExtractor(&fakeLLM{wait: true}, nil)
		e.timeout = 10 * time.Millisecond
		_, err := e.Extract(context.Background(), "查看今天", testRef)
		assert.True(t, IsCode(err, CodeTimeout))
	})

	t.Run("malformed reply", func(t *testing.T) {
		e := NewLLMExtractor(&fakeLLM{reply: "I cannot help with that"}, nil)
		_, err := e.Extract(context.Background(), "查看今天", testRef)
		assert.True(t, IsCode(err, CodeMalformedResponse))
	})

	t.Run("empty utterance", func(t *testing.T) {
		llm := &fakeLLM{}
		_, err := NewLLMExtractor(llm, nil).Extract(context.Background(), "  ", testRef)
		assert.ErrorIs(t, err, ErrEmptyUtterance)
		assert.Nil(t, llm.messages)
	})
}

func TestLLMExtractor_RecordsCalls(t *testing.T) {
	m := metrics.NewService(nil)
	e := NewLLMExtractor(&fakeLLM{reply: `{"operation":"read"}`}, m)

	_, err := e.Extract(context.Background(), "查看今天", testRef)
	require.NoError(t, err)

	stats := m.GetStats(context.Background(), time.Time{})
	require.Contains(t, stats.DependencyStats, metrics.DependencyLLM)
	assert.Equal(t, int64(1), stats.DependencyStats[metrics.DependencyLLM].Calls)
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    Intent
		wantErr bool
	}{
		{
			name:  "plain json",
			reply: `{"operation":"delete","target_event":"周会","target_time":"明天"}`,
			want:  Intent{Operation: OpDelete, Target: "周会", TargetTime: "明天"},
		},
		{
			name:  "fenced json",
			reply: "```json\n{\"operation\":\"search\",\"search_query\":\"牙医\"}\n```",
			want:  Intent{Operation: OpSearch, SearchQuery: "牙医"},
		},
		{
			name:  "surrounding prose",
			reply: `Sure! {"operation":"READ","start_time":"2025-10-03T00:00:00","end_time":"2025-10-04T00:00:00"} Hope this helps.`,
			want:  Intent{Operation: OpRead, Start: "2025-10-03T00:00:00", End: "2025-10-04T00:00:00"},
		},
		{
			name:  "legacy field names",
			reply: `{"intent":"update","target":"standup","start":"tomorrow 4pm"}`,
			want:  Intent{Operation: OpUpdate, Target: "standup", Start: "tomorrow 4pm"},
		},
		{
			name:  "delete all",
			reply: `{"operation":"delete","target_event":"会议","target_all":true}`,
			want:  Intent{Operation: OpDelete, Target: "会议", TargetAll: true},
		},
		{name: "unknown operation", reply: `{"operation":"archive"}`, wantErr: true},
		{name: "missing operation", reply: `{"title":"x"}`, wantErr: true},
		{name: "invalid json", reply: `{"operation": create}`, wantErr: true},
		{name: "no object", reply: `create`, wantErr: true},
		{name: "empty", reply: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply(tt.reply)
			if tt.wantErr {
				assert.True(t, IsCode(err, CodeMalformedResponse), "got %v", err)
				return
			}
			require.NoError(t, err)
			tt.want.Source = SourceLLM
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNeedsReasoning(t *testing.T) {
	morning := time.Date(2025, 10, 3, 2, 30, 0, 0, testRef.Location())

	tests := []struct {
		input string
		ref   time.Time
		want  bool
	}{
		{"明天下午3点开会", testRef, false},
		{"明天下午3点开会", morning, true},
		{"下周有什么安排", testRef, true},
		{"下周三下午开会", testRef, false},
		{"月底前开个会", testRef, true},
		{"大概下午三点", testRef, true},
		{"schedule lunch around noon", testRef, true},
		{"schedule lunch at noon", testRef, false},
		{"what's on next week", testRef, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NeedsReasoning(tt.input, tt.ref), tt.input)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(testRef)
	assert.True(t, strings.Contains(p, "2025-10-03T10:00:00+08:00（星期五）"))
	assert.NotContains(t, p, "%s")
}
