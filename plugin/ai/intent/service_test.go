package intent

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zwrong/Calendar-Agent/plugin/ai/metrics"
)

func TestService_PrefersLanguageService(t *testing.T) {
	primary := NewMockExtractor()
	primary.Intents["查看今天的日程"] = Intent{Operation: OpRead, Start: "2025-10-03T00:00:00", Source: SourceLLM}

	svc := NewService(primary, newTestRuleExtractor(), nil)
	got, err := svc.Extract(context.Background(), "查看今天的日程", testRef)
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, got.Source)
	assert.Equal(t, "2025-10-03T00:00:00", got.Start)
}

func TestService_FallsBackOnAnyExtractionError(t *testing.T) {
	codes := []ErrorCode{CodeMalformedResponse, CodeTimeout, CodeServiceUnavailable}
	for _, code := range codes {
		t.Run(string(code), func(t *testing.T) {
			reg := prometheus.NewRegistry()
			m := metrics.NewService(reg)

			primary := NewMockExtractor()
			primary.Err = &ExtractionError{Code: code, Reason: "test"}

			svc := NewService(primary, newTestRuleExtractor(), m)
			got, err := svc.Extract(context.Background(), "删除和张三的会议", testRef)
			require.NoError(t, err)
			assert.Equal(t, SourceRule, got.Source)
			assert.Equal(t, OpDelete, got.Operation)
			assert.Equal(t, "和张三的会议", got.Target)

			n, err := testutil.GatherAndCount(reg, "calendar_agent_extraction_fallbacks_total")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestService_RulesOnly(t *testing.T) {
	svc := NewService(nil, newTestRuleExtractor(), nil)
	got, err := svc.Extract(context.Background(), "查看今天的日程", testRef)
	require.NoError(t, err)
	assert.Equal(t, SourceRule, got.Source)
	assert.Equal(t, OpRead, got.Operation)
}

func TestService_EmptyUtteranceSkipsExtractors(t *testing.T) {
	primary := NewMockExtractor()
	svc := NewService(primary, newTestRuleExtractor(), nil)

	_, err := svc.Extract(context.Background(), " ", testRef)
	assert.ErrorIs(t, err, ErrEmptyUtterance)
	assert.Empty(t, primary.Calls())
}
