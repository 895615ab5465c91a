package metrics

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_RecordRequest(t *testing.T) {
	t.Run("SingleRequest", func(t *testing.T) {
		agg := NewAggregator()
		agg.RecordRequest("create", StatusSuccess, 100*time.Millisecond)

		stats := agg.Stats(time.Now().Add(-time.Hour))
		assert.Equal(t, int64(1), stats.RequestCount)
		assert.Equal(t, int64(1), stats.SuccessCount)
		require.Contains(t, stats.OperationStats, "create")
		assert.Equal(t, int64(1), stats.OperationStats["create"].Count)
		assert.Equal(t, float32(1.0), stats.OperationStats["create"].SuccessRate)
		assert.Equal(t, 100*time.Millisecond, stats.OperationStats["create"].AvgLatency)
	})

	t.Run("MixedStatuses", func(t *testing.T) {
		agg := NewAggregator()
		agg.RecordRequest("delete", StatusSuccess, 50*time.Millisecond)
		agg.RecordRequest("delete", "ambiguous", 150*time.Millisecond)
		agg.RecordRequest("delete", "not_found", 200*time.Millisecond)

		stats := agg.Stats(time.Now().Add(-time.Hour))
		assert.Equal(t, int64(3), stats.RequestCount)
		assert.Equal(t, int64(1), stats.SuccessCount)
		assert.Equal(t, int64(1), stats.StatusCounts["ambiguous"])
		assert.Equal(t, int64(1), stats.StatusCounts["not_found"])

		stat := stats.OperationStats["delete"]
		require.NotNil(t, stat)
		assert.InDelta(t, 0.333, stat.SuccessRate, 0.01)
	})
}

func TestAggregator_RecordCall(t *testing.T) {
	agg := NewAggregator()

	agg.RecordCall(DependencyCalendar, 30*time.Millisecond, true)
	agg.RecordCall(DependencyCalendar, 50*time.Millisecond, true)
	agg.RecordCall(DependencyLLM, 100*time.Millisecond, false)

	stats := agg.Stats(time.Now().Add(-time.Hour))
	assert.Equal(t, int64(0), stats.RequestCount)
	assert.Equal(t, int64(2), stats.DependencyStats[DependencyCalendar].Calls)
	assert.Equal(t, 40*time.Millisecond, stats.DependencyStats[DependencyCalendar].AvgLatency)
	assert.Equal(t, float32(0), stats.DependencyStats[DependencyLLM].SuccessRate)
}

func TestAggregator_Percentiles(t *testing.T) {
	agg := NewAggregator()

	for i := 1; i <= 100; i++ {
		agg.RecordRequest("read", StatusSuccess, time.Duration(i)*time.Millisecond)
	}

	stats := agg.Stats(time.Now().Add(-time.Hour))
	assert.Equal(t, 50*time.Millisecond, stats.LatencyP50)
	assert.Equal(t, 95*time.Millisecond, stats.LatencyP95)
}

func TestAggregator_SinceAndPrune(t *testing.T) {
	agg := NewAggregator()
	now := time.Date(2025, 10, 3, 10, 30, 0, 0, time.UTC)

	agg.now = func() time.Time { return now.Add(-3 * time.Hour) }
	agg.RecordRequest("read", StatusSuccess, time.Millisecond)
	agg.now = func() time.Time { return now }
	agg.RecordRequest("read", StatusSuccess, time.Millisecond)

	assert.Equal(t, int64(1), agg.Stats(now.Add(-time.Hour)).RequestCount)
	assert.Equal(t, int64(2), agg.Stats(now.Add(-24*time.Hour)).RequestCount)

	assert.Equal(t, 1, agg.Prune(now.Add(-time.Hour)))
	assert.Equal(t, int64(1), agg.Stats(now.Add(-24*time.Hour)).RequestCount)
}

func TestAggregator_Concurrent(t *testing.T) {
	agg := NewAggregator()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.RecordRequest("search", StatusSuccess, time.Millisecond)
			agg.RecordCall(DependencyCalendar, time.Millisecond, true)
		}()
	}
	wg.Wait()

	stats := agg.Stats(time.Now().Add(-time.Hour))
	assert.Equal(t, int64(50), stats.RequestCount)
	assert.Equal(t, int64(50), stats.DependencyStats[DependencyCalendar].Calls)
}

func TestService_Prometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := NewService(reg)
	ctx := context.Background()

	svc.RecordRequest(ctx, "create", StatusSuccess, 20*time.Millisecond)
	svc.RecordRequest(ctx, "create", "error", 20*time.Millisecond)
	svc.RecordRequest(ctx, "", "error", time.Millisecond)
	svc.RecordCall(ctx, DependencyLLM, "chat", 300*time.Millisecond, false)
	svc.RecordFallback(ctx, "SERVICE_UNAVAILABLE")

	assert.Equal(t, float64(1), testutil.ToFloat64(svc.requests.WithLabelValues("create", StatusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(svc.requests.WithLabelValues("unknown", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(svc.calls.WithLabelValues(DependencyLLM, "chat", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(svc.fallbacks.WithLabelValues("SERVICE_UNAVAILABLE")))

	expected := `
# HELP calendar_agent_extraction_fallbacks_total Rule-based intent fallbacks by language service error code.
# TYPE calendar_agent_extraction_fallbacks_total counter
calendar_agent_extraction_fallbacks_total{code="SERVICE_UNAVAILABLE"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "calendar_agent_extraction_fallbacks_total"))

	stats := svc.GetStats(ctx, time.Now().Add(-time.Hour))
	assert.Equal(t, int64(3), stats.RequestCount)
	assert.Equal(t, int64(1), stats.DependencyStats[DependencyLLM].Calls)
}

func TestNop(t *testing.T) {
	var svc MetricsService = Nop{}
	svc.RecordRequest(context.Background(), "read", StatusSuccess, time.Millisecond)
	stats := svc.GetStats(context.Background(), time.Now())
	assert.Zero(t, stats.RequestCount)
	assert.NotNil(t, stats.OperationStats)
}
