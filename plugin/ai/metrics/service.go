package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "calendar_agent"

// Service implements MetricsService with prometheus collectors plus an in-memory aggregator.
type Service struct {
	aggregator      *Aggregator
	retentionPeriod time.Duration

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	calls           *prometheus.CounterVec
	callDuration    *prometheus.HistogramVec
	fallbacks       *prometheus.CounterVec
}

// NewService registers the collectors on reg. Pass prometheus.DefaultRegisterer to expose
// them on the default /metrics handler, or a fresh registry in tests.
func NewService(reg prometheus.Registerer) *Service {
	factory := promauto.With(reg)

	return &Service{
		aggregator:      NewAggregator(),
		retentionPeriod: 7 * 24 * time.Hour,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Handled utterances by operation and response status.",
		}, []string{"operation", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time to handle one utterance.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dependency_calls_total",
			Help:      "Outbound calls to the language service and the calendar server.",
		}, []string{"dependency", "call", "result"}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dependency_call_duration_seconds",
			Help:      "Latency of outbound dependency calls.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"dependency"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_fallbacks_total",
			Help:      "Rule-based intent fallbacks by language service error code.",
		}, []string{"code"}),
	}
}

// RecordRequest implements MetricsService.
func (s *Service) RecordRequest(_ context.Context, operation, status string, latency time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	s.requests.WithLabelValues(operation, status).Inc()
	s.requestDuration.WithLabelValues(operation).Observe(latency.Seconds())
	s.aggregator.RecordRequest(operation, status, latency)
}

// RecordCall implements MetricsService.
func (s *Service) RecordCall(_ context.Context, dependency, call string, latency time.Duration, success bool) {
	result := "ok"
	if !success {
		result = "error"
	}
	s.calls.WithLabelValues(dependency, call, result).Inc()
	s.callDuration.WithLabelValues(dependency).Observe(latency.Seconds())
	s.aggregator.RecordCall(dependency, latency, success)
}

// RecordFallback implements MetricsService.
func (s *Service) RecordFallback(_ context.Context, code string) {
	s.fallbacks.WithLabelValues(code).Inc()
}

// GetStats implements MetricsService.
func (s *Service) GetStats(_ context.Context, since time.Time) *AgentMetrics {
	return s.aggregator.Stats(since)
}

// Prune drops in-memory buckets older than the retention period. Prometheus counters are untouched.
func (s *Service) Prune() int {
	return s.aggregator.Prune(s.aggregator.now().Add(-s.retentionPeriod))
}

var _ MetricsService = (*Service)(nil)

// Nop discards all metrics.
type Nop struct{}

func (Nop) RecordRequest(context.Context, string, string, time.Duration) {}
func (Nop) RecordCall(context.Context, string, string, time.Duration, bool) {}
func (Nop) RecordFallback(context.Context, string) {}
func (Nop) GetStats(context.Context, time.Time) *AgentMetrics {
	return &AgentMetrics{
		OperationStats:  map[string]*OperationStat{},
		DependencyStats: map[string]*DependencyStat{},
		StatusCounts:    map[string]int64{},
	}
}

var _ MetricsService = Nop{}
