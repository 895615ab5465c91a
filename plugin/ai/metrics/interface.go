// Package metrics records calendar agent request and dependency metrics.
package metrics

import (
	"context"
	"time"
)

// Dependency names used with RecordCall.
const (
	DependencyLLM      = "llm"
	DependencyCalendar = "calendar"
)

// MetricsService defines the metrics recording interface.
// Consumers: intent extractor, calendar store, agent orchestrator, HTTP server.
type MetricsService interface {
	// RecordRequest records one handled utterance by operation and outcome status.
	RecordRequest(ctx context.Context, operation, status string, latency time.Duration)

	// RecordCall records one outbound call to a dependency (llm, calendar).
	RecordCall(ctx context.Context, dependency, call string, latency time.Duration, success bool)

	// RecordFallback records a rule-based fallback after a language service failure.
	RecordFallback(ctx context.Context, code string)

	// GetStats retrieves statistics aggregated in memory since the given time.
	GetStats(ctx context.Context, since time.Time) *AgentMetrics
}

// AgentMetrics represents aggregated agent metrics.
type AgentMetrics struct {
	RequestCount    int64                      `json:"request_count"`
	SuccessCount    int64                      `json:"success_count"`
	LatencyP50      time.Duration              `json:"latency_p50"`
	LatencyP95      time.Duration              `json:"latency_p95"`
	OperationStats  map[string]*OperationStat  `json:"operation_stats"`
	DependencyStats map[string]*DependencyStat `json:"dependency_stats"`
	StatusCounts    map[string]int64           `json:"status_counts"`
}

// OperationStat represents statistics for a single calendar operation.
type OperationStat struct {
	Count       int64         `json:"count"`
	SuccessRate float32       `json:"success_rate"`
	AvgLatency  time.Duration `json:"avg_latency"`
}

// DependencyStat represents statistics for calls to a single dependency.
type DependencyStat struct {
	Calls       int64         `json:"calls"`
	SuccessRate float32       `json:"success_rate"`
	AvgLatency  time.Duration `json:"avg_latency"`
}
