package v1

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zwrong/Calendar-Agent/plugin/ai/metrics"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests int64                              `json:"total_requests"`
	SuccessRate   float64                            `json:"success_rate"`
	P50LatencyMs  int64                              `json:"p50_latency_ms"`
	P95LatencyMs  int64                              `json:"p95_latency_ms"`
	ErrorCount    int64                              `json:"error_count"`
	StatusCounts  map[string]int64                   `json:"status_counts"`
	Operations    map[string]*metrics.OperationStat  `json:"operations"`
	Dependencies  map[string]*metrics.DependencyStat `json:"dependencies"`
	TimeRange     string                             `json:"time_range"`
}

// GetMetricsOverview returns the system metrics overview
// GET /api/v1/system/metrics/overview
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	// Parse time range parameter
	timeRange := c.QueryParam("range")
	if timeRange == "" {
		timeRange = "24h"
	}
	since, err := parseTimeRange(timeRange, time.Now())
	if err != nil {
		slog.Warn("Invalid time range parameter in metrics request", "range", timeRange, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid time range"})
	}

	stats := s.Metrics.GetStats(c.Request().Context(), since)
	resp := MetricsOverviewResponse{
		TimeRange:    timeRange,
		StatusCounts: map[string]int64{},
		Operations:   map[string]*metrics.OperationStat{},
		Dependencies: map[string]*metrics.DependencyStat{},
	}
	if stats == nil {
		return c.JSON(http.StatusOK, resp)
	}

	resp.TotalRequests = stats.RequestCount
	resp.P50LatencyMs = stats.LatencyP50.Milliseconds()
	resp.P95LatencyMs = stats.LatencyP95.Milliseconds()
	resp.ErrorCount = stats.StatusCounts["error"]
	if stats.RequestCount > 0 {
		resp.SuccessRate = float64(stats.SuccessCount) / float64(stats.RequestCount)
	}
	if stats.StatusCounts != nil {
		resp.StatusCounts = stats.StatusCounts
	}
	if stats.OperationStats != nil {
		resp.Operations = stats.OperationStats
	}
	if stats.DependencyStats != nil {
		resp.Dependencies = stats.DependencyStats
	}
	return c.JSON(http.StatusOK, resp)
}

// parseTimeRange parses time range string and returns the start time
func parseTimeRange(timeRange string, now time.Time) (time.Time, error) {
	switch timeRange {
	case "1h":
		return now.Add(-1 * time.Hour), nil
	case "24h":
		return now.Add(-24 * time.Hour), nil
	case "7d":
		return now.Add(-7 * 24 * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("invalid time range: %s (valid: 1h, 24h, 7d)", timeRange)
	}
}
