package metrics

import (
	"sort"
	"sync"
	"time"
)

// StatusSuccess is the request status counted as a success.
const StatusSuccess = "success"

// Aggregator keeps hourly request and dependency buckets in memory for the stats endpoint.
type Aggregator struct {
	mu  sync.RWMutex
	now func() time.Time

	// key = "hourBucket|operation"
	requests map[string]*requestBucket

	// key = "hourBucket|dependency"
	calls map[string]*callBucket
}

type requestBucket struct {
	hourBucket   time.Time
	operation    string
	requestCount int64
	successCount int64
	statuses     map[string]int64
	latencies    []int64 // in milliseconds
}

type callBucket struct {
	hourBucket   time.Time
	dependency   string
	callCount    int64
	successCount int64
	latencySum   int64 // in milliseconds
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		now:      time.Now,
		requests: make(map[string]*requestBucket),
		calls:    make(map[string]*callBucket),
	}
}

// RecordRequest records a single handled utterance.
func (a *Aggregator) RecordRequest(operation, status string, latency time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	hourBucket := truncateToHour(a.now())
	key := makeKey(hourBucket, operation)

	bucket, exists := a.requests[key]
	if !exists {
		bucket = &requestBucket{
			hourBucket: hourBucket,
			operation:  operation,
			statuses:   make(map[string]int64),
			latencies:  make([]int64, 0, 64),
		}
		a.requests[key] = bucket
	}

	bucket.requestCount++
	if status == StatusSuccess {
		bucket.successCount++
	}
	bucket.statuses[status]++
	bucket.latencies = append(bucket.latencies, latency.Milliseconds())
}

// RecordCall records a single dependency call.
func (a *Aggregator) RecordCall(dependency string, latency time.Duration, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	hourBucket := truncateToHour(a.now())
	key := makeKey(hourBucket, dependency)

	bucket, exists := a.calls[key]
	if !exists {
		bucket = &callBucket{
			hourBucket: hourBucket,
			dependency: dependency,
		}
		a.calls[key] = bucket
	}

	bucket.callCount++
	if success {
		bucket.successCount++
	}
	bucket.latencySum += latency.Milliseconds()
}

// Prune drops buckets for hours before the given time and returns how many were removed.
func (a *Aggregator) Prune(before time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for key, bucket := range a.requests {
		if bucket.hourBucket.Before(before) {
			delete(a.requests, key)
			removed++
		}
	}
	for key, bucket := range a.calls {
		if bucket.hourBucket.Before(before) {
			delete(a.calls, key)
			removed++
		}
	}
	return removed
}

// Stats returns stats aggregated over buckets at or after the hour of since.
func (a *Aggregator) Stats(since time.Time) *AgentMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	from := truncateToHour(since)
	stats := &AgentMetrics{
		OperationStats:  make(map[string]*OperationStat),
		DependencyStats: make(map[string]*DependencyStat),
		StatusCounts:    make(map[string]int64),
	}

	allLatencies := make([]int64, 0)
	opLatency := make(map[string]int64)
	opSuccess := make(map[string]int64)
	for _, bucket := range a.requests {
		if bucket.hourBucket.Before(from) {
			continue
		}
		stats.RequestCount += bucket.requestCount
		stats.SuccessCount += bucket.successCount
		allLatencies = append(allLatencies, bucket.latencies...)
		for status, n := range bucket.statuses {
			stats.StatusCounts[status] += n
		}

		stat, ok := stats.OperationStats[bucket.operation]
		if !ok {
			stat = &OperationStat{}
			stats.OperationStats[bucket.operation] = stat
		}
		stat.Count += bucket.requestCount
		opSuccess[bucket.operation] += bucket.successCount
		opLatency[bucket.operation] += sumLatencies(bucket.latencies)
	}
	for op, stat := range stats.OperationStats {
		if stat.Count > 0 {
			stat.SuccessRate = float32(opSuccess[op]) / float32(stat.Count)
			stat.AvgLatency = time.Duration(opLatency[op]/stat.Count) * time.Millisecond
		}
	}

	callLatency := make(map[string]int64)
	callSuccess := make(map[string]int64)
	for _, bucket := range a.calls {
		if bucket.hourBucket.Before(from) {
			continue
		}
		stat, ok := stats.DependencyStats[bucket.dependency]
		if !ok {
			stat = &DependencyStat{}
			stats.DependencyStats[bucket.dependency] = stat
		}
		stat.Calls += bucket.callCount
		callSuccess[bucket.dependency] += bucket.successCount
		callLatency[bucket.dependency] += bucket.latencySum
	}
	for dep, stat := range stats.DependencyStats {
		if stat.Calls > 0 {
			stat.SuccessRate = float32(callSuccess[dep]) / float32(stat.Calls)
			stat.AvgLatency = time.Duration(callLatency[dep]/stat.Calls) * time.Millisecond
		}
	}

	stats.LatencyP50 = time.Duration(percentile(allLatencies, 50)) * time.Millisecond
	stats.LatencyP95 = time.Duration(percentile(allLatencies, 95)) * time.Millisecond

	return stats
}

// Helper functions

func truncateToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

func makeKey(hourBucket time.Time, name string) string {
	return hourBucket.Format(time.RFC3339) + "|" + name
}

func sumLatencies(latencies []int64) int64 {
	var sum int64
	for _, l := range latencies {
		sum += l
	}
	return sum
}

func percentile(latencies []int64, p int) int64 {
	if len(latencies) == 0 {
		return 0
	}

	sorted := make([]int64, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}
