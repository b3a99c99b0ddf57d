package internal

import (
	"sort"
	"sync"
	"time"
)

type MetricsCollector struct {
	logger *Logger

	requestCount    map[string]int64
	requestDuration map[string][]int64
	riotCallCount   map[string]int64
	riotCallErrors  map[string]int64
	cacheHits       int64
	cacheMisses     int64

	cycleCount        map[PlayerState]int64
	cycleFailures     int64
	consecutiveErrors int64
	lastCycleDuration int64

	mu sync.RWMutex
}

func NewMetricsCollector(logger *Logger) *MetricsCollector {
	mc := &MetricsCollector{
		logger:          logger,
		requestCount:    make(map[string]int64),
		requestDuration: make(map[string][]int64),
		riotCallCount:   make(map[string]int64),
		riotCallErrors:  make(map[string]int64),
		cycleCount:      make(map[PlayerState]int64),
	}

	go mc.startMetricsReporter()
	return mc
}

func (mc *MetricsCollector) RecordRequest(endpoint string, duration time.Duration, statusCode int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.requestCount[endpoint]++
	mc.requestDuration[endpoint] = append(mc.requestDuration[endpoint], duration.Milliseconds())
}

// RecordRiotCall tracks outbound Riot API traffic; status 0 means the
// request never produced a response.
func (mc *MetricsCollector) RecordRiotCall(endpoint string, duration time.Duration, statusCode int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.riotCallCount[endpoint]++
	if statusCode == 0 || statusCode >= 400 {
		mc.riotCallErrors[endpoint]++
	}
}

func (mc *MetricsCollector) RecordCacheHit(key string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.cacheHits++

	mc.logger.Debug("cache_hit").
		Component("metrics").
		Operation("record_cache").
		Cache(true, key).
		Log()
}

func (mc *MetricsCollector) RecordCacheMiss(key string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.cacheMisses++

	mc.logger.Debug("cache_miss").
		Component("metrics").
		Operation("record_cache").
		Cache(false, key).
		Log()
}

// RecordCycle tracks each refresh cycle outcome and the running
// consecutive-error count the offline policy is based on.
func (mc *MetricsCollector) RecordCycle(state PlayerState, duration time.Duration, consecutiveErrors int, failed bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.cycleCount[state]++
	mc.lastCycleDuration = duration.Milliseconds()
	mc.consecutiveErrors = int64(consecutiveErrors)
	if failed {
		mc.cycleFailures++
	}
}

func (mc *MetricsCollector) startMetricsReporter() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		mc.reportMetrics()
	}
}

func (mc *MetricsCollector) reportMetrics() {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	cycles := make(map[string]int64, len(mc.cycleCount))
	for state, count := range mc.cycleCount {
		cycles[string(state)] = count
	}

	mc.logger.Info("metrics_report").
		Component("metrics").
		Operation("report").
		Meta("http_requests", mc.sumMapValues(mc.requestCount)).
		Meta("riot_calls", mc.sumMapValues(mc.riotCallCount)).
		Meta("riot_call_errors", mc.sumMapValues(mc.riotCallErrors)).
		Meta("cache_hits", mc.cacheHits).
		Meta("cache_misses", mc.cacheMisses).
		Meta("cache_hit_rate_percent", mc.calculateCacheHitRate()).
		Meta("cycles_by_state", cycles).
		Meta("cycle_failures", mc.cycleFailures).
		Meta("consecutive_errors", mc.consecutiveErrors).
		Meta("last_cycle_ms", mc.lastCycleDuration).
		Log()

	mc.reportEndpointPerformance()
}

func (mc *MetricsCollector) reportEndpointPerformance() {
	for endpoint, durations := range mc.requestDuration {
		if len(durations) == 0 {
			continue
		}

		avg := mc.calculateAverage(durations)
		p95 := mc.calculatePercentile(durations, 0.95)

		mc.logger.Info("endpoint_performance").
			Component("metrics").
			Operation("performance_report").
			Meta("endpoint", endpoint).
			Meta("request_count", mc.requestCount[endpoint]).
			Meta("avg_duration_ms", avg).
			Meta("p95_duration_ms", p95).
			Log()
	}
}

func (mc *MetricsCollector) sumMapValues(m map[string]int64) int64 {
	sum := int64(0)
	for _, count := range m {
		sum += count
	}
	return sum
}

func (mc *MetricsCollector) calculateCacheHitRate() float64 {
	total := mc.cacheHits + mc.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(mc.cacheHits) / float64(total) * 100
}

func (mc *MetricsCollector) calculateAverage(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := int64(0)
	for _, v := range values {
		sum += v
	}

	return float64(sum) / float64(len(values))
}

func (mc *MetricsCollector) calculatePercentile(values []int64, percentile float64) int64 {
	if len(values) == 0 {
		return 0
	}

	sortedValues := make([]int64, len(values))
	copy(sortedValues, values)
	sort.Slice(sortedValues, func(i, j int) bool {
		return sortedValues[i] < sortedValues[j]
	})

	index := int(percentile * float64(len(sortedValues)-1))
	return sortedValues[index]
}

func (mc *MetricsCollector) GetMetrics() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	cycles := make(map[string]int64, len(mc.cycleCount))
	for state, count := range mc.cycleCount {
		cycles[string(state)] = count
	}

	return map[string]interface{}{
		"cache": map[string]interface{}{
			"hits":     mc.cacheHits,
			"misses":   mc.cacheMisses,
			"hit_rate": mc.calculateCacheHitRate(),
		},
		"requests": mc.requestCount,
		"riot_calls": map[string]interface{}{
			"count":  mc.riotCallCount,
			"errors": mc.riotCallErrors,
		},
		"cycles": map[string]interface{}{
			"by_state":           cycles,
			"failures":           mc.cycleFailures,
			"consecutive_errors": mc.consecutiveErrors,
			"last_duration_ms":   mc.lastCycleDuration,
		},
	}
}
