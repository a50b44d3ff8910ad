// Package metrics tracks request counts, status codes, quota rejections,
// and a sliding latency sample for the /api/v1/metrics endpoint.
package metrics

import (
	"sort"
	"sync"
	"time"
)

type Collector struct {
	mu sync.RWMutex

	totalRequests   uint64
	totalErrors     uint64
	quotaRejections uint64
	statusCounts    map[int]uint64

	// Sliding window of the most recent latencies, enough for stable
	// upper percentiles without unbounded growth.
	latencies  []time.Duration
	maxSamples int
}

func NewCollector(maxSamples int) *Collector {
	return &Collector{
		statusCounts: make(map[int]uint64),
		latencies:    make([]time.Duration, 0, maxSamples),
		maxSamples:   maxSamples,
	}
}

func (c *Collector) Record(duration time.Duration, statusCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	if statusCode >= 400 {
		c.totalErrors++
	}
	c.statusCounts[statusCode]++

	if len(c.latencies) < c.maxSamples {
		c.latencies = append(c.latencies, duration)
	} else {
		c.latencies = c.latencies[1:]
		c.latencies = append(c.latencies, duration)
	}
}

// RecordQuotaRejection counts one RateLimited outcome. These also show up
// in statusCounts as 429s; the dedicated counter survives even if a handler
// maps the status differently.
func (c *Collector) RecordQuotaRejection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotaRejections++
}

type Stats struct {
	TotalRequests   uint64         `json:"total_requests"`
	TotalErrors     uint64         `json:"total_errors"`
	QuotaRejections uint64         `json:"quota_rejections"`
	ErrorRate       float64        `json:"error_rate"`
	P50Latency      string         `json:"p50_latency"`
	P95Latency      string         `json:"p95_latency"`
	P99Latency      string         `json:"p99_latency"`
	StatusCounts    map[int]uint64 `json:"status_counts"`
}

func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sorted := make([]time.Duration, len(c.latencies))
	copy(sorted, c.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	errorRate := 0.0
	if c.totalRequests > 0 {
		errorRate = float64(c.totalErrors) / float64(c.totalRequests)
	}

	sc := make(map[int]uint64, len(c.statusCounts))
	for k, v := range c.statusCounts {
		sc[k] = v
	}

	return Stats{
		TotalRequests:   c.totalRequests,
		TotalErrors:     c.totalErrors,
		QuotaRejections: c.quotaRejections,
		ErrorRate:       errorRate,
		P50Latency:      percentile(sorted, 0.50).String(),
		P95Latency:      percentile(sorted, 0.95).String(),
		P99Latency:      percentile(sorted, 0.99).String(),
		StatusCounts:    sc,
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
