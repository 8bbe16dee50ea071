package telemetry

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const maxLatencySamples = 1000

// Metrics aggregates planner metrics for the health endpoint.
type Metrics struct {
	mu sync.RWMutex

	PlansBuilt  int64
	CacheHits   int64
	OrdersSeen  int64
	ErrorCount  int64
	AllocatedKg atomic.Uint64 // whole kilograms

	latencies []time.Duration
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		latencies: make([]time.Duration, 0, maxLatencySamples),
	}
}

// RecordPlan records one finished planning run.
func (m *Metrics) RecordPlan(d time.Duration, orders int, allocatedKg float64, cached bool) {
	if cached {
		atomic.AddInt64(&m.CacheHits, 1)
	} else {
		atomic.AddInt64(&m.PlansBuilt, 1)
	}
	atomic.AddInt64(&m.OrdersSeen, int64(orders))
	if allocatedKg > 0 {
		m.AllocatedKg.Add(uint64(allocatedKg))
	}
	m.RecordLatency(d)
}

// RecordLatency records a latency sample, keeping the most recent ones.
func (m *Metrics) RecordLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) >= maxLatencySamples {
		m.latencies = m.latencies[1:]
	}
	m.latencies = append(m.latencies, d)
}

// IncrementErrors atomically increments error count.
func (m *Metrics) IncrementErrors() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// Percentile calculates the p-th percentile of recorded latencies.
func (m *Metrics) Percentile(p float64) time.Duration {
	m.mu.RLock()
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	m.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Summary returns a snapshot of collected metrics.
func (m *Metrics) Summary() MetricsSummary {
	return MetricsSummary{
		PlansBuilt:  atomic.LoadInt64(&m.PlansBuilt),
		CacheHits:   atomic.LoadInt64(&m.CacheHits),
		OrdersSeen:  atomic.LoadInt64(&m.OrdersSeen),
		ErrorCount:  atomic.LoadInt64(&m.ErrorCount),
		AllocatedKg: m.AllocatedKg.Load(),
		P50Latency:  m.Percentile(0.50),
		P95Latency:  m.Percentile(0.95),
		P99Latency:  m.Percentile(0.99),
	}
}

// MetricsSummary is a snapshot of metrics.
type MetricsSummary struct {
	PlansBuilt  int64         `json:"plans_built"`
	CacheHits   int64         `json:"cache_hits"`
	OrdersSeen  int64         `json:"orders_seen"`
	ErrorCount  int64         `json:"error_count"`
	AllocatedKg uint64        `json:"allocated_kg"`
	P50Latency  time.Duration `json:"p50_latency_ns"`
	P95Latency  time.Duration `json:"p95_latency_ns"`
	P99Latency  time.Duration `json:"p99_latency_ns"`
}
