package metrics

import (
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls a Metrics instance.
type Config struct {
	Workers           int // number of per-worker counters
	MaxLatencySamples int // reservoir size for percentile calculation
}

// DefaultConfig returns the default configuration for the given worker count.
func DefaultConfig(workers int) Config {
	return Config{
		Workers:           workers,
		MaxLatencySamples: 1000,
	}
}

// Metrics collects statistics about factorization tasks.
type Metrics struct {
	totalTasks     atomic.Uint64
	totalFactors   atomic.Uint64
	totalLatencyNs atomic.Uint64
	maxLatencyNs   atomic.Int64
	enqueued       atomic.Uint64
	perWorker      []atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	latencies         []time.Duration
	offered           uint64 // latencies seen by the reservoir
	maxLatencySamples int
}

// New creates metrics for the given number of workers.
func New(workers int) *Metrics {
	return NewWithConfig(DefaultConfig(workers))
}

// NewWithConfig creates metrics with custom settings.
func NewWithConfig(config Config) *Metrics {
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	samples := config.MaxLatencySamples
	if samples <= 0 {
		samples = 1000
	}
	return &Metrics{
		perWorker:         make([]atomic.Uint64, workers),
		startTime:         time.Now(),
		latencies:         make([]time.Duration, 0, samples),
		maxLatencySamples: samples,
	}
}

// RecordTask records one completed factorization.
// Out-of-range worker indexes still count towards the totals.
func (m *Metrics) RecordTask(worker int, latency time.Duration, factors int) {
	m.totalTasks.Add(1)
	m.totalFactors.Add(uint64(factors))
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
	if worker >= 0 && worker < len(m.perWorker) {
		m.perWorker[worker].Add(1)
	}

	for {
		cur := m.maxLatencyNs.Load()
		if int64(latency) <= cur || m.maxLatencyNs.CompareAndSwap(cur, int64(latency)) {
			break
		}
	}

	// reservoir sampling keeps a uniform sample of the whole run
	m.mu.Lock()
	m.offered++
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	} else if j := rand.Uint64N(m.offered); j < uint64(m.maxLatencySamples) {
		m.latencies[j] = latency
	}
	m.mu.Unlock()
}

// RecordEnqueued records one entry accepted by the queue.
func (m *Metrics) RecordEnqueued() {
	m.enqueued.Add(1)
}

// TotalTasks returns the number of completed tasks.
func (m *Metrics) TotalTasks() uint64 {
	return m.totalTasks.Load()
}

// TotalFactors returns the number of prime factors produced.
func (m *Metrics) TotalFactors() uint64 {
	return m.totalFactors.Load()
}

// Enqueued returns the number of entries the producer enqueued.
func (m *Metrics) Enqueued() uint64 {
	return m.enqueued.Load()
}

// PerWorker returns completed task counts indexed by worker.
func (m *Metrics) PerWorker() []uint64 {
	counts := make([]uint64, len(m.perWorker))
	for i := range m.perWorker {
		counts[i] = m.perWorker[i].Load()
	}
	return counts
}

// Throughput returns completed tasks per second since creation.
func (m *Metrics) Throughput() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.totalTasks.Load()) / elapsed
}

// AverageLatency returns the mean factorization time.
func (m *Metrics) AverageLatency() time.Duration {
	total := m.totalTasks.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// MaxLatency returns the slowest factorization observed.
func (m *Metrics) MaxLatency() time.Duration {
	return time.Duration(m.maxLatencyNs.Load())
}

// P99Latency returns the 99th percentile factorization time, estimated from
// a uniform sample of every recorded task.
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Snapshot is a point-in-time copy of the metrics.
type Snapshot struct {
	TotalTasks     uint64        `json:"total_tasks" yaml:"total_tasks"`
	TotalFactors   uint64        `json:"total_factors" yaml:"total_factors"`
	Enqueued       uint64        `json:"enqueued" yaml:"enqueued"`
	PerWorker      []uint64      `json:"per_worker" yaml:"per_worker"`
	Throughput     float64       `json:"throughput" yaml:"throughput"`
	AverageLatency time.Duration `json:"average_latency_ns" yaml:"average_latency"`
	P99Latency     time.Duration `json:"p99_latency_ns" yaml:"p99_latency"`
	MaxLatency     time.Duration `json:"max_latency_ns" yaml:"max_latency"`
	Elapsed        time.Duration `json:"elapsed_ns" yaml:"elapsed"`
}

// Snapshot returns the current metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TotalTasks:     m.TotalTasks(),
		TotalFactors:   m.TotalFactors(),
		Enqueued:       m.Enqueued(),
		PerWorker:      m.PerWorker(),
		Throughput:     m.Throughput(),
		AverageLatency: m.AverageLatency(),
		P99Latency:     m.P99Latency(),
		MaxLatency:     m.MaxLatency(),
		Elapsed:        time.Since(m.startTime),
	}
}
