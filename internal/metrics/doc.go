// Package metrics collects statistics about a factorization run.
//
// Metrics counts completed tasks (overall and per worker), the number of
// prime factors produced, and samples per-task factorization latency for
// average, P99 and max reporting. It also tracks how many entries the
// producer enqueued, so that a run can be checked for loss or duplication.
//
// # Basic Usage
//
//	m := metrics.New(4) // 4 workers
//
//	start := time.Now()
//	factors := factor.TrialDivision(n)
//	m.RecordTask(workerID, time.Since(start), len(factors))
//
//	snap := m.Snapshot()
//	fmt.Printf("tasks=%d p99=%v\n", snap.TotalTasks, snap.P99Latency)
//
// # Configuration
//
// Use NewWithConfig to change the number of latency samples kept:
//
//	m := metrics.NewWithConfig(metrics.Config{Workers: 4, MaxLatencySamples: 5000})
//
// # Thread Safety
//
// Counters are atomic; the latency sample is guarded by a mutex. All methods
// are safe for concurrent use.
package metrics
