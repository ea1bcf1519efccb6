// Package worker provides the fixed pool of goroutines that drain the work
// queue and factorize entries.
//
// Each worker repeatedly takes an entry, factorizes it and appends the
// result to a private list. A worker stops when the queue reports that it is
// closed and empty. Results are returned through a per-worker handle when
// the pool is joined, so no worker's list is ever shared while it runs.
//
// # Basic Usage
//
//	q := queue.New(128)
//	pool := worker.NewPool(4, q, factor.TrialDivision)
//	pool.Start()
//
//	// ... a producer puts entries and finally calls q.Close() ...
//
//	results, err := pool.Join() // results[i] belongs to worker i
//
// # Failure
//
// A panic inside a worker is recovered and reported by Join as
// ErrWorkerPanic. The other workers keep draining the queue and are joined
// normally.
package worker
