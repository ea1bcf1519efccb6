package worker

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"factorize/internal/events"
	"factorize/internal/factor"
	"factorize/internal/logger"
	"factorize/internal/metrics"
	"factorize/internal/task"
)

var (
	// ErrWorkerPanic is reported by Join when a worker did not exit cleanly.
	ErrWorkerPanic = errors.New("worker panicked")
	// ErrNotStarted is returned by Join before Start.
	ErrNotStarted = errors.New("pool not started")
	// ErrAlreadyJoined is returned by a second Join.
	ErrAlreadyJoined = errors.New("pool already joined")
)

// Taker is the consumer side of the work queue.
type Taker interface {
	Take() (task.Entry, bool)
}

// PoolConfig holds the pool settings.
type PoolConfig struct {
	NumWorkers int         // number of goroutines, at least 1
	Factorize  factor.Func // nil selects trial division
}

// DefaultPoolConfig returns the default settings.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers: 3,
		Factorize:  factor.TrialDivision,
	}
}

type outcome struct {
	result task.Result
	err    error
}

// handle is the join point of one worker.
type handle struct {
	id   int
	done chan outcome
}

// Pool runs a fixed number of factorization workers over one queue.
type Pool struct {
	numWorkers int
	queue      Taker
	factorize  factor.Func

	bus     *events.Bus
	runID   string
	metrics *metrics.Metrics

	mu      sync.Mutex
	handles []handle
	started bool
	joined  bool
}

// NewPool creates a pool of numWorkers workers. Values below 1 become 1.
func NewPool(numWorkers int, q Taker, fn factor.Func) *Pool {
	config := DefaultPoolConfig()
	config.NumWorkers = numWorkers
	if fn != nil {
		config.Factorize = fn
	}
	return NewPoolWithConfig(config, q)
}

// NewPoolWithConfig creates a pool from config.
func NewPoolWithConfig(config PoolConfig, q Taker) *Pool {
	numWorkers := config.NumWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	fn := config.Factorize
	if fn == nil {
		fn = factor.TrialDivision
	}
	return &Pool{
		numWorkers: numWorkers,
		queue:      q,
		factorize:  fn,
	}
}

// SetEventBus publishes worker lifecycle and task events to bus, tagged with runID.
func (p *Pool) SetEventBus(bus *events.Bus, runID string) {
	p.bus = bus
	p.runID = runID
}

// SetMetrics records per-task statistics into m.
func (p *Pool) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// Start launches the workers. Calling it again is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true

	p.handles = make([]handle, p.numWorkers)
	for i := range p.numWorkers {
		h := handle{id: i, done: make(chan outcome, 1)}
		p.handles[i] = h
		go p.worker(h)
	}

	logger.Info("", "WorkerPool started with %d workers", p.numWorkers)
}

// worker takes entries until the queue is closed and empty.
func (p *Pool) worker(h handle) {
	tag := "worker-" + strconv.Itoa(h.id)
	result := task.NewResult(h.id)
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: worker %d: %v", ErrWorkerPanic, h.id, r)
			logger.Error(tag, "recovered panic: %v\n%s", r, debug.Stack())
		}
		p.publish(events.NewWorkerStoppedEvent(p.runID, h.id, result.Len(), err))
		logger.Debug(tag, "stopped after %d tasks", result.Len())
		h.done <- outcome{result: result, err: err}
	}()

	p.publish(events.NewWorkerStartedEvent(p.runID, h.id))

	for {
		e, ok := p.queue.Take()
		if !ok {
			return
		}

		start := time.Now()
		factors := p.factorize(e.Value)
		elapsed := time.Since(start)

		result.Add(task.Completed{
			Label:   e.Label,
			Value:   e.Value,
			Factors: factors,
			Worker:  h.id,
			Elapsed: elapsed,
		})

		if p.metrics != nil {
			p.metrics.RecordTask(h.id, elapsed, len(factors))
		}
		p.publish(events.NewTaskCompletedEvent(p.runID, h.id, e.Label, e.Value, factors))
	}
}

func (p *Pool) publish(ev events.Event) {
	if p.bus != nil {
		p.bus.Publish(ev)
	}
}

// Join waits for every worker, in index order, and returns their results.
// results[i] is worker i's list in completion order. If any worker
// panicked the returned error wraps ErrWorkerPanic; results still holds
// what every worker completed.
func (p *Pool) Join() ([]task.Result, error) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil, ErrNotStarted
	}
	if p.joined {
		p.mu.Unlock()
		return nil, ErrAlreadyJoined
	}
	p.joined = true
	handles := p.handles
	p.mu.Unlock()

	results := make([]task.Result, len(handles))
	var errs []error
	for _, h := range handles {
		out := <-h.done
		results[h.id] = out.result
		if out.err != nil {
			errs = append(errs, out.err)
		}
	}

	logger.Info("", "WorkerPool joined %d workers", len(handles))
	return results, errors.Join(errs...)
}

// NumWorkers returns the number of workers.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}
