package pipeline

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"factorize/internal/collector"
	"factorize/internal/events"
	"factorize/internal/factor"
	"factorize/internal/logger"
	"factorize/internal/metrics"
	"factorize/internal/producer"
	"factorize/internal/queue"
	"factorize/internal/worker"
)

var (
	// ErrInvalidWorkers is returned for a worker count below 1.
	ErrInvalidWorkers = errors.New("number of worker threads must be > 0")
	// ErrInvalidQueueCapacity is returned for a queue capacity below 1.
	ErrInvalidQueueCapacity = errors.New("queue capacity must be > 0")
	// ErrTaskCountMismatch means workers completed a different number of
	// tasks than the producer enqueued.
	ErrTaskCountMismatch = errors.New("completed task count does not match input")
	// ErrAlreadyRunning is returned when Run is called concurrently.
	ErrAlreadyRunning = errors.New("pipeline is already running")
)

// Config holds the settings of a run.
type Config struct {
	Workers       int              // worker goroutines
	QueueCapacity int              // bounded queue slots
	Method        string           // factorization method name
	Format        collector.Format // output format

	// Factorize overrides Method when set.
	Factorize factor.Func
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Workers:       3,
		QueueCapacity: queue.DefaultCapacity,
		Method:        factor.MethodTrial,
		Format:        collector.FormatText,
	}
}

// Validate checks the settings before anything is started.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, c.Workers)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQueueCapacity, c.QueueCapacity)
	}
	if c.Factorize == nil {
		if _, err := factor.ByName(c.Method); err != nil {
			return err
		}
	}
	if _, err := collector.ParseFormat(string(c.Format)); err != nil {
		return err
	}
	return nil
}

// Report summarizes one run.
type Report struct {
	RunID     string           `json:"run_id" yaml:"run_id"`
	Workers   int              `json:"workers" yaml:"workers"`
	Method    string           `json:"method" yaml:"method"`
	StartTime time.Time        `json:"start_time" yaml:"start_time"`
	EndTime   time.Time        `json:"end_time" yaml:"end_time"`
	Duration  time.Duration    `json:"duration_ns" yaml:"duration"`
	Read      int              `json:"read" yaml:"read"`
	Completed int              `json:"completed" yaml:"completed"`
	Written   int              `json:"written" yaml:"written"`
	PerWorker []int            `json:"per_worker" yaml:"per_worker"`
	Truncated bool             `json:"truncated" yaml:"truncated"`
	BadToken  string           `json:"bad_token,omitempty" yaml:"bad_token,omitempty"`
	Metrics   metrics.Snapshot `json:"metrics" yaml:"metrics"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary renders the report for humans.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, `
================================================================================
                         FACTORIZE RUN: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Start Time:     %s
  End Time:       %s
  Duration:       %v
  Workers:        %d
  Method:         %s

INPUT
-----
  Entries Read:   %d
  Truncated:      %v
`,
		r.RunID,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.Workers,
		r.Method,
		r.Read,
		r.Truncated,
	)
	if r.Truncated {
		fmt.Fprintf(&b, "  Stopped At:     %q\n", r.BadToken)
	}

	fmt.Fprintf(&b, `
FACTORIZATION
-------------
  Completed:      %d
  Written:        %d
  Prime Factors:  %d
  Throughput:     %.2f tasks/s
  Avg Latency:    %v
  P99 Latency:    %v
  Max Latency:    %v

PER WORKER
----------
`,
		r.Completed,
		r.Written,
		r.Metrics.TotalFactors,
		r.Metrics.Throughput,
		r.Metrics.AverageLatency.Round(time.Microsecond),
		r.Metrics.P99Latency.Round(time.Microsecond),
		r.Metrics.MaxLatency.Round(time.Microsecond),
	)
	for i, n := range r.PerWorker {
		fmt.Fprintf(&b, "  worker-%-4d %d\n", i, n)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "\nERROR: %s\n", r.Error)
	}
	b.WriteString("================================================================================\n")
	return b.String()
}

// Pipeline runs factorization jobs.
type Pipeline struct {
	config   Config
	eventBus *events.Bus

	mu      sync.Mutex
	running bool
}

// New creates a pipeline. The config is validated by Run.
func New(config Config) *Pipeline {
	return &Pipeline{config: config}
}

// SetEventBus publishes run events to bus.
func (p *Pipeline) SetEventBus(bus *events.Bus) {
	p.eventBus = bus
}

// Config returns the pipeline settings.
func (p *Pipeline) Config() Config {
	return p.config
}

type produced struct {
	stats producer.Stats
	err   error
}

// Run reads entries from in, factorizes them, and writes the records to out.
func (p *Pipeline) Run(in io.Reader, out io.Writer) (*Report, error) {
	if err := p.config.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	fn := p.config.Factorize
	if fn == nil {
		fn, _ = factor.ByName(p.config.Method)
	}
	report := &Report{
		RunID:     uuid.NewString(),
		Workers:   p.config.Workers,
		Method:    p.config.Method,
		StartTime: time.Now(),
	}
	if report.Method == "" {
		report.Method = factor.MethodTrial
	}

	logger.Info("", "run %s started: %d workers, queue %d, method %s",
		report.RunID, p.config.Workers, p.config.QueueCapacity, report.Method)
	p.publish(events.NewRunStartedEvent(report.RunID, p.config.Workers))

	q := queue.New(p.config.QueueCapacity)
	m := metrics.New(p.config.Workers)

	pool := worker.NewPool(p.config.Workers, q, fn)
	pool.SetEventBus(p.eventBus, report.RunID)
	pool.SetMetrics(m)
	pool.Start()

	prod := producer.New(in, q)
	prod.SetMetrics(m)
	done := make(chan produced, 1)
	go func() {
		stats, err := prod.Run()
		p.publish(events.NewInputClosedEvent(report.RunID, stats.Read, stats.Truncated))
		done <- produced{stats: stats, err: err}
	}()

	results, joinErr := pool.Join()
	if joinErr != nil {
		// a dead worker may leave the producer blocked on a full queue
		q.Close()
	}
	pr := <-done

	report.Read = pr.stats.Read
	report.Truncated = pr.stats.Truncated
	report.BadToken = pr.stats.BadToken
	report.PerWorker = make([]int, len(results))
	for i, r := range results {
		report.PerWorker[i] = r.Len()
		report.Completed += r.Len()
	}

	if joinErr != nil {
		return p.finish(report, m, fmt.Errorf("join workers: %w", joinErr))
	}
	if report.Completed != report.Read {
		return p.finish(report, m, fmt.Errorf("%w: read %d, completed %d",
			ErrTaskCountMismatch, report.Read, report.Completed))
	}

	written, werr := collector.New(out, p.config.Format).Write(results)
	report.Written = written
	if werr != nil {
		return p.finish(report, m, werr)
	}
	if pr.err != nil {
		return p.finish(report, m, fmt.Errorf("produce: %w", pr.err))
	}
	return p.finish(report, m, nil)
}

func (p *Pipeline) finish(report *Report, m *metrics.Metrics, err error) (*Report, error) {
	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	report.Metrics = m.Snapshot()
	if err != nil {
		report.Error = err.Error()
		logger.Error("", "run %s failed: %v", report.RunID, err)
	} else {
		logger.Info("", "run %s completed: %d tasks in %v",
			report.RunID, report.Completed, report.Duration.Round(time.Millisecond))
	}
	p.publish(events.NewRunFinishedEvent(report.RunID, report.Completed, err))
	return report, err
}

func (p *Pipeline) publish(ev events.Event) {
	if p.eventBus != nil {
		p.eventBus.Publish(ev)
	}
}
