package worker

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"factorize/internal/events"
	"factorize/internal/factor"
	"factorize/internal/metrics"
	"factorize/internal/queue"
	"factorize/internal/task"
)

// feed puts values 1..n into q on a separate goroutine and closes it.
func feed(q *queue.Queue, values []uint64) {
	go func() {
		defer q.Close()
		for i, v := range values {
			if err := q.Put(task.Entry{Label: "n" + strconv.Itoa(i), Value: v}); err != nil {
				return
			}
		}
	}()
}

func sequence(n int) []uint64 {
	values := make([]uint64, n)
	for i := range values {
		values[i] = uint64(i + 1)
	}
	return values
}

func joinWithTimeout(t *testing.T, p *Pool) ([]task.Result, error) {
	t.Helper()

	type joined struct {
		results []task.Result
		err     error
	}
	done := make(chan joined, 1)
	go func() {
		r, err := p.Join()
		done <- joined{r, err}
	}()

	select {
	case j := <-done:
		return j.results, j.err
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for workers to join")
		return nil, nil
	}
}

func TestNewPool(t *testing.T) {
	q := queue.New(1)

	if n := NewPool(4, q, nil).NumWorkers(); n != 4 {
		t.Errorf("expected 4 workers, got %d", n)
	}
	if n := NewPool(0, q, nil).NumWorkers(); n != 1 {
		t.Errorf("expected zero workers to become 1, got %d", n)
	}
	if n := NewPool(-5, q, nil).NumWorkers(); n != 1 {
		t.Errorf("expected negative workers to become 1, got %d", n)
	}
}

func TestJoinBeforeStart(t *testing.T) {
	pool := NewPool(2, queue.New(1), nil)
	if _, err := pool.Join(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestPoolDrainsQueue(t *testing.T) {
	const total = 500
	q := queue.New(4)
	pool := NewPool(3, q, factor.TrialDivision)
	pool.Start()
	pool.Start() // no-op

	feed(q, sequence(total))

	results, err := joinWithTimeout(t, pool)
	if err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	seen := make(map[uint64]int)
	for i, r := range results {
		if r.Worker != i {
			t.Errorf("result %d belongs to worker %d", i, r.Worker)
		}
		for _, c := range r.Tasks {
			seen[c.Value]++
			if c.Worker != i {
				t.Errorf("task %s recorded worker %d, expected %d", c.Label, c.Worker, i)
			}
			if c.Product() != c.Value {
				t.Errorf("task %s: factors %v do not multiply to %d", c.Label, c.Factors, c.Value)
			}
		}
	}
	if len(seen) != total {
		t.Errorf("expected %d distinct values, got %d", total, len(seen))
	}
	for v, n := range seen {
		if n != 1 {
			t.Errorf("value %d completed %d times", v, n)
		}
	}

	if _, err := pool.Join(); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestSingleWorkerPreservesOrder(t *testing.T) {
	q := queue.New(8)
	pool := NewPool(1, q, factor.TrialDivision)
	pool.Start()

	go func() {
		defer q.Close()
		_ = q.Put(task.Entry{Label: "m", Value: 360})
		_ = q.Put(task.Entry{Label: "n", Value: 97})
	}()

	results, err := joinWithTimeout(t, pool)
	if err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}

	tasks := results[0].Tasks
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if got := tasks[0].Line(); got != "m 2 2 2 3 3 5" {
		t.Errorf("unexpected first record %q", got)
	}
	if got := tasks[1].Line(); got != "n 97" {
		t.Errorf("unexpected second record %q", got)
	}
}

func TestIdleWorkersStopOnClose(t *testing.T) {
	q := queue.New(4)
	pool := NewPool(5, q, nil)
	pool.Start()

	// every worker is blocked in Take
	time.Sleep(50 * time.Millisecond)
	q.Close()

	results, err := joinWithTimeout(t, pool)
	if err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	for i, r := range results {
		if r.Len() != 0 {
			t.Errorf("worker %d: expected no tasks, got %d", i, r.Len())
		}
	}
}

func TestWorkerPanicIsReported(t *testing.T) {
	q := queue.New(4)
	fn := func(n uint64) []uint64 {
		if n == 13 {
			panic("unlucky")
		}
		return factor.TrialDivision(n)
	}
	pool := NewPool(2, q, fn)
	pool.Start()

	feed(q, sequence(50))

	results, err := joinWithTimeout(t, pool)
	if !errors.Is(err, ErrWorkerPanic) {
		t.Fatalf("expected ErrWorkerPanic, got %v", err)
	}

	completed := 0
	for _, r := range results {
		completed += r.Len()
	}
	if completed != 49 {
		t.Errorf("expected 49 completed tasks, got %d", completed)
	}
}

func TestPoolPublishesEventsAndMetrics(t *testing.T) {
	const total = 40
	q := queue.New(4)
	bus := events.NewBus()
	ch := bus.SubscribeBuffered(1024)
	m := metrics.New(2)

	pool := NewPool(2, q, factor.PollardRho)
	pool.SetEventBus(bus, "run-test")
	pool.SetMetrics(m)
	pool.Start()

	feed(q, sequence(total))

	if _, err := joinWithTimeout(t, pool); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	bus.Close()

	counts := make(map[events.EventType]int)
	for ev := range ch {
		if ev.RunID != "run-test" {
			t.Errorf("unexpected run id %q", ev.RunID)
		}
		counts[ev.Type]++
	}

	if counts[events.EventWorkerStarted] != 2 || counts[events.EventWorkerStopped] != 2 {
		t.Errorf("expected 2 start and 2 stop events, got %v", counts)
	}
	if counts[events.EventTaskCompleted] != total {
		t.Errorf("expected %d task events, got %d", total, counts[events.EventTaskCompleted])
	}

	if m.TotalTasks() != total {
		t.Errorf("expected %d tasks in metrics, got %d", total, m.TotalTasks())
	}
	per := m.PerWorker()
	if per[0]+per[1] != total {
		t.Errorf("per-worker counts %v do not add up to %d", per, total)
	}
}
