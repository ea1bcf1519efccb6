package producer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"factorize/internal/logger"
	"factorize/internal/metrics"
	"factorize/internal/task"
)

const logTag = "producer"

// maxTokenSize bounds a single label or number token.
const maxTokenSize = 1 << 20

var (
	// ErrZeroValue is returned by ParseValue for "0".
	ErrZeroValue = errors.New("zero has no prime factorization")
	// ErrMissingValue marks a label at end of input with no number after it.
	ErrMissingValue = errors.New("label without value")
)

// Putter is the producer side of the work queue.
type Putter interface {
	Put(e task.Entry) error
	Close()
}

// Stats describes what a Run consumed.
type Stats struct {
	Read      int    // entries enqueued
	Truncated bool   // input stopped at a malformed record
	BadToken  string // the token that stopped parsing
	Reason    error  // why parsing stopped early
}

// Producer reads entries from r and puts them into q.
type Producer struct {
	r       io.Reader
	q       Putter
	metrics *metrics.Metrics
}

// New creates a producer reading from r.
func New(r io.Reader, q Putter) *Producer {
	return &Producer{r: r, q: q}
}

// SetMetrics enables enqueue counting.
func (p *Producer) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// ParseValue parses a positive base-10 uint64.
func ParseValue(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, ErrZeroValue
	}
	return v, nil
}

// Run reads until end of input or the first malformed record, then closes
// the queue. A malformed record is not an error; it is reported in Stats.
// Read failures and a queue closed underneath the producer are returned as
// errors.
func (p *Producer) Run() (stats Stats, err error) {
	defer p.q.Close()

	sc := bufio.NewScanner(p.r)
	sc.Buffer(make([]byte, 0, 4096), maxTokenSize)
	sc.Split(bufio.ScanWords)

	for sc.Scan() {
		label := sc.Text()
		if !sc.Scan() {
			stats.truncate(label, ErrMissingValue)
			break
		}

		raw := sc.Text()
		value, perr := ParseValue(raw)
		if perr != nil {
			stats.truncate(raw, perr)
			break
		}

		if err := p.q.Put(task.Entry{Label: label, Value: value}); err != nil {
			return stats, fmt.Errorf("enqueue %q: %w", label, err)
		}
		stats.Read++
		if p.metrics != nil {
			p.metrics.RecordEnqueued()
		}
	}

	if err := sc.Err(); err != nil {
		if !errors.Is(err, bufio.ErrTooLong) {
			return stats, fmt.Errorf("read input: %w", err)
		}
		stats.truncate("", err)
	}

	if stats.Truncated {
		logger.Info(logTag, "stopped at malformed record %q after %d entries: %v", stats.BadToken, stats.Read, stats.Reason)
	} else {
		logger.Debug(logTag, "input exhausted after %d entries", stats.Read)
	}
	return stats, nil
}

func (s *Stats) truncate(token string, reason error) {
	s.Truncated = true
	s.BadToken = token
	s.Reason = reason
}
