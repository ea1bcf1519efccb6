package task

import (
	"strconv"
	"strings"
	"time"
)

// Entry is one (label, number) pair waiting to be factorized.
type Entry struct {
	Label string
	Value uint64
}

// Completed is the factorization of one Entry.
type Completed struct {
	Label   string        `json:"label" yaml:"label"`
	Value   uint64        `json:"value" yaml:"value"`
	Factors []uint64      `json:"factors" yaml:"factors"`
	Worker  int           `json:"worker" yaml:"worker"`
	Elapsed time.Duration `json:"-" yaml:"-"`
}

// Line renders the record as "<label> f1 f2 ... fk".
func (c Completed) Line() string {
	var b strings.Builder
	b.WriteString(c.Label)
	for _, f := range c.Factors {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(f, 10))
	}
	return b.String()
}

// Product multiplies the factors back together. An empty list yields 1.
func (c Completed) Product() uint64 {
	p := uint64(1)
	for _, f := range c.Factors {
		p *= f
	}
	return p
}

// defaultResultCapacity is only a hint; results grow without bound.
const defaultResultCapacity = 32

// Result is the ordered list of tasks completed by a single worker.
type Result struct {
	Worker int
	Tasks  []Completed
}

// NewResult creates an empty result for the given worker index.
func NewResult(worker int) Result {
	return Result{
		Worker: worker,
		Tasks:  make([]Completed, 0, defaultResultCapacity),
	}
}

// Add appends a completed task.
func (r *Result) Add(c Completed) {
	r.Tasks = append(r.Tasks, c)
}

// Len returns the number of completed tasks.
func (r Result) Len() int {
	return len(r.Tasks)
}
