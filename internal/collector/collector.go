package collector

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"factorize/internal/task"
)

// Format selects how records are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the supported format names.
func Formats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatYAML)}
}

// ParseFormat converts a format name. An empty name selects text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, nil
	case "json", "jsonl":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (available: %v)", s, Formats())
	}
}

// Walk calls fn for every completed task in worker order, then completion
// order. It stops at the first error fn returns.
func Walk(results []task.Result, fn func(c task.Completed) error) error {
	for _, r := range results {
		for _, c := range r.Tasks {
			if err := fn(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Count returns the number of completed tasks across all results.
func Count(results []task.Result) int {
	n := 0
	for _, r := range results {
		n += r.Len()
	}
	return n
}

// Collector renders results to a writer.
type Collector struct {
	w      io.Writer
	format Format
}

// New creates a collector. An unknown format falls back to text.
func New(w io.Writer, format Format) *Collector {
	if _, err := ParseFormat(string(format)); err != nil {
		format = FormatText
	}
	return &Collector{w: w, format: format}
}

// Write renders every task and returns how many were written.
func (c *Collector) Write(results []task.Result) (int, error) {
	switch c.format {
	case FormatJSON:
		return c.writeJSON(results)
	case FormatYAML:
		return c.writeYAML(results)
	default:
		return c.writeText(results)
	}
}

func (c *Collector) writeText(results []task.Result) (int, error) {
	bw := bufio.NewWriter(c.w)
	n := 0
	err := Walk(results, func(t task.Completed) error {
		if _, err := bw.WriteString(t.Line()); err != nil {
			return err
		}
		n++
		return bw.WriteByte('\n')
	})
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		return n, fmt.Errorf("write text output: %w", err)
	}
	return n, nil
}

func (c *Collector) writeJSON(results []task.Result) (int, error) {
	bw := bufio.NewWriter(c.w)
	enc := json.NewEncoder(bw)
	n := 0
	err := Walk(results, func(t task.Completed) error {
		n++
		return enc.Encode(t)
	})
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		return n, fmt.Errorf("write json output: %w", err)
	}
	return n, nil
}

func (c *Collector) writeYAML(results []task.Result) (int, error) {
	records := make([]task.Completed, 0, Count(results))
	_ = Walk(results, func(t task.Completed) error {
		records = append(records, t)
		return nil
	})

	enc := yaml.NewEncoder(c.w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return 0, fmt.Errorf("write yaml output: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("write yaml output: %w", err)
	}
	return len(records), nil
}
