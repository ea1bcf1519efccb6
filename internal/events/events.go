package events

import (
	"fmt"
	"slices"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// EventRunStarted is emitted before the first worker starts
	EventRunStarted EventType = "run_started"
	// EventWorkerStarted is emitted when a worker begins taking entries
	EventWorkerStarted EventType = "worker_started"
	// EventTaskCompleted is emitted after each factorization
	EventTaskCompleted EventType = "task_completed"
	// EventWorkerStopped is emitted when a worker observes the closed, empty queue
	EventWorkerStopped EventType = "worker_stopped"
	// EventInputClosed is emitted when the producer closes the queue
	EventInputClosed EventType = "input_closed"
	// EventRunFinished is emitted after results have been collected
	EventRunFinished EventType = "run_finished"
)

// EventTypes lists every event type in emission order.
func EventTypes() []EventType {
	return []EventType{
		EventRunStarted,
		EventWorkerStarted,
		EventTaskCompleted,
		EventWorkerStopped,
		EventInputClosed,
		EventRunFinished,
	}
}

// ParseEventType returns the EventType named s.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !slices.Contains(EventTypes(), t) {
		return "", fmt.Errorf("unknown event type: %q", s)
	}
	return t, nil
}

// Event is a single pipeline notification
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Worker    int       `json:"worker"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Label     string   `json:"label,omitempty"`
	Value     uint64   `json:"value,omitempty"`
	Factors   []uint64 `json:"factors,omitempty"`
	Count     int      `json:"count,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// NewRunStartedEvent creates a run start event
func NewRunStartedEvent(runID string, workers int) Event {
	return Event{
		Type:      EventRunStarted,
		Timestamp: time.Now(),
		RunID:     runID,
		Worker:    -1,
		Data:      EventData{Count: workers},
	}
}

// NewWorkerStartedEvent creates a worker start event
func NewWorkerStartedEvent(runID string, worker int) Event {
	return Event{
		Type:      EventWorkerStarted,
		Timestamp: time.Now(),
		RunID:     runID,
		Worker:    worker,
	}
}

// NewTaskCompletedEvent creates an event for one finished factorization
func NewTaskCompletedEvent(runID string, worker int, label string, value uint64, factors []uint64) Event {
	return Event{
		Type:      EventTaskCompleted,
		Timestamp: time.Now(),
		RunID:     runID,
		Worker:    worker,
		Data: EventData{
			Label:   label,
			Value:   value,
			Factors: factors,
		},
	}
}

// NewWorkerStoppedEvent creates a worker stop event carrying its task count
func NewWorkerStoppedEvent(runID string, worker, completed int, err error) Event {
	return Event{
		Type:      EventWorkerStopped,
		Timestamp: time.Now(),
		RunID:     runID,
		Worker:    worker,
		Data: EventData{
			Count: completed,
			Error: errString(err),
		},
	}
}

// NewInputClosedEvent creates an event for the end of input
func NewInputClosedEvent(runID string, read int, truncated bool) Event {
	return Event{
		Type:      EventInputClosed,
		Timestamp: time.Now(),
		RunID:     runID,
		Worker:    -1,
		Data: EventData{
			Count:     read,
			Truncated: truncated,
		},
	}
}

// NewRunFinishedEvent creates a run finish event
func NewRunFinishedEvent(runID string, completed int, err error) Event {
	return Event{
		Type:      EventRunFinished,
		Timestamp: time.Now(),
		RunID:     runID,
		Worker:    -1,
		Data: EventData{
			Count: completed,
			Error: errString(err),
		},
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
