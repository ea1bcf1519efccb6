package events

import (
	"slices"
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 256

// Filter selects the events a subscriber receives. Empty fields match
// everything.
type Filter struct {
	RunID string      // only events of this run
	Types []EventType // only these event types
}

// Match reports whether ev passes the filter.
func (f Filter) Match(ev Event) bool {
	if f.RunID != "" && ev.RunID != f.RunID {
		return false
	}
	return len(f.Types) == 0 || slices.Contains(f.Types, ev.Type)
}

type subscription struct {
	ch     chan Event
	filter Filter
}

// Bus fans pipeline events out to filtered subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[<-chan Event]*subscription
	bufferSize  int
	closed      bool
	dropped     atomic.Uint64
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[<-chan Event]*subscription),
		bufferSize:  defaultBufferSize,
	}
}

// Subscribe returns a channel that receives every event.
func (b *Bus) Subscribe() <-chan Event {
	return b.SubscribeFilter(Filter{}, b.bufferSize)
}

// SubscribeBuffered returns a channel with the given buffer size
func (b *Bus) SubscribeBuffered(size int) <-chan Event {
	return b.SubscribeFilter(Filter{}, size)
}

// SubscribeRun returns a channel that receives the events of one run.
func (b *Bus) SubscribeRun(runID string) <-chan Event {
	return b.SubscribeFilter(Filter{RunID: runID}, b.bufferSize)
}

// SubscribeFilter returns a channel receiving the events matched by f.
// A size <= 0 selects the default buffer. Subscribing to a closed bus
// returns an already closed channel.
func (b *Bus) SubscribeFilter(f Filter, size int) <-chan Event {
	if size <= 0 {
		size = b.bufferSize
	}

	ch := make(chan Event, size)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[ch] = &subscription{ch: ch, filter: f}
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
// Unknown channels are ignored.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(sub.ch)
	}
}

// Publish delivers event to every matching subscriber without blocking.
// Subscribers with a full buffer miss the event.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !sub.filter.Match(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because of full buffers
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber channel. Later subscriptions are closed
// immediately.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for key, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, key)
	}
}
