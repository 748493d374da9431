// Package bus carries memory lifecycle events from the session memory
// manager to interested observers (CLI debug output, metrics shippers).
// Publishing is non-blocking: a slow or absent subscriber drops events
// rather than stalling a memory operation.
package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type EventKind string

const (
	EventSessionCreated EventKind = "session_created"
	EventTurnAppended   EventKind = "turn_appended"
	EventFactRetained   EventKind = "fact_retained"
	EventFactEvicted    EventKind = "fact_evicted"
	EventSessionClosed  EventKind = "session_closed"
	EventSessionEvicted EventKind = "session_evicted"
)

// Event describes one memory mutation.
type Event struct {
	Kind      EventKind
	SessionID string
	Detail    string
	At        time.Time
}

const publishTimeout = 100 * time.Millisecond

type MemoryBus struct {
	events  chan Event
	closed  bool
	dropped atomic.Uint64
	mu      sync.RWMutex
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		events: make(chan Event, 100),
	}
}

// Publish enqueues an event, waiting at most publishTimeout when the buffer
// is full before counting the event as dropped.
func (mb *MemoryBus) Publish(ev Event) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return
	}

	select {
	case mb.events <- ev:
	default:
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case mb.events <- ev:
		case <-timer.C:
			mb.dropped.Add(1)
		}
	}
}

// Subscribe blocks for the next event. Returns ok=false when the bus is
// closed or the context is done.
func (mb *MemoryBus) Subscribe(ctx context.Context) (Event, bool) {
	select {
	case ev, ok := <-mb.events:
		if !ok {
			return Event{}, false
		}
		return ev, true
	case <-ctx.Done():
		return Event{}, false
	}
}

func (mb *MemoryBus) Close() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return
	}
	mb.closed = true
	close(mb.events)
}

// Dropped reports how many events were discarded due to a full buffer.
func (mb *MemoryBus) Dropped() uint64 {
	return mb.dropped.Load()
}
