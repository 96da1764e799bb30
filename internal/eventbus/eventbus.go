// Package eventbus fans scheduling and fault lifecycle events out to
// in-process consumers such as the metrics collector and the notifier.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Bus is the default EventBus implementation using fan-out channels.
type Bus struct {
	mu      sync.RWMutex
	subs    []chan Event
	closed  bool
	buffer  int
	dropped atomic.Uint64
	onDrop  func(Event)
}

// New creates a new Bus.
func New() *Bus { return &Bus{buffer: DefaultBuffer} }

// NewWithBuffer creates a Bus whose subscriber channels hold n events.
func NewWithBuffer(n int) *Bus {
	if n < 0 {
		n = 0
	}
	return &Bus{buffer: n}
}

// Publish sends the event to all subscribers. Delivery is non-blocking:
// a subscriber whose buffer is full misses the event.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
			if b.onDrop != nil {
				b.onDrop(e)
			}
		}
	}
}

// OnDrop installs fn to be called for every delivery a full subscriber
// misses. fn runs on the publishing goroutine and must not publish.
func (b *Bus) OnDrop(fn func(Event)) {
	b.mu.Lock()
	b.onDrop = fn
	b.mu.Unlock()
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels and clears the list.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
