package ordersync

import (
	"slices"
	"sync"
	"time"
)

// EventStatusChanged is the name under which status changes are published.
const EventStatusChanged = "orderStatusChanged"

// StatusChanged is published when a poll observes a status different from
// the last one applied.
type StatusChanged struct {
	OrderID   string    `json:"orderId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Timestamp time.Time `json:"timestamp"`
	// ValidTransition is false when the move skips or reverses the known
	// order lifecycle. Informational only; the server stays authoritative.
	ValidTransition bool `json:"validTransition"`
}

// Bus fans status-changed events out to subscribers. The zero value is ready
// to use. Handlers run synchronously on the dispatching goroutine and must
// not call Session.Stop or Session.Close.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(StatusChanged)
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(StatusChanged)) (cancel func()) {
	if b == nil || fn == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[int]func(StatusChanged))
	}
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to every subscriber in registration order.
func (b *Bus) Dispatch(ev StatusChanged) {
	if b == nil {
		return
	}
	b.mu.RLock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	handlers := make([]func(StatusChanged), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Len returns the number of active subscribers.
func (b *Bus) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
