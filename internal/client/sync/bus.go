package sync

import gosync "sync"

// Bus is the broadcast transport between client contexts sharing one
// origin. Delivery is best-effort and fire-and-forget: no ordering
// guarantee, no acknowledgment, closed contexts silently miss
// messages. Receivers identify and skip their own messages by Source.
type Bus interface {
	// Publish broadcasts the message to every subscriber
	Publish(msg ChangeMessage)

	// Subscribe registers a handler and returns its unsubscribe func.
	// Handlers must be fast and must not block.
	Subscribe(fn func(ChangeMessage)) (unsubscribe func())
}

// MemBus is the in-process Bus used when all contexts live in one
// process (services of one client, tests). Delivery is synchronous in
// subscription order.
type MemBus struct {
	mu     gosync.Mutex
	nextID int
	subs   map[int]func(ChangeMessage)
}

// NewMemBus creates an empty in-process bus
func NewMemBus() *MemBus {
	return &MemBus{subs: make(map[int]func(ChangeMessage))}
}

// Publish broadcasts the message to every subscriber
func (b *MemBus) Publish(msg ChangeMessage) {
	b.mu.Lock()
	subs := make([]func(ChangeMessage), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
}

// Subscribe registers a handler and returns its unsubscribe func
func (b *MemBus) Subscribe(fn func(ChangeMessage)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
