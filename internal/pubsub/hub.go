// Package pubsub provides a small typed observer list with explicit
// subscribe/unsubscribe lifecycle.
package pubsub

import "sync"

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Hub delivers published values to its subscribers synchronously, in the
// order they subscribed. It is safe for concurrent use; listeners run
// outside the hub lock, so they may subscribe or unsubscribe themselves.
type Hub[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber[T]
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is idempotent.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber[T]{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.subs {
		if s.id == id {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every current subscriber with v.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	snapshot := h.subs
	h.mu.Unlock()

	for _, s := range snapshot {
		s.fn(v)
	}
}

// Len returns the number of active subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
