// Package event implements a tiny generic typed pub-sub primitive,
// Bus[T], for signals with more than the handful of bespoke On*
// setters reply.Reply and websocket.Session already carry. Grounded
// on the subscribe/notify shape implicit in nabbar-golib/monitor's
// state-transition hooks (a health check registers a callback, the
// monitor fans a status change out to every registered callback),
// reduced here to a minimal generic that any signal payload type can
// reuse instead of a bespoke callback slice.
package event

import "sync"

// Bus is a synchronous, ordered multi-subscriber channel for values
// of type T. Subscribers are invoked in registration order on the
// goroutine that calls Publish; a slow or blocking subscriber delays
// every subscriber after it, exactly like the []func(...) slices it
// replaces.
type Bus[T any] struct {
	mu   sync.Mutex
	subs []subscription[T]
	next int
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// Subscription identifies a registered callback so it can later be
// removed with Unsubscribe.
type Subscription int

// Subscribe registers fn and returns a Subscription handle.
func (b *Bus[T]) Subscribe(fn func(T)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs = append(b.subs, subscription[T]{id: id, fn: fn})
	return Subscription(id)
}

// Unsubscribe removes the callback registered under sub, if still
// present. Safe to call more than once.
func (b *Bus[T]) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == int(sub) {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish invokes every currently subscribed callback with v, in
// registration order. Subscribers added or removed during Publish by
// another goroutine do not affect the in-progress call's snapshot.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	snapshot := make([]subscription[T], len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		s.fn(v)
	}
}

// Len reports the number of currently registered subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
