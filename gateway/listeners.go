package gateway

import "sync"

// broadcaster delivers values to a set of subscribed listeners in subscription order.
type broadcaster[T any] struct {
	mu        sync.Mutex
	nextID    int
	listeners []subscription[T]
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// subscribe adds a listener and returns the function that removes it. Calling the returned function more
// than once is harmless.
func (b *broadcaster[T]) subscribe(fn func(T)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, subscription[T]{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.listeners {
			if s.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// emit calls every listener subscribed at the time of the call. Listeners may subscribe or unsubscribe while
// the emission is in progress.
func (b *broadcaster[T]) emit(value T) {
	b.mu.Lock()
	snapshot := make([]subscription[T], len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.Unlock()

	for _, s := range snapshot {
		s.fn(value)
	}
}

// len returns the number of subscribed listeners.
func (b *broadcaster[T]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
