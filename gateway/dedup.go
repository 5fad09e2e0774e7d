package gateway

import (
	"sync"
	"time"
)

// Deduper suppresses repeated events with the same key inside a fixed window. Entries live only in memory, so
// the guard is best effort and doesn't survive a restart.
type Deduper struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	seen   map[string]time.Time
}

// NewDeduper returns a deduper with the given window.
func NewDeduper(window time.Duration) *Deduper {
	return &Deduper{
		window: window,
		now:    time.Now,
		seen:   make(map[string]time.Time),
	}
}

// Allow reports whether an event with the given key may be emitted. If it may, the emission is recorded and
// expired entries are swept.
func (d *Deduper) Allow(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}

	d.seen[key] = now
	for k, t := range d.seen {
		if now.Sub(t) >= d.window {
			delete(d.seen, k)
		}
	}

	return true
}

// Len returns the number of keys currently tracked.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
