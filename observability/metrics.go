package observability

import (
	"context"
	"maps"
	"sync"
)

// CountingObserver tallies events by type. It is safe for concurrent use, so
// one goroutine may read counts while the cycle goroutine emits.
type CountingObserver struct {
	mu     sync.RWMutex
	counts map[EventType]int64
}

// NewCountingObserver creates an empty CountingObserver.
func NewCountingObserver() *CountingObserver {
	return &CountingObserver{counts: make(map[EventType]int64)}
}

func (c *CountingObserver) OnEvent(_ context.Context, event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[event.Type]++
}

// Count returns how many events of type t have been observed.
func (c *CountingObserver) Count(t EventType) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[t]
}

// Snapshot returns a copy of all counts.
func (c *CountingObserver) Snapshot() map[EventType]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.counts)
}
