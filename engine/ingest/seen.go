package ingest

import (
	"sync"
	"time"
)

type seenEntry struct {
	id string
	at time.Time
}

// SeenCache remembers recently stored event ids so that redelivered events
// are not written twice. It is bounded both in size and in age.
type SeenCache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []seenEntry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewSeenCache creates a cache holding at most capacity ids for ttl each.
func NewSeenCache(capacity int, ttl time.Duration) *SeenCache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SeenCache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]seenEntry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Seen reports whether id was marked within the ttl window.
func (c *SeenCache) Seen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	at, ok := c.items[id]
	return ok && c.now().Sub(at) <= c.ttl
}

// Mark records id as stored.
func (c *SeenCache) Mark(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[id] = now
	c.order = append(c.order, seenEntry{id: id, at: now})
	c.compact(now)
}

// Len returns the number of ids currently held.
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *SeenCache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)
	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].at.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]
		// a re-marked id has a newer entry further down the queue
		if at, ok := c.items[oldest.id]; ok && at.Equal(oldest.at) {
			delete(c.items, oldest.id)
		}
	}
}
