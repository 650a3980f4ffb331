package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(capacity int, ttl time.Duration) (*SeenCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewSeenCache(capacity, ttl)
	c.now = clock.now
	return c, clock
}

func TestSeenCache_Duplicate(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	require.False(t, c.Seen("alpha"))
	c.Mark("alpha")
	require.True(t, c.Seen("alpha"))
}

func TestSeenCache_TTLExpiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Mark("beta")
	clock.advance(61 * time.Second)
	require.False(t, c.Seen("beta"))

	c.Mark("gamma")
	require.Equal(t, 1, c.Len(), "expired entries are compacted on the next mark")
}

func TestSeenCache_CapacityEvictsOldest(t *testing.T) {
	c, clock := newTestCache(2, time.Minute)
	c.Mark("first")
	clock.advance(time.Second)
	c.Mark("second")
	clock.advance(time.Second)
	c.Mark("third")

	require.False(t, c.Seen("first"))
	require.True(t, c.Seen("second"))
	require.True(t, c.Seen("third"))
	require.Equal(t, 2, c.Len())
}

func TestSeenCache_RemarkKeepsNewest(t *testing.T) {
	c, clock := newTestCache(2, time.Minute)
	c.Mark("a")
	clock.advance(time.Second)
	c.Mark("b")
	clock.advance(time.Second)
	c.Mark("a")
	clock.advance(time.Second)
	c.Mark("c")

	require.True(t, c.Seen("a"))
	require.False(t, c.Seen("b"))
	require.True(t, c.Seen("c"))
}

func TestSeenCache_Defaults(t *testing.T) {
	c := NewSeenCache(0, 0)
	require.Equal(t, 1, c.capacity)
	require.Equal(t, time.Hour, c.ttl)
}
