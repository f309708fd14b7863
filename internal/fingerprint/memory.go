// Package fingerprint deduplicates previously seen content within a TTL
// window. It is the first and cheapest filter in the pipeline and runs before
// any relevance scoring or classifier call.
package fingerprint

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/oddsflow/rosterwatch/internal/monitor"
)

// Config controls cache retention.
type Config struct {
	TTL        time.Duration
	MaxEntries int
}

const (
	defaultTTL        = 24 * time.Hour
	defaultMaxEntries = 5000
)

type entry struct {
	hash      string
	firstSeen time.Time
}

// Cache is an in-memory fingerprint store bounded by TTL and entry count.
// Oldest entries are evicted first when the cache is full.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = oldest
	cfg     Config
	clock   monitor.Clock
}

// NewCache constructs an in-memory cache.
func NewCache(cfg Config, clock monitor.Clock) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	return &Cache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		cfg:     cfg,
		clock:   clock,
	}
}

// Seen reports whether the hash was recorded within the TTL window. Entries
// past their TTL are logically absent even before the next sweep.
func (c *Cache) Seen(_ context.Context, hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[hash]
	if !ok {
		return false
	}
	return c.clock.Now().Sub(el.Value.(entry).firstSeen) < c.cfg.TTL
}

// Record stores the hash, evicting the oldest entry if the cache is full.
// Recording an already present hash refreshes nothing; the first-seen
// timestamp is authoritative.
func (c *Cache) Record(_ context.Context, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[hash]; ok {
		return
	}
	if c.order.Len() >= c.cfg.MaxEntries {
		oldest := c.order.Front()
		if oldest != nil {
			delete(c.entries, oldest.Value.(entry).hash)
			c.order.Remove(oldest)
		}
	}
	c.entries[hash] = c.order.PushBack(entry{hash: hash, firstSeen: c.clock.Now()})
}

// Sweep physically removes expired entries and returns how many were removed.
func (c *Cache) Sweep(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if now.Sub(el.Value.(entry).firstSeen) < c.cfg.TTL {
			break // insertion order doubles as age order
		}
		delete(c.entries, el.Value.(entry).hash)
		c.order.Remove(el)
		removed++
		el = next
	}
	return removed
}

// Size returns the number of physically present entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
