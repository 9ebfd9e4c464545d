// Package memcache is the in-process price cache.
package memcache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fd1az/albion-market-router/business/market/domain"
	"github.com/fd1az/albion-market-router/internal/clock"
)

type entry struct {
	quotes    []domain.PriceQuote
	expiresAt time.Time
}

// Cache is a TTL map guarded by a RWMutex. Entries are replaced whole;
// expired entries are dropped when next read or swept.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   clock.Clock
}

// New creates an empty cache.
func New(clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.New()
	}
	return &Cache{
		entries: make(map[string]entry),
		clock:   clk,
	}
}

// Get returns the quotes stored under key if the entry has not expired.
func (c *Cache) Get(_ context.Context, key string) ([]domain.PriceQuote, bool) {
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		c.mu.Lock()
		// Only drop the entry we saw; a writer may have replaced it.
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.quotes, true
}

// Set stores a private copy of quotes under key for ttl.
func (c *Cache) Set(_ context.Context, key string, quotes []domain.PriceQuote, ttl time.Duration) {
	e := entry{
		quotes:    slices.Clone(quotes),
		expiresAt: c.clock.Now().Add(ttl),
	}
	if e.quotes == nil {
		e.quotes = []domain.PriceQuote{}
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *Cache) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
