package manifold

import (
	"sync"
	"time"

	"resolvent/internal/rule"
)

// Cache holds recently fetched market contexts with a TTL. The decision
// loop fills it; the snapshot loop reads from it so snapshots do not
// trigger a second round of API calls.
type Cache struct {
	mu       sync.RWMutex
	contexts map[string]cacheEntry
	ttl      time.Duration
}

type cacheEntry struct {
	ctx       rule.Context
	fetchedAt time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		contexts: make(map[string]cacheEntry),
		ttl:      ttl,
	}
}

func (c *Cache) Get(id string) (rule.Context, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.contexts[id]
	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		return rule.Context{}, false
	}
	return entry.ctx, true
}

func (c *Cache) Set(ctx rule.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.contexts[ctx.ID] = cacheEntry{
		ctx:       ctx,
		fetchedAt: time.Now(),
	}
}

// All returns all non-expired contexts.
func (c *Cache) All() []rule.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	result := make([]rule.Context, 0, len(c.contexts))
	for _, entry := range c.contexts {
		if now.Sub(entry.fetchedAt) <= c.ttl {
			result = append(result, entry.ctx)
		}
	}
	return result
}
