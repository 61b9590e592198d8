package states

import (
	"sync"
	"time"
)

// readCache is a short-TTL cache of read projections, invalidated by tag.
//
// Entries are keyed "read_" + property id and tagged with the property id
// plus, for mapped reads, the parent id, so a write to the parent also
// drops cached mapped reads. A zero TTL disables caching entirely.
type readCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	keyTags map[string][]string
}

type cacheEntry struct {
	state   *StateProjection
	expires time.Time
}

func newReadCache(ttl time.Duration) *readCache {
	return &readCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		keyTags: make(map[string][]string),
	}
}

func readCacheKey(propertyID string) string {
	return "read_" + propertyID
}

// get returns the cached projection for the key, treating expired entries
// as misses.
func (c *readCache) get(key string) (*StateProjection, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, key)
		delete(c.keyTags, key)
		return nil, false
	}
	return entry.state, true
}

// put stores a projection under the key with the given invalidation tags.
func (c *readCache) put(key string, state *StateProjection, tags ...string) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{state: state, expires: time.Now().Add(c.ttl)}
	c.keyTags[key] = tags
}

// invalidate drops every entry carrying the tag.
func (c *readCache) invalidate(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, tags := range c.keyTags {
		for _, t := range tags {
			if t == tag {
				delete(c.entries, key)
				delete(c.keyTags, key)
				break
			}
		}
	}
}
