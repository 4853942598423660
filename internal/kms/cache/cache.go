// Package cache provides an in-memory TTL and LRU bounded cache for key
// lookups. The cache is a read-through performance layer only: it is never
// authoritative, and every mutation path invalidates the affected entries
// before the mutation is acknowledged.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/doktor-sys/mietrecht-kms/internal/kms/domain"
)

// Stats is a point-in-time snapshot of cache effectiveness counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

type entry struct {
	key       string
	value     *domain.Key
	expiresAt time.Time
}

// KeyCache is a bounded TTL+LRU cache. All methods are safe for concurrent
// use. Entries expire TTL after insertion regardless of access, and the least
// recently used entry is evicted when the bound is hit.
type KeyCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	items      map[string]*list.Element
	order      *list.List // front = most recently used

	hits      uint64
	misses    uint64
	evictions uint64

	now func() time.Time
}

// New creates a KeyCache with the given TTL and entry bound. A non-positive
// maxEntries disables the size bound; a non-positive ttl makes every lookup
// a miss.
func New(ttl time.Duration, maxEntries int) *KeyCache {
	return &KeyCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

// cacheKey namespaces entries by tenant so invalidation can sweep a whole
// tenant without touching others. The separator cannot appear in validated
// identifiers.
func cacheKey(tenantID, keyID string) string {
	return tenantID + "/" + keyID
}

// Get returns the cached key for (tenantID, keyID), or nil on a miss.
// Expired entries are removed on access and count as misses.
func (c *KeyCache) Get(tenantID, keyID string) *domain.Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[cacheKey(tenantID, keyID)]
	if !ok {
		c.misses++
		return nil
	}

	ent := el.Value.(*entry)
	if !ent.expiresAt.After(c.now()) {
		c.removeElement(el)
		c.misses++
		return nil
	}

	c.order.MoveToFront(el)
	c.hits++
	return ent.value
}

// Put stores a key, evicting the least recently used entry if the bound is
// exceeded. Storing an existing key replaces it and resets its TTL.
func (c *KeyCache) Put(tenantID, keyID string, key *domain.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ck := cacheKey(tenantID, keyID)
	expiresAt := c.now().Add(c.ttl)

	if el, ok := c.items[ck]; ok {
		ent := el.Value.(*entry)
		ent.value = key
		ent.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{key: ck, value: key, expiresAt: expiresAt})
	c.items[ck] = el

	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
			c.evictions++
		}
	}
}

// Invalidate removes a single entry. Missing entries are a no-op.
func (c *KeyCache) Invalidate(tenantID, keyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[cacheKey(tenantID, keyID)]; ok {
		c.removeElement(el)
	}
}

// InvalidateTenant removes every entry belonging to tenantID.
func (c *KeyCache) InvalidateTenant(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := tenantID + "/"
	for ck, el := range c.items {
		if strings.HasPrefix(ck, prefix) {
			c.removeElement(el)
		}
	}
}

// Purge drops every entry. Counters are preserved.
func (c *KeyCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns a snapshot of the cache counters.
func (c *KeyCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   c.order.Len(),
	}
}

func (c *KeyCache) removeElement(el *list.Element) {
	ent := el.Value.(*entry)
	delete(c.items, ent.key)
	c.order.Remove(el)
}
