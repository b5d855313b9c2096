// Package cache provides a thread-safe LRU cache for built query terms.
//
// Frontends such as celql use it to avoid re-translating the same source on
// every call. Terms are stored once and every lookup hands out a deep copy, so
// callers may consume or mutate what they get without affecting the cache.
//
// # Example
//
//	c := cache.New(1024)
//	term, err := c.GetOrBuild(`row.age > 25`, translate)
package cache

import (
	"container/list"
	"sync"

	"github.com/sandrolain/goreql/pkg/ql2"
)

// entry is a cache entry stored in the doubly-linked list.
type entry struct {
	key  string
	term *ql2.Term
}

// Cache is a thread-safe LRU (Least Recently Used) cache of terms.
// Once the capacity is reached, the least recently accessed entry is evicted.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element

	hits, misses uint64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Len      int
	Capacity int
}

// New creates a new LRU cache with the given capacity.
// capacity must be > 0; if <= 0, a default of 256 is used.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns a copy of the cached term for key and marks it most recently
// used. It returns (nil, false) when key is not present.
func (c *Cache) Get(key string) (*ql2.Term, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.ll.MoveToFront(el)
	return el.Value.(*entry).term.Clone(), true
}

// Set stores a copy of term under key, replacing any previous entry.
// If at capacity, the least recently used entry is evicted first.
func (c *Cache) Set(key string, term *ql2.Term) {
	stored := term.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).term = stored
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&entry{key: key, term: stored})
	c.items[key] = el
}

// GetOrBuild returns a copy of the term cached under key, or calls build,
// caches its result and returns it. Errors are not cached.
// build may run more than once for the same key under concurrent misses.
func (c *Cache) GetOrBuild(key string, build func() (*ql2.Term, error)) (*ql2.Term, bool, error) {
	if term, ok := c.Get(key); ok {
		return term, true, nil
	}
	term, err := build()
	if err != nil {
		return nil, false, err
	}
	c.Set(key, term)
	return term, false, nil
}

// Len returns the number of entries currently in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Hits: c.hits, Misses: c.misses, Len: len(c.items), Capacity: c.capacity}
}

// Invalidate removes a single entry from the cache.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held for writing.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
