// Package cache holds the retrieval result cache used by the hybrid
// pipeline. Entries are keyed by the pipeline's scope|query|k string and
// expire after a TTL so stale rankings never outlive corpus changes for
// long.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type item[V any] struct {
	key     string
	value   V
	expires time.Time
}

// LRU is a fixed-capacity cache with per-entry TTL. The zero value is not
// usable; construct with NewLRU.
type LRU[V any] struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	index map[string]*list.Element
	order *list.List // front = most recently used
}

// NewLRU creates a cache bounded to capacity entries with a default TTL.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LRU[V]{
		cap:   capacity,
		ttl:   ttl,
		index: make(map[string]*list.Element, capacity),
		order: list.New(),
	}
}

// Get returns the value stored under key when present and not expired.
func (c *LRU[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return zero, false
	}
	it := el.Value.(*item[V])
	if time.Now().After(it.expires) {
		c.order.Remove(el)
		delete(c.index, key)
		return zero, false
	}
	c.order.MoveToFront(el)
	return it.value, true
}

// Set stores value under key. ttl <= 0 uses the cache default.
func (c *LRU[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		it := el.Value.(*item[V])
		it.value = value
		it.expires = time.Now().Add(ttl)
		c.order.MoveToFront(el)
		return
	}
	for len(c.index) >= c.cap {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*item[V]).key)
	}
	c.index[key] = c.order.PushFront(&item[V]{key: key, value: value, expires: time.Now().Add(ttl)})
}

// Purge drops every entry.
func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]*list.Element, c.cap)
	c.order.Init()
}

// Len reports the number of entries currently indexed, including expired
// ones not yet swept by a Get.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}
