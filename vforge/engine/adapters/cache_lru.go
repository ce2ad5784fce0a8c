package engineadapters

import (
	"container/list"
	"context"
	"sync"
	"time"

	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

type cacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// LRUCache is an in-memory response cache with per-entry TTL and
// least-recently-used eviction.
type LRUCache struct {
	mu         sync.Mutex
	maxEntries int
	ll         *list.List
	items      map[string]*list.Element
}

// NewLRUCache builds a cache holding at most maxEntries values.
func NewLRUCache(maxEntries int) *LRUCache {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	return &LRUCache{
		maxEntries: maxEntries,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns the cached value if present and unexpired.
func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.remove(el)
		return nil, false
	}
	c.ll.MoveToFront(el)
	return entry.value, true
}

// Set stores value under key for ttlSeconds, evicting the oldest entry when
// full.
func (c *LRUCache) Set(_ context.Context, key string, value []byte, ttlSeconds int) error {
	if ttlSeconds <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	expires := time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	if el, ok := c.items[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = expires
		c.ll.MoveToFront(el)
		return nil
	}
	el := c.ll.PushFront(&cacheEntry{key: key, value: value, expiresAt: expires})
	c.items[key] = el
	if c.ll.Len() > c.maxEntries {
		c.remove(c.ll.Back())
	}
	return nil
}

// Delete removes key if present.
func (c *LRUCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
	return nil
}

func (c *LRUCache) remove(el *list.Element) {
	if el == nil {
		return
	}
	entry := el.Value.(*cacheEntry)
	delete(c.items, entry.key)
	c.ll.Remove(el)
}

var _ engineports.Cache = (*LRUCache)(nil)
