package mlregistry

import (
	"container/list"
	"sync"
)

const defaultDescriptorCacheSize = 256

// descriptorCache is a bounded LRU of parsed model descriptors keyed by
// artifact source path. Descriptors are immutable per path, so entries are
// never invalidated, only evicted when the cache is full.
type descriptorCache struct {
	mu      sync.Mutex
	cap     int
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry struct {
	key   string
	value map[string]any
}

func newDescriptorCache(capacity int) *descriptorCache {
	return &descriptorCache{
		cap:     capacity,
		order:   list.New(),
		entries: make(map[string]*list.Element, capacity),
	}
}

func (c *descriptorCache) get(key string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).value, true
}

func (c *descriptorCache) put(key string, value map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: value})
	if c.order.Len() > c.cap {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}
