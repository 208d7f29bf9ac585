package resolver

import (
	"container/list"
	"sync"
)

// domainCache memoizes resolved domains per (company, country) pair for the
// lifetime of the process. Bounded with LRU eviction so a long-running
// process serving many distinct lookups cannot grow without limit.
type domainCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type cacheEntry struct {
	key    string
	domain string
}

func newDomainCache(capacity int) *domainCache {
	if capacity <= 0 {
		capacity = 100
	}
	return &domainCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func cacheKey(company, country string) string {
	return company + "\x00" + country
}

func (c *domainCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).domain, true
}

func (c *domainCache) put(key, domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).domain = domain
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, domain: domain})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *domainCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
