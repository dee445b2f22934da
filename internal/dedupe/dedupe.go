// Package dedupe remembers recently seen webhook message ids so that
// provider retries are acknowledged without being dispatched twice.
package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key  string
	seen time.Time
}

// Cache is a size-bounded set of keys that expire ttl after first being
// seen. Keys are kept in arrival order, so expiry and eviction both pop
// from the front.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	keys    map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

// New returns a cache. A non-positive ttl or maxSize disables it: every
// key is reported as new.
func New(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		keys:    make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

func (c *Cache) enabled() bool {
	return c != nil && c.ttl > 0 && c.maxSize > 0
}

// Seen reports whether key was already marked within the ttl, and marks
// it if not. The check and the mark happen under one lock.
func (c *Cache) Seen(key string) bool {
	if !c.enabled() || key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.expireLocked(now)

	if _, ok := c.keys[key]; ok {
		return true
	}

	if len(c.keys) >= c.maxSize {
		front := c.order.Front()
		c.order.Remove(front)
		delete(c.keys, front.Value.(*entry).key)
	}
	c.keys[key] = c.order.PushBack(&entry{key: key, seen: now})
	return false
}

func (c *Cache) expireLocked(now time.Time) {
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		e := front.Value.(*entry)
		if now.Sub(e.seen) < c.ttl {
			return
		}
		c.order.Remove(front)
		delete(c.keys, e.key)
	}
}

// Forget removes key so that a later delivery of it is treated as new.
func (c *Cache) Forget(key string) {
	if !c.enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.keys[key]; ok {
		c.order.Remove(el)
		delete(c.keys, key)
	}
}

// Len returns the number of remembered keys, expired ones included until
// the next call to Seen.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}
