package cache

import (
	"context"
	"sync"
	"time"
)

type inMemoryCacheItem struct {
	value      []byte
	expiration time.Time
}

func (i inMemoryCacheItem) isExpired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// InMemoryCache is a process-local RawCache. Expired entries are dropped
// lazily on access and by a periodic sweep.
type InMemoryCache struct {
	mu     sync.RWMutex
	items  map[string]inMemoryCacheItem
	maxAge time.Duration
	now    func() time.Time

	closeOnce sync.Once
	stop      chan struct{}
}

const defaultCleanupInterval = 5 * time.Minute

// NewInMemoryCache creates an in-memory cache. Only the MaxAge option is
// used.
func NewInMemoryCache(opts ...Option) *InMemoryCache {
	o := NewOptions(opts...)
	c := &InMemoryCache{
		items:  make(map[string]inMemoryCacheItem),
		maxAge: o.MaxAge,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go c.sweep(defaultCleanupInterval)
	return c
}

func (c *InMemoryCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *InMemoryCache) removeExpired() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, item := range c.items {
		if item.isExpired(now) {
			delete(c.items, k)
		}
	}
}

func (c *InMemoryCache) lookup(key string) (inMemoryCacheItem, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return item, false
	}
	if now := c.now(); item.isExpired(now) {
		c.evictExpired(key, now)
		return item, false
	}
	return item, true
}

// evictExpired deletes key only if the entry stored under it is still
// expired; a Set racing with lookup must survive.
func (c *InMemoryCache) evictExpired(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.items[key]; ok && cur.isExpired(now) {
		delete(c.items, key)
	}
}

func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, ok := c.lookup(key)
	if !ok {
		return nil, false, nil
	}
	return item.value, true, nil
}

func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.maxAge
	}

	item := inMemoryCacheItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiration = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.lookup(key)
	return ok, nil
}

func (c *InMemoryCache) Flush(_ context.Context) error {
	c.mu.Lock()
	c.items = make(map[string]inMemoryCacheItem)
	c.mu.Unlock()
	return nil
}

// Close stops the sweeper. It is safe to call more than once.
func (c *InMemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	return nil
}
