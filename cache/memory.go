package cache

import (
	"context"
	"sync"
	"time"
)

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

func (i *cacheItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// MemoryCache 进程内 TTL 缓存
//
// 条目数或总字节数达到上限时淘汰最早过期的条目。后台协程定期清理过期条目，Close 后停止。
type MemoryCache struct {
	cache      map[string]*cacheItem
	maxEntries int
	maxBytes   int64
	size       int64
	mu         sync.RWMutex
	stop       chan struct{}
	stopOnce   sync.Once
	now        func() time.Time
}

// MemoryOption 内存缓存配置项
type MemoryOption func(*MemoryCache)

// WithMaxBytes 限制缓存值的总字节数，<= 0 表示不限
func WithMaxBytes(n int64) MemoryOption {
	return func(c *MemoryCache) { c.maxBytes = n }
}

// NewMemoryCache 创建内存缓存，maxEntries <= 0 表示不限
func NewMemoryCache(maxEntries int, opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		cache:      make(map[string]*cacheItem),
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired(time.Minute)

	return c
}

// Get 获取缓存
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.cache[key]
	if !exists || item.expired(c.now()) {
		return nil, false, nil
	}
	return item.value, true, nil
}

// Set 设置缓存，ttl <= 0 表示不过期
//
// 单个值超过字节上限时不缓存，同键的旧值也被移除。
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
	n := int64(len(value))
	if c.maxBytes > 0 && n > c.maxBytes {
		return nil
	}

	item := &cacheItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}

	for len(c.cache) > 0 && c.overLimitLocked(n) {
		c.evictLocked()
	}
	c.cache[key] = item
	c.size += n
	return nil
}

// Delete 删除缓存
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
	return nil
}

// Size 当前缓存值的总字节数
func (c *MemoryCache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// overLimitLocked 再放入 n 字节的新条目是否超限
func (c *MemoryCache) overLimitLocked(n int64) bool {
	if c.maxEntries > 0 && len(c.cache) >= c.maxEntries {
		return true
	}
	return c.maxBytes > 0 && c.size+n > c.maxBytes
}

func (c *MemoryCache) removeLocked(key string) {
	if item, ok := c.cache[key]; ok {
		c.size -= int64(len(item.value))
		delete(c.cache, key)
	}
}

// Len 当前条目数，包含尚未清理的过期条目
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Close 停止后台清理
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// evictLocked 先删过期条目，否则删最早过期的一个
func (c *MemoryCache) evictLocked() {
	now := c.now()
	var victim string
	var victimAt time.Time
	for key, item := range c.cache {
		if item.expired(now) {
			c.removeLocked(key)
			return
		}
		at := item.expiresAt
		if at.IsZero() {
			at = now.Add(100 * 365 * 24 * time.Hour)
		}
		if victim == "" || at.Before(victimAt) {
			victim, victimAt = key, at
		}
	}
	c.removeLocked(victim)
}

// cleanupExpired 定期清理过期缓存
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purge()
		}
	}
}

func (c *MemoryCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.cache {
		if item.expired(now) {
			c.removeLocked(key)
		}
	}
}
