package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/phambaophuc/webp-converter/internal/config"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is a process local LRU used when Redis is unavailable.
type MemoryCache struct {
	entries       *lru.Cache
	cacheDuration time.Duration
	now           func() time.Time
}

func NewMemoryCache(size int, cacheDuration time.Duration) (*MemoryCache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &MemoryCache{
		entries:       entries,
		cacheDuration: cacheDuration,
		now:           time.Now,
	}, nil
}

func (c *MemoryCache) Get(ctx context.Context, cacheKey string) ([]byte, error) {
	value, ok := c.entries.Get(cacheKey)
	if !ok {
		return nil, nil
	}

	entry := value.(memoryEntry)
	if c.now().After(entry.expiresAt) {
		c.entries.Remove(cacheKey)
		return nil, nil
	}
	return entry.data, nil
}

func (c *MemoryCache) Set(ctx context.Context, cacheKey string, data []byte) error {
	c.entries.Add(cacheKey, memoryEntry{data: data, expiresAt: c.now().Add(c.cacheDuration)})
	return nil
}

func (c *MemoryCache) InvalidateUser(ctx context.Context, userID string) error {
	prefix := strings.TrimSuffix(userCachePattern(userID), "*")
	for _, key := range c.entries.Keys() {
		if k, ok := key.(string); ok && strings.HasPrefix(k, prefix) {
			c.entries.Remove(k)
		}
	}
	return nil
}

func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

func (c *MemoryCache) GetCacheStats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{
		"backend": config.CacheMemory,
		"entries": c.entries.Len(),
	}, nil
}
