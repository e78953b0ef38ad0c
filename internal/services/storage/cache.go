package storage

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/phambaophuc/webp-converter/internal/config"
	"github.com/phambaophuc/webp-converter/internal/models"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "conversion_cache"

// GenerateCacheKey fingerprints a conversion request: the user, the options
// and the bytes of every file in request order.
func GenerateCacheKey(userID string, options models.ConversionOptions, files []models.UploadedFile) string {
	hash := sha256.New()
	for _, file := range files {
		hash.Write(file.Data)
	}
	return fmt.Sprintf("%s:%s:%d:%s:%x", cacheKeyPrefix, userID, options.Quality, options.OutputFormat, hash.Sum(nil))
}

func userCachePattern(userID string) string {
	return fmt.Sprintf("%s:%s:*", cacheKeyPrefix, userID)
}

// RedisCache keeps conversion results in Redis.
type RedisCache struct {
	redisClient   *redis.Client
	cacheDuration time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisCache(client *redis.Client, cacheDuration time.Duration) *RedisCache {
	return &RedisCache{
		redisClient:   client,
		cacheDuration: cacheDuration,
	}
}

// Get returns nil without an error on a cache miss.
func (c *RedisCache) Get(ctx context.Context, cacheKey string) ([]byte, error) {
	data, err := c.redisClient.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	return data, nil
}

func (c *RedisCache) Set(ctx context.Context, cacheKey string, data []byte) error {
	return c.redisClient.Set(ctx, cacheKey, data, c.cacheDuration).Err()
}

// InvalidateUser drops every cached result of a user.
func (c *RedisCache) InvalidateUser(ctx context.Context, userID string) error {
	iter := c.redisClient.Scan(ctx, 0, userCachePattern(userID), 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan error: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redisClient.Del(ctx, keys...).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.redisClient.Ping(ctx).Err()
}

func (c *RedisCache) GetCacheStats(ctx context.Context) (map[string]interface{}, error) {
	dbSize, err := c.redisClient.DBSize(ctx).Result()
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"backend": config.CacheRedis,
		"db_keys": dbSize,
	}, nil
}
