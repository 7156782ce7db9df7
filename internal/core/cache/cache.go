// Package cache stores successful download envelopes keyed by request.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guiyumin/socialdl/internal/core/envelope"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache is implemented by RedisCache and Nop
type Cache interface {
	Get(ctx context.Context, key string) (*envelope.DownloadResponse, error)
	Set(ctx context.Context, key string, resp *envelope.DownloadResponse) error
}

// Key derives the cache key for a URL and quality on a platform route
func Key(platform, rawURL, quality string) string {
	hash := md5.Sum([]byte(platform + "|" + quality + "|" + rawURL))
	return fmt.Sprintf("socialdl:resp:%x", hash)
}

// RedisCache keeps envelopes in redis with a fixed TTL
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{redis: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*envelope.DownloadResponse, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var resp envelope.DownloadResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &resp, nil
}

// Set stores only success envelopes
func (c *RedisCache) Set(ctx context.Context, key string, resp *envelope.DownloadResponse) error {
	if resp == nil || !resp.Success {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Nop never hits
type Nop struct{}

func (Nop) Get(context.Context, string) (*envelope.DownloadResponse, error) {
	return nil, ErrCacheMiss
}

func (Nop) Set(context.Context, string, *envelope.DownloadResponse) error { return nil }
