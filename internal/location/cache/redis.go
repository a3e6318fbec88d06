// Package cache provides the Redis cache-aside layer for the location
// leaderboard. The leaderboard is read on every home screen render but only
// changes when a claim commits, so a short TTL plus commit-time invalidation
// keeps it cheap and fresh enough.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wayfarer/internal/location"
)

const keyPrefix = "wayfarer:leaderboard:top:"

// RedisCache caches top-locations responses keyed by limit.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// GetTop returns the cached leaderboard for a limit, with a hit flag. Cache
// errors are returned so the service can degrade to the store.
func (c *RedisCache) GetTop(ctx context.Context, limit int) ([]location.Location, bool, error) {
	raw, err := c.client.Get(ctx, key(limit)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("leaderboard cache get: %w", err)
	}
	var locs []location.Location
	if err := json.Unmarshal(raw, &locs); err != nil {
		// A corrupt entry is treated as a miss; it will be overwritten.
		return nil, false, nil
	}
	return locs, true, nil
}

func (c *RedisCache) SetTop(ctx context.Context, limit int, locs []location.Location) error {
	raw, err := json.Marshal(locs)
	if err != nil {
		return fmt.Errorf("leaderboard cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, key(limit), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("leaderboard cache set: %w", err)
	}
	return nil
}

// Invalidate drops all cached leaderboard views. Called after a claim commit.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("leaderboard cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("leaderboard cache del: %w", err)
	}
	return nil
}

func key(limit int) string {
	return fmt.Sprintf("%s%d", keyPrefix, limit)
}
