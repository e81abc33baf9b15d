package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"damara/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs.
const (
	PostDetailTTL = 5 * time.Minute
)

// PostKey is the cache key of a post detail.
func PostKey(postID string) string {
	return fmt.Sprintf("post:%s", postID)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		observability.CacheOperations.WithLabelValues("get", "miss").Inc()
		return false, nil
	}
	if err != nil {
		observability.CacheOperations.WithLabelValues("get", "error").Inc()
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	observability.CacheOperations.WithLabelValues("get", "hit").Inc()
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	err = client.Set(ctx, key, b, ttl).Err()
	observability.CacheOperations.WithLabelValues("set", observability.Result(err)).Inc()
	return err
}

// Aside tries Redis first, on miss it calls fetch (which must populate dest),
// then stores the result with ttl. Cache failures never fail the read.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		observability.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		observability.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

// Invalidate removes keys, logging failures.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	err := client.Del(ctx, keys...).Err()
	observability.CacheOperations.WithLabelValues("del", observability.Result(err)).Inc()
	if err != nil {
		observability.Logger.WarnContext(ctx, "cache invalidate failed", "keys", keys, "error", err)
	}
}
