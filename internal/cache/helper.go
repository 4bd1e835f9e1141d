package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"bienestar/internal/observability"

	"github.com/redis/go-redis/v9"
)

// TTLs for the two cached read paths. The blog corpus is small and
// mutations invalidate eagerly, so these are generous.
const (
	PostTTL = 5 * time.Minute
	ListTTL = time.Minute
)

// PostKey returns the cache key for a single post document.
func PostKey(id string) string {
	return "post:" + id
}

// PublishedListKey is the cache key for the published-posts list.
const PublishedListKey = "posts:published"

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if Client == nil {
		return false, nil
	}
	s, err := Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if Client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first, on miss it calls fetch (which must write into
// dest), then stores the result with ttl. A failing cache read counts as a
// miss; the store stays the source of truth.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err != nil {
		log.Printf("cache read for %q failed, treating as miss: %v", key, err)
		found = false
	}
	if found {
		observability.CacheRequests.WithLabelValues("hit").Inc()
		return nil
	}
	observability.CacheRequests.WithLabelValues("miss").Inc()

	if err := fetch(); err != nil {
		return err
	}

	// Store into cache (best-effort)
	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate removes the given keys. Best-effort: cache failures never
// fail the mutation that triggered them.
func Invalidate(ctx context.Context, keys ...string) {
	if Client == nil || len(keys) == 0 {
		return
	}
	_ = Client.Del(ctx, keys...).Err()
}

// InvalidatePost drops both the single-post entry and the published list.
func InvalidatePost(ctx context.Context, id string) {
	Invalidate(ctx, PostKey(id), PublishedListKey)
}
