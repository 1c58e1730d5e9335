package verify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"gias.org/internal/obs"
)

const cacheKeyPrefix = "verify:view:"

// DefaultCacheTTL bounds how stale a cached view can be. Revocations become
// visible to verifiers after at most this long.
const DefaultCacheTTL = 30 * time.Second

var _ Cache = (*RedisCache)(nil)

// RedisCache caches public views in Redis. The client lifecycle is managed by
// the caller. Cache errors are logged and treated as misses; verification
// never fails because Redis is down.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, id string) (*PublicView, bool) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			obs.LogRequest(map[string]any{
				"level": "warn", "msg": "verify cache get failed",
				"attestation_id": id, "error": err.Error(),
			})
		}
		return nil, false
	}
	var view PublicView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, false
	}
	return &view, true
}

func (c *RedisCache) Set(ctx context.Context, id string, view *PublicView) {
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+id, raw, c.ttl).Err(); err != nil {
		obs.LogRequest(map[string]any{
			"level": "warn", "msg": "verify cache set failed",
			"attestation_id": id, "error": err.Error(),
		})
	}
}
