package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/insominiac/dancelink-staging-sub000/internal/app"
	"github.com/insominiac/dancelink-staging-sub000/internal/domain"
)

const keyPrefix = "availability:"

// AvailabilitySource is the uncached read path, normally the availability
// service.
type AvailabilitySource interface {
	SpotsLeft(ctx context.Context, key domain.ItemKey) (app.Availability, error)
}

// AvailabilityCache is a cache-aside wrapper for spots-left reads. Cache
// failures degrade to the source; admission control never reads through
// here, so staleness within the TTL only affects listing pages.
type AvailabilityCache struct {
	src AvailabilitySource
	rdb *redis.Client
	ttl time.Duration
}

func New(src AvailabilitySource, rdb *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{
		src: src,
		rdb: rdb,
		ttl: ttl,
	}
}

func cacheKey(key domain.ItemKey) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, key.Type, key.ID)
}

func (c *AvailabilityCache) SpotsLeft(ctx context.Context, key domain.ItemKey) (app.Availability, error) {
	cached, err := c.rdb.Get(ctx, cacheKey(key)).Result()
	if err == nil && cached != "" {
		var avail app.Availability
		if err := json.Unmarshal([]byte(cached), &avail); err == nil {
			return avail, nil
		}
	}

	avail, err := c.src.SpotsLeft(ctx, key)
	if err != nil {
		return app.Availability{}, err
	}

	if data, err := json.Marshal(avail); err == nil {
		_ = c.rdb.Set(ctx, cacheKey(key), data, c.ttl).Err()
	}
	return avail, nil
}

// Invalidate drops the cached entry for an item. Best-effort: on error the
// entry ages out via its TTL.
func (c *AvailabilityCache) Invalidate(ctx context.Context, key domain.ItemKey) {
	_ = c.rdb.Del(ctx, cacheKey(key)).Err()
}
