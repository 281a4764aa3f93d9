package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss reports a cache miss; callers fall through to the database.
var ErrMiss = errors.New("cache miss")

func NewRedis(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, DB: db})
}

// MetricsCache keeps per-store dashboard metrics hot between order events.
type MetricsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewMetricsCache(rdb *redis.Client, ttl time.Duration) *MetricsCache {
	return &MetricsCache{rdb: rdb, ttl: ttl}
}

func metricsKey(storeID string) string {
	return "dashboard:metrics:" + storeID
}

func (c *MetricsCache) Get(ctx context.Context, storeID string, out any) error {
	raw, err := c.rdb.Get(ctx, metricsKey(storeID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

func (c *MetricsCache) Set(ctx context.Context, storeID string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, metricsKey(storeID), raw, c.ttl).Err()
}

func (c *MetricsCache) Invalidate(ctx context.Context, storeID string) error {
	return c.rdb.Del(ctx, metricsKey(storeID)).Err()
}

// Locker implements first-delivery-wins dedupe with SetNX.
type Locker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLocker(rdb *redis.Client, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, ttl: ttl}
}

func (l *Locker) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return l.rdb.SetNX(ctx, "dedupe:"+scope+":"+key, "1", l.ttl).Result()
}

// Unlock drops a claimed key so the next delivery is treated as fresh.
func (l *Locker) Unlock(ctx context.Context, scope, key string) error {
	return l.rdb.Del(ctx, "dedupe:"+scope+":"+key).Err()
}
