// internal/cache/cache.go
package cache

import (
	"context"
	"errors"
	"time"

	"wallet-service/config"

	"github.com/redis/go-redis/v9"
)

// Cache namespaces every key as "namespace:key" on a single or cluster
// redis deployment.
type Cache struct {
	client redis.UniversalClient
}

func NewCache(cfg config.RedisConfig) (*Cache, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: no addresses configured")
	}

	var rdb redis.UniversalClient
	if cfg.UseCluster && len(cfg.Addrs) > 1 {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Addrs[0],
			Password: cfg.Password,
		})
	}
	return &Cache{client: rdb}, nil
}

// FromClient wraps an existing client.
func FromClient(rdb redis.UniversalClient) *Cache {
	return &Cache{client: rdb}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func key(namespace, k string) string {
	return namespace + ":" + k
}

func (c *Cache) Set(ctx context.Context, namespace, k string, value any, ttl time.Duration) error {
	return c.client.Set(ctx, key(namespace, k), value, ttl).Err()
}

// Get returns redis.Nil when the key is absent.
func (c *Cache) Get(ctx context.Context, namespace, k string) (string, error) {
	return c.client.Get(ctx, key(namespace, k)).Result()
}

func (c *Cache) Delete(ctx context.Context, namespace, k string) error {
	return c.client.Del(ctx, key(namespace, k)).Err()
}

func (c *Cache) TTL(ctx context.Context, namespace, k string) (time.Duration, error) {
	return c.client.TTL(ctx, key(namespace, k)).Result()
}

// Incr bumps a fixed-window counter. The window starts with the first
// increment; later increments do not extend it.
func (c *Cache) Incr(ctx context.Context, namespace, k string, window time.Duration) (int64, error) {
	full := key(namespace, k)

	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, full)
		pipe.ExpireNX(ctx, full, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
