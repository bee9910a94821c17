// internal/cache/balance.go
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const balanceNamespace = "wallet:balance"

// BalanceCache stores wallet balances keyed by user id. Implementations
// must be safe to call when the backing store is down; callers treat every
// error as a miss.
type BalanceCache interface {
	Get(ctx context.Context, userID string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, userID string, balance decimal.Decimal) error
	Invalidate(ctx context.Context, userID string) error
}

type RedisBalanceCache struct {
	cache *Cache
	ttl   time.Duration
}

func NewBalanceCache(c *Cache, ttl time.Duration) *RedisBalanceCache {
	return &RedisBalanceCache{cache: c, ttl: ttl}
}

func (b *RedisBalanceCache) Get(ctx context.Context, userID string) (decimal.Decimal, bool, error) {
	raw, err := b.cache.Get(ctx, balanceNamespace, userID)
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		// corrupt entry, drop it
		_ = b.cache.Delete(ctx, balanceNamespace, userID)
		return decimal.Zero, false, nil
	}
	return d, true, nil
}

func (b *RedisBalanceCache) Set(ctx context.Context, userID string, balance decimal.Decimal) error {
	return b.cache.Set(ctx, balanceNamespace, userID, balance.String(), b.ttl)
}

func (b *RedisBalanceCache) Invalidate(ctx context.Context, userID string) error {
	return b.cache.Delete(ctx, balanceNamespace, userID)
}

// NoopBalanceCache never hits.
type NoopBalanceCache struct{}

func (NoopBalanceCache) Get(context.Context, string) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}
func (NoopBalanceCache) Set(context.Context, string, decimal.Decimal) error { return nil }
func (NoopBalanceCache) Invalidate(context.Context, string) error           { return nil }
