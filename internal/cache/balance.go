package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/skozubek/startsnap/internal/algorand"
)

// Invalidator drops cached balances for the given wallet addresses.
type Invalidator interface {
	Invalidate(ctx context.Context, addresses ...string) error
}

// BalanceCache stores account snapshots fetched from algod.
type BalanceCache interface {
	Invalidator
	Get(ctx context.Context, address string) (algorand.Account, bool, error)
	Set(ctx context.Context, acct algorand.Account) error
}

// NoopCache never hits.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (algorand.Account, bool, error) {
	return algorand.Account{}, false, nil
}
func (NoopCache) Set(context.Context, algorand.Account) error { return nil }
func (NoopCache) Invalidate(context.Context, ...string) error { return nil }

const keyPrefix = "startsnap:balance:"

// RedisCache keeps balances in Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis instance at url (redis://host:port/db).
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

type cachedAccount struct {
	Amount     uint64            `json:"amount"`
	MinBalance uint64            `json:"min_balance"`
	Assets     map[uint64]uint64 `json:"assets"`
}

func (c *RedisCache) Get(ctx context.Context, address string) (algorand.Account, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+address).Bytes()
	if errors.Is(err, redis.Nil) {
		return algorand.Account{}, false, nil
	}
	if err != nil {
		return algorand.Account{}, false, fmt.Errorf("get balance %s: %w", address, err)
	}
	var entry cachedAccount
	if err := json.Unmarshal(raw, &entry); err != nil {
		return algorand.Account{}, false, fmt.Errorf("decode balance %s: %w", address, err)
	}
	return algorand.Account{
		Address:    address,
		Amount:     entry.Amount,
		MinBalance: entry.MinBalance,
		Assets:     entry.Assets,
	}, true, nil
}

func (c *RedisCache) Set(ctx context.Context, acct algorand.Account) error {
	raw, err := json.Marshal(cachedAccount{Amount: acct.Amount, MinBalance: acct.MinBalance, Assets: acct.Assets})
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, keyPrefix+acct.Address, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set balance %s: %w", acct.Address, err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, addresses ...string) error {
	if len(addresses) == 0 {
		return nil
	}
	keys := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if addr != "" {
			keys = append(keys, keyPrefix+addr)
		}
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate balances: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error { return c.client.Close() }
