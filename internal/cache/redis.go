package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pairwise/discovery-engine/internal/config"
)

// ErrMiss is returned by Get on an absent key so callers never have to
// import go-redis to distinguish a miss from a transport failure.
var ErrMiss = errors.New("cache miss")

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

// Get returns the raw value for key, or ErrMiss when the key is absent.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

// Publish sends a fire-and-forget message on a channel.
func (c *RedisCache) Publish(ctx context.Context, channel string, payload interface{}) error {
	return c.Client.Publish(ctx, channel, payload).Err()
}

// Cache key namespaces. Feeds are keyed solely by owner id — never by
// page or offset — so invalidation always collapses to a single key.

func KeyForFeed(userID uint64) string {
	return fmt.Sprintf("feed:%d", userID)
}

func KeyForMatchList(userID uint64) string {
	return fmt.Sprintf("matches:%d", userID)
}

func KeyForConversationList(userID uint64) string {
	return fmt.Sprintf("conversations:%d", userID)
}
