// Package cache keeps rendered menu responses in Redis. Reads fail open: a
// Redis error is logged and treated as a miss so the database still answers.
package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	MenuListKey    = "menu:all"
	menuItemPrefix = "menu:item:"
)

// MenuItemKey is the key of a single rendered menu item.
func MenuItemKey(id string) string {
	return menuItemPrefix + id
}

// RedisMenuCache stores JSON bodies with a fixed TTL.
type RedisMenuCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisMenuCache(client *redis.Client, ttl time.Duration) *RedisMenuCache {
	return &RedisMenuCache{client: client, ttl: ttl}
}

func (c *RedisMenuCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("WARN: cache get %s: %v", key, err)
		}
		return nil, false
	}
	return b, true
}

func (c *RedisMenuCache) Set(ctx context.Context, key string, body []byte) {
	if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		log.Printf("WARN: cache set %s: %v", key, err)
	}
}

// Invalidate drops keys. A failure here leaves stale data for at most one TTL.
func (c *RedisMenuCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("ERROR: cache invalidate %v: %v", keys, err)
	}
}

// Nop is used when no Redis URL is configured.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Set(context.Context, string, []byte) {}
func (Nop) Invalidate(context.Context, ...string) {}

// Connect parses url and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
