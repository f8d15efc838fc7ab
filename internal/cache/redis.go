package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clove/commerce-core/internal/store"
)

// Redis implements the cache contract on a Redis instance. Each kind carries a
// version counter folded into every key, so InvalidateKind is a single INCR
// and superseded entries fall out via TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) versionedKey(ctx context.Context, key string) (string, error) {
	kind, _, _ := strings.Cut(key, ":")
	version, err := c.client.Get(ctx, "cachever:"+kind).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("cc:v%d:%s", version, key), nil
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	vk, err := c.versionedKey(ctx, key)
	if err != nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, vk).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Redis) Set(ctx context.Context, key string, value []byte) {
	vk, err := c.versionedKey(ctx, key)
	if err != nil {
		return
	}
	c.client.Set(ctx, vk, value, c.ttl)
}

func (c *Redis) InvalidateKind(ctx context.Context, kind store.Kind) {
	c.client.Incr(ctx, "cachever:"+string(kind))
}
