// Package cache persists the endpoint-discovery result of the connection
// protocol across process restarts, per Design Notes "endpoint discovery is
// an expensive one-shot".
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"tradecopier/internal/adapter"
)

const keyPrefix = "tradecopier:discovery:"

// RedisDiscoveryCache implements adapter.DiscoveryCache on top of
// go-redis/v9, the same client alanyoungcy-polymarketbot and volaticloud
// use for session/result caching.
type RedisDiscoveryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDiscoveryCache(redisURL string, ttl time.Duration) (*RedisDiscoveryCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	client := redis.NewClient(opts)
	return &RedisDiscoveryCache{client: client, ttl: ttl}, nil
}

func (c *RedisDiscoveryCache) Get(ctx context.Context, accountID string) (*adapter.ResolvedEndpoint, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+accountID).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("account", accountID).Msg("discovery cache read failed")
		}
		return nil, false
	}
	var resolved adapter.ResolvedEndpoint
	if err := json.Unmarshal(raw, &resolved); err != nil {
		return nil, false
	}
	return &resolved, true
}

func (c *RedisDiscoveryCache) Set(ctx context.Context, accountID string, resolved adapter.ResolvedEndpoint) error {
	raw, err := json.Marshal(resolved)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+accountID, raw, c.ttl).Err()
}

func (c *RedisDiscoveryCache) Close() error {
	return c.client.Close()
}
