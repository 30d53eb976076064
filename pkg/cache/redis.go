package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"query-api/pkg/logger"
)

const redisKeyPrefix = "query-api:response:"

// Redis shares cached responses between replicas. Redis failures are logged
// and treated as misses so the request still reaches the database.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Get(ctx context.Context, key string) (*Entry, bool) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Redis cache read failed")
		}
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return nil, false
	}
	return &e, true
}

func (s *Redis) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) {
	stored := *entry
	stored.ExpiresAt = time.Now().Add(ttl)

	raw, err := json.Marshal(&stored)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Failed to encode cache entry")
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Redis cache write failed")
	}
}
