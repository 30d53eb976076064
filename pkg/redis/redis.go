package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"query-api/configs"
	"query-api/pkg/logger"
)

type Redisdb struct {
	client *redis.Client
}

func NewRedis(conf *configs.Config) (*Redisdb, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", conf.Redis.Addr, err)
	}

	logger.Info().Str("addr", conf.Redis.Addr).Int("db", conf.Redis.DB).Msg("Connected to Redis")
	return &Redisdb{client: rdb}, nil
}

func (r *Redisdb) Client() *redis.Client {
	return r.client
}

func (r *Redisdb) Close() error {
	return r.client.Close()
}
