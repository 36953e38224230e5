package cachesvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/elimu/core"
)

type redisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ core.Cache = (*redisCache)(nil)

// NewRedisCache returns a core.Cache backed by Redis. Keys are namespaced with the app name.
func NewRedisCache(client redis.UniversalClient, conf *core.Config) *redisCache {
	return &redisCache{
		client: client,
		prefix: conf.AppName + ":",
		ttl:    conf.Cache.TTL,
	}
}

// NewRedisClient opens a client to the configured Redis server and checks it answers.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Cache.RedisAddr,
		Password: conf.Cache.RedisPassword,
		DB:       conf.Cache.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "redis GET")
	}
	return val, true, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string) error {
	return errors.Wrap(c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(), "redis SET")
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.prefix + key
	}
	return errors.Wrap(c.client.Del(ctx, prefixed...).Err(), "redis DEL")
}
