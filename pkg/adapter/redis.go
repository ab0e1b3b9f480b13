package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
)

// Cache is a durable key-value cache with per-key expiry. Get returns
// (nil, nil) on a miss. It is used exclusively by the admission controller;
// callers there treat any error as a signal to fail open.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisClient struct {
	client *redis.Client
}

type RedisOption func(*redis.Options)

func WithRedisPassword(password string) RedisOption {
	return func(o *redis.Options) {
		o.Password = password
	}
}

func WithRedisDB(db int) RedisOption {
	return func(o *redis.Options) {
		o.DB = db
	}
}

func NewRedis(addr string, opts ...RedisOption) *RedisClient {
	options := &redis.Options{Addr: addr}
	for _, opt := range opts {
		opt(options)
	}

	return &RedisClient{client: redis.NewClient(options)}
}

func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get cache entry", goerr.V("key", key))
	}
	return value, nil
}

func (r *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return goerr.Wrap(err, "failed to set cache entry", goerr.V("key", key))
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
