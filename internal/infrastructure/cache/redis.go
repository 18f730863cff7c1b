package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/johnquangdev/holo-archive/errors"
	"github.com/johnquangdev/holo-archive/pkg/config"
)

// RedisStore is a Redis-backed Cache for deployments where search responses
// should be shared between processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, apperrors.ErrCacheFailed("connect", err)
	}

	return &RedisStore{client: client}, nil
}

func (rs *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := rs.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return apperrors.ErrCacheFailed("set", err)
	}
	return nil
}

func (rs *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := rs.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.ErrCacheFailed("get", err)
	}
	return value, true, nil
}

func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, key).Err(); err != nil {
		return apperrors.ErrCacheFailed("delete", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
