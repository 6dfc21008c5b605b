package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"offlinesync/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries as plain string keys under a common prefix so
// several applications can share one Redis database.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if r.client == nil {
		return "", false, ErrClientNil
	}
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	return val, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if r.client == nil {
		return ErrClientNil
	}
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	if r.client == nil {
		return ErrClientNil
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from redis: %w", key, err)
	}
	return nil
}

func (r *RedisStore) MultiRemove(ctx context.Context, keys []string) error {
	if r.client == nil {
		return ErrClientNil
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete %d keys from redis: %w", len(keys), err)
	}
	return nil
}

// GetAllKeys scans the prefix and returns keys with the prefix stripped.
func (r *RedisStore) GetAllKeys(ctx context.Context) ([]string, error) {
	if r.client == nil {
		return nil, ErrClientNil
	}
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan redis keys: %w", err)
	}
	return keys, nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
