package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"walleet/internal/core"
)

// RedisKV stores each key as a JSON string under a common prefix.
type RedisKV struct {
	client *redis.Client
	prefix string
}

var _ KV = (*RedisKV)(nil)

func NewRedisKV(ctx context.Context, addr, prefix string) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisKV{client: client, prefix: prefix}, nil
}

// NewRedisKVWithClient wraps an existing client.
func NewRedisKVWithClient(client *redis.Client, prefix string) *RedisKV {
	return &RedisKV{client: client, prefix: prefix}
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisKV) key(k string) string {
	return r.prefix + k
}

func (r *RedisKV) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, &core.PersistenceError{Op: "get", Key: key, Err: err}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, &core.PersistenceError{Op: "decode", Key: key, Err: err}
	}
	return true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &core.PersistenceError{Op: "encode", Key: key, Err: err}
	}
	if err := r.client.Set(ctx, r.key(key), raw, 0).Err(); err != nil {
		return &core.PersistenceError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return &core.PersistenceError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
