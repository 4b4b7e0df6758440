// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/todos/internal/platform/constants"
)

// RedisCache implements [Cache] with a generation counter and expiring entries.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis-backed listing cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Generation returns the current generation, 0 when none was recorded yet.
func (cache *RedisCache) Generation(context context.Context) (int64, error) {
	generation, err := cache.client.Get(context, constants.RedisKeyTodoGeneration).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis_todo_generation_failed: %w", err)
	}
	return generation, nil
}

func (cache *RedisCache) Get(context context.Context, key string) ([]byte, error) {
	raw, err := cache.client.Get(context, constants.RedisPrefixTodoCache+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis_todo_cache_get_failed: %w", err)
	}
	return raw, nil
}

func (cache *RedisCache) Set(context context.Context, key string, value []byte) error {
	if err := cache.client.Set(context, constants.RedisPrefixTodoCache+key, value, cache.ttl).Err(); err != nil {
		return fmt.Errorf("redis_todo_cache_set_failed: %w", err)
	}
	return nil
}

// Invalidate bumps the generation. Old entries are left to expire.
func (cache *RedisCache) Invalidate(context context.Context) error {
	if err := cache.client.Incr(context, constants.RedisKeyTodoGeneration).Err(); err != nil {
		return fmt.Errorf("redis_todo_cache_invalidate_failed: %w", err)
	}
	return nil
}
