// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taibuivan/todos/pkg/textutil"
)

// LoadTimeout bounds a shared load, which outlives any single caller.
const LoadTimeout = 10 * time.Second

// ErrCacheMiss is returned by a [Cache] when the key is absent or expired.
var ErrCacheMiss = errors.New("todo: cache miss")

// Cache stores serialized listings under a generation number.
//
// Invalidate moves every reader to a new generation, so stale entries are
// never read again and simply expire.
type Cache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context) error
}

// CachedService serves listings and counts from a [Cache] and invalidates it
// after every successful mutation.
//
// Cache failures are logged and never fail a request.
type CachedService struct {
	next   UseCases
	cache  Cache
	group  singleflight.Group
	logger *slog.Logger
}

// NewCachedService wraps next with cache.
func NewCachedService(next UseCases, cache Cache, logger *slog.Logger) *CachedService {
	return &CachedService{next: next, cache: cache, logger: logger}
}

func (service *CachedService) List(ctx context.Context, query Query) (*Page, error) {
	return cached(service, ctx, listKey(query), func(loadCtx context.Context) (*Page, error) {
		return service.next.List(loadCtx, query)
	})
}

func (service *CachedService) Count(ctx context.Context, filter Filter) (int, error) {
	total, err := cached(service, ctx, countKey(filter), func(loadCtx context.Context) (*int, error) {
		count, err := service.next.Count(loadCtx, filter)
		return &count, err
	})
	if err != nil {
		return 0, err
	}
	return *total, nil
}

func (service *CachedService) Get(context context.Context, id string) (*Todo, error) {
	return service.next.Get(context, id)
}

func (service *CachedService) Create(context context.Context, input CreateInput) (*Result, error) {
	result, err := service.next.Create(context, input)
	if err != nil {
		return nil, err
	}
	service.invalidate(context)
	return result, nil
}

func (service *CachedService) Update(context context.Context, id string, input UpdateInput) (*Result, error) {
	result, err := service.next.Update(context, id, input)
	if err != nil {
		return nil, err
	}
	service.invalidate(context)
	return result, nil
}

func (service *CachedService) Delete(context context.Context, id string) (*Result, error) {
	result, err := service.next.Delete(context, id)
	if err != nil {
		return nil, err
	}
	service.invalidate(context)
	return result, nil
}

func (service *CachedService) invalidate(context context.Context) {
	if err := service.cache.Invalidate(context); err != nil {
		service.logger.Warn("todo_cache_invalidate_failed", slog.Any("error", err))
	}
}

/*
cached is the read-through path shared by List and Count.

Concurrent misses on the same key share a single load. The load runs detached
from the caller that started it and is bounded by [LoadTimeout]; each caller
stops waiting when its own context ends. Values are stored only when the load
succeeds.
*/
func cached[T any](service *CachedService, ctx context.Context, key string, load func(context.Context) (*T, error)) (*T, error) {
	generation, err := service.cache.Generation(ctx)
	if err != nil {
		service.logger.Warn("todo_cache_unavailable", slog.Any("error", err))
		return load(ctx)
	}
	key = strconv.FormatInt(generation, 10) + ":" + key

	if raw, err := service.cache.Get(ctx, key); err == nil {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			return &value, nil
		}
	} else if !errors.Is(err, ErrCacheMiss) {
		service.logger.Warn("todo_cache_read_failed", slog.String("key", key), slog.Any("error", err))
	}

	results := service.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()

		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(value); err == nil {
			if err := service.cache.Set(loadCtx, key, raw); err != nil {
				service.logger.Warn("todo_cache_write_failed", slog.String("key", key), slog.Any("error", err))
			}
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*T), nil
	}
}

// listKey identifies a listing. The substring is keyed exactly as the store
// receives it, so only identical searches share an entry.
func listKey(query Query) string {
	return fmt.Sprintf("list:%s:%s:%s:%d:%s",
		query.Status, query.OrderBy, query.Direction, query.Page, textutil.NormalizeTitle(query.Query))
}

func countKey(filter Filter) string {
	completed := "any"
	if filter.Completed != nil {
		completed = strconv.FormatBool(*filter.Completed)
	}
	return fmt.Sprintf("count:%s:%s", completed, textutil.NormalizeTitle(filter.Query))
}
