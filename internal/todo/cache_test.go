// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/todos/internal/todo"
)

type memoryCache struct {
	mu         sync.Mutex
	generation int64
	entries    map[string][]byte
	down       error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (cache *memoryCache) Generation(context.Context) (int64, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.generation, cache.down
}

func (cache *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	raw, ok := cache.entries[key]
	if !ok {
		return nil, todo.ErrCacheMiss
	}
	return raw, nil
}

func (cache *memoryCache) Set(_ context.Context, key string, value []byte) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.entries[key] = value
	return nil
}

func (cache *memoryCache) Invalidate(context.Context) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.generation++
	return nil
}

// gatedCounter holds every Count until release is closed or its context ends.
type gatedCounter struct {
	todo.UseCases

	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedCounter() *gatedCounter {
	return &gatedCounter{started: make(chan struct{}), release: make(chan struct{})}
}

func (counter *gatedCounter) Count(ctx context.Context, _ todo.Filter) (int, error) {
	counter.once.Do(func() { close(counter.started) })
	select {
	case <-counter.release:
		return 3, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func newCachedService(t *testing.T) (*todo.CachedService, *memoryCache, *todo.Service) {
	t.Helper()
	service, _, _ := newService(t)
	cache := newMemoryCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return todo.NewCachedService(service, cache, logger), cache, service
}

/*
TestCachedService_ServesRepeatedListings reads the second listing from the cache.
*/
func TestCachedService_ServesRepeatedListings(t *testing.T) {
	cached, cache, service := newCachedService(t)
	seed(t, service, "Buy milk")

	first, err := cached.List(context.Background(), todo.Query{Page: 1})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.Len(t, cache.entries, 1)

	// Bypass the wrapper so the cache does not learn about the new row.
	seed(t, service, "Call mom")

	second, err := cached.List(context.Background(), todo.Query{Page: 1})
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
}

/*
TestCachedService_MutationInvalidates drops cached listings after each mutation.
*/
func TestCachedService_MutationInvalidates(t *testing.T) {
	cached, cache, _ := newCachedService(t)

	count, err := cached.Count(context.Background(), todo.Filter{})
	require.NoError(t, err)
	assert.Zero(t, count)

	result, err := cached.Create(context.Background(), todo.CreateInput{Title: "Buy milk"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, cache.generation)

	count, err = cached.Count(context.Background(), todo.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = cached.Delete(context.Background(), result.Todo.ID)
	require.NoError(t, err)

	count, err = cached.Count(context.Background(), todo.Filter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

/*
TestCachedService_FailedMutationKeepsCache leaves the generation untouched on errors.
*/
func TestCachedService_FailedMutationKeepsCache(t *testing.T) {
	cached, cache, _ := newCachedService(t)

	_, err := cached.Create(context.Background(), todo.CreateInput{Title: "abc"})
	require.Error(t, err)
	assert.Zero(t, cache.generation)
}

/*
TestCachedService_CacheDown falls through to the service.
*/
func TestCachedService_CacheDown(t *testing.T) {
	cached, cache, service := newCachedService(t)
	cache.down = errors.New("connection refused")
	seed(t, service, "Buy milk")

	page, err := cached.List(context.Background(), todo.Query{Page: 1})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Empty(t, cache.entries)
}

/*
TestCachedService_ValidationNotCached never stores failed loads.
*/
func TestCachedService_ValidationNotCached(t *testing.T) {
	cached, cache, _ := newCachedService(t)

	_, err := cached.List(context.Background(), todo.Query{Page: 0})
	require.Error(t, err)
	assert.Empty(t, cache.entries)
}

/*
TestCachedService_SharedLoadSurvivesCancellation keeps a waiting request alive
when the request that started the shared load goes away.
*/
func TestCachedService_SharedLoadSurvivesCancellation(t *testing.T) {
	counter := newGatedCounter()
	cached := todo.NewCachedService(counter, newMemoryCache(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := cached.Count(leaderCtx, todo.Filter{})
		leaderErr <- err
	}()
	<-counter.started

	type outcome struct {
		count int
		err   error
	}
	follower := make(chan outcome, 1)
	go func() {
		count, err := cached.Count(context.Background(), todo.Filter{})
		follower <- outcome{count, err}
	}()

	// Give the second request time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(counter.release)
	result := <-follower
	require.NoError(t, result.err)
	assert.Equal(t, 3, result.count)
}

/*
TestCachedService_DistinctQueriesDistinctEntries never serves one search's
results for another that only matches under case folding.
*/
func TestCachedService_DistinctQueriesDistinctEntries(t *testing.T) {
	cached, _, service := newCachedService(t)
	seed(t, service, "Straße walk", "Mississippi trip")

	tests := []struct {
		query string
		want  string
	}{
		{"ß", "Straße walk"},
		{"ss", "Mississippi trip"},
		{"STRASSE", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			page, err := cached.List(context.Background(), todo.Query{Query: tt.query, Page: 1})
			require.NoError(t, err)

			if tt.want == "" {
				assert.Empty(t, page.Items)
				return
			}
			require.Len(t, page.Items, 1)
			assert.Equal(t, tt.want, page.Items[0].Title)

			count, err := cached.Count(context.Background(), todo.Filter{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}
