package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preparatorio-aauma-api/internal/repository"
)

func newRedisCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheService(repository.NewCacheRepository(client, nil), nil, time.Minute, nil, true), mr
}

func TestCacheServiceRoundTrip(t *testing.T) {
	cache, mr := newRedisCache(t)
	ctx := context.Background()

	var out map[string]int
	hit, err := cache.Get(ctx, summaryCacheKey, &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, summaryCacheKey, map[string]int{"students": 4}, 0))
	assert.Equal(t, time.Minute, mr.TTL("aauma:"+summaryCacheKey))

	hit, err = cache.Get(ctx, summaryCacheKey, &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 4, out["students"])
}

func TestCacheServiceDropsCorruptEntries(t *testing.T) {
	cache, mr := newRedisCache(t)
	require.NoError(t, mr.Set("aauma:"+financeCacheKey, "[1,2"))

	var out map[string]int
	hit, err := cache.Get(context.Background(), financeCacheKey, &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists("aauma:"+financeCacheKey))
}

func TestCacheServiceInvalidatePatterns(t *testing.T) {
	cache, mr := newRedisCache(t)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, summaryCacheKey, 1, 0))
	require.NoError(t, cache.Set(ctx, courseCacheKey, 2, 0))

	require.NoError(t, cache.Invalidate(ctx, rollupCachePattern, courseCacheKey))
	assert.Empty(t, mr.Keys())
}

func TestCacheServiceDisabled(t *testing.T) {
	ctx := context.Background()
	for _, cache := range []*CacheService{
		nil,
		NewCacheService(nil, nil, 0, nil, true),
		NewCacheService(failingCacheRepo{}, nil, 0, nil, false),
	} {
		var out int
		hit, err := cache.Get(ctx, "k", &out)
		assert.NoError(t, err)
		assert.False(t, hit)
		assert.NoError(t, cache.Set(ctx, "k", 1, 0))
		assert.NoError(t, cache.Invalidate(ctx, "*"))
	}
}

type failingCacheRepo struct{}

var errRedisDown = errors.New("redis down")

func (failingCacheRepo) Get(context.Context, string, interface{}) error { return errRedisDown }
func (failingCacheRepo) Set(context.Context, string, interface{}, time.Duration) error {
	return errRedisDown
}
func (failingCacheRepo) Delete(context.Context, ...string) error { return errRedisDown }
func (failingCacheRepo) DeleteByPattern(context.Context, string) error { return errRedisDown }

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	cache := NewCacheService(failingCacheRepo{}, nil, 0, nil, true)
	ctx := context.Background()

	var out int
	hit, err := cache.Get(ctx, "k", &out)
	assert.False(t, hit)
	assert.ErrorIs(t, err, errRedisDown)
	assert.ErrorIs(t, cache.Set(ctx, "k", 1, 0), errRedisDown)
	assert.ErrorIs(t, cache.Invalidate(ctx, "a:*", "b:*"), errRedisDown)
}
