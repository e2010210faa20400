package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, zap.NewNop()), mr
}

func TestCacheRepositorySetGetUsesNamespace(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "dashboard:summary", map[string]int{"total": 3}, time.Minute))
	assert.True(t, mr.Exists("aauma:dashboard:summary"))

	var out map[string]int
	require.NoError(t, repo.Get(ctx, "dashboard:summary", &out))
	assert.Equal(t, 3, out["total"])

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "dashboard:summary", &out), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryCorruptEntry(t *testing.T) {
	repo, mr := newCacheRepo(t)
	require.NoError(t, mr.Set("aauma:dashboard:finance", "{not json"))

	var out map[string]int
	err := repo.Get(context.Background(), "dashboard:finance", &out)
	assert.ErrorIs(t, err, ErrCorruptEntry)

	require.NoError(t, repo.Delete(context.Background(), "dashboard:finance"))
	assert.False(t, mr.Exists("aauma:dashboard:finance"))
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("aauma:dashboard:page:%d", i), "1"))
	}
	require.NoError(t, repo.Set(ctx, "catalog:courses", 3, time.Minute))
	require.NoError(t, mr.Set("other:dashboard:summary", "keep"))

	require.NoError(t, repo.DeleteByPattern(ctx, "dashboard:*"))

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "aauma:dashboard:")
	}
	assert.True(t, mr.Exists("aauma:catalog:courses"))
	assert.True(t, mr.Exists("other:dashboard:summary"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var out int
	assert.ErrorIs(t, repo.Get(ctx, "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", 1, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "k"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "*"))
	assert.Error(t, repo.Ping(ctx))
}

func TestCacheRepositoryPing(t *testing.T) {
	repo, mr := newCacheRepo(t)
	require.NoError(t, repo.Ping(context.Background()))

	mr.Close()
	assert.Error(t, repo.Ping(context.Background()))
}
