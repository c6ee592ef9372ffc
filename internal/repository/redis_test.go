package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-notes-api/pkg/errors"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	client, _ := newRedis(t)
	repo := NewCacheRepository(client)
	ctx := context.Background()

	var out []string
	assert.ErrorIs(t, repo.Get(ctx, "notes:search:a", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "notes:search:a", []string{"x", "y"}, time.Minute))
	require.NoError(t, repo.Get(ctx, "notes:search:a", &out))
	assert.Equal(t, []string{"x", "y"}, out)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	client, srv := newRedis(t)
	repo := NewCacheRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "notes:search:a", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "notes:search:b", 2, time.Minute))
	require.NoError(t, repo.Set(ctx, "other:key", 3, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "notes:search:*"))
	assert.False(t, srv.Exists("notes:search:a"))
	assert.False(t, srv.Exists("notes:search:b"))
	assert.True(t, srv.Exists("other:key"))
}

func TestCacheRepositoryCounter(t *testing.T) {
	client, _ := newRedis(t)
	repo := NewCacheRepository(client)
	ctx := context.Background()

	n, err := repo.Counter(ctx, "notes:search-generation")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.Incr(ctx, "notes:search-generation")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.DeleteByPattern(ctx, "notes:search:*"))
	n, err = repo.Counter(ctx, "notes:search-generation")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil)
	var out int
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "*"))
	n, err := repo.Counter(context.Background(), "k")
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	client, srv := newRedis(t)
	repo := NewSessionRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Register(ctx, "s1", "u1", time.Hour))
	require.NoError(t, repo.Register(ctx, "s2", "u1", time.Hour))
	require.NoError(t, repo.Register(ctx, "s3", "u2", time.Hour))

	active, err := repo.Active(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, repo.Revoke(ctx, "s1"))
	active, err = repo.Active(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, repo.RevokeUser(ctx, "u1"))
	active, err = repo.Active(ctx, "s2")
	require.NoError(t, err)
	assert.False(t, active)

	active, err = repo.Active(ctx, "s3")
	require.NoError(t, err)
	assert.True(t, active)

	srv.FastForward(2 * time.Hour)
	active, err = repo.Active(ctx, "s3")
	require.NoError(t, err)
	assert.False(t, active)

	assert.NoError(t, repo.Revoke(ctx, "missing"))
}
