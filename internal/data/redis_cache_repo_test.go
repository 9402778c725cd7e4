package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmbridge/backend/internal/testutil"
)

func TestRedisCacheRepo_Set_Get_Delete(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := "cache:audit:list"
		value := []byte(`{"rows":[]}`)

		err := repo.Set(ctx, key, value, 5*time.Minute)
		require.NoError(t, err)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		ttl := mr.TTL(key)
		assert.True(t, ttl > 0 && ttl <= 5*time.Minute)
	})

	t.Run("get non-existent key", func(t *testing.T) {
		result, err := repo.Get(ctx, "cache:none")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("set without ttl does not expire", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "cache:pin", []byte("v"), 0))
		assert.Equal(t, time.Duration(0), mr.TTL("cache:pin"))
	})

	t.Run("delete existing key", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "cache:tmp", []byte("v"), time.Minute))

		deleted, err := repo.Delete(ctx, "cache:tmp")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, "cache:tmp")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		require.Error(t, repo.Set(ctx, "", []byte("v"), 0))
		_, err := repo.Get(ctx, "")
		require.Error(t, err)
	})
}

func TestRedisCacheRepo_DeleteByPattern(t *testing.T) {
	_, client := testutil.SetupTestRedis(t)

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	for _, key := range []string{
		"cache:audit:list:q:aa",
		"cache:audit:list:q:bb",
		"cache:audit:stats",
		"cache:settings:list",
	} {
		require.NoError(t, repo.Set(ctx, key, []byte("v"), time.Minute))
	}

	removed, err := repo.DeleteByPattern(ctx, "cache:audit:*")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	remaining, err := repo.Exists(ctx, "cache:settings:list")
	require.NoError(t, err)
	assert.True(t, remaining, "keys outside the pattern must survive")

	gone, err := repo.Exists(ctx, "cache:audit:stats")
	require.NoError(t, err)
	assert.False(t, gone)
}

func TestRedisCacheRepo_Health(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)

	repo := NewRedisCacheRepo(client)
	require.NoError(t, repo.Health(context.Background()))

	mr.Close()
	assert.Error(t, repo.Health(context.Background()))
}
