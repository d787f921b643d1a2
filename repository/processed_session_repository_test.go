package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (ProcessedSessionRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisProcessedSessionRepository(client, time.Hour), mr
}

func TestRedisRepo_ClaimOnce(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	ok, err := repo.Claim(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Claim(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists("checkout:webhook:session:cs_test_1"))
	assert.Equal(t, time.Hour, mr.TTL("checkout:webhook:session:cs_test_1"))

	ok, err = repo.Claim(ctx, "cs_test_2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRepo_ReleaseAndExpiry(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := repo.Claim(ctx, "cs_test_1")
	require.NoError(t, err)
	require.NoError(t, repo.Release(ctx, "cs_test_1"))

	ok, err := repo.Claim(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.True(t, ok, "released session can be claimed again")

	mr.FastForward(2 * time.Hour)
	ok, err = repo.Claim(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.True(t, ok, "expired claim")
}

func TestRedisRepo_Unavailable(t *testing.T) {
	repo, mr := setupTestRedis(t)
	mr.Close()

	_, err := repo.Claim(context.Background(), "cs_test_1")
	assert.Error(t, err)
}

func TestMemoryRepo(t *testing.T) {
	repo := NewMemoryProcessedSessionRepository(time.Minute).(*memoryProcessedSessionRepository)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := repo.Claim(ctx, "cs_1")
	assert.True(t, ok)
	ok, _ = repo.Claim(ctx, "cs_1")
	assert.False(t, ok)

	require.NoError(t, repo.Release(ctx, "cs_1"))
	ok, _ = repo.Claim(ctx, "cs_1")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = repo.Claim(ctx, "cs_1")
	assert.True(t, ok, "claim expired after ttl")
}
