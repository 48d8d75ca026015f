package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rapidopay/card-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Unique connection name per test to dodge the global adapter cache.
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func TestIdempotencyService_FirstRequest(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	svc := NewIdempotencyService(adapter, DefaultIdempotencyConfig())
	ctx := context.Background()

	res, err := svc.Begin(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "req-1", res.RequestID)
}

func TestIdempotencyService_ConcurrentRequestRejected(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	svc := NewIdempotencyService(adapter, DefaultIdempotencyConfig())
	ctx := context.Background()

	_, err := svc.Begin(ctx, "req-1")
	require.NoError(t, err)

	_, err = svc.Begin(ctx, "req-1")
	assert.ErrorIs(t, err, ErrLockAcquireFailed)
}

func TestIdempotencyService_CompletedRequestIsDuplicate(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	svc := NewIdempotencyService(adapter, DefaultIdempotencyConfig())
	ctx := context.Background()

	res, err := svc.Begin(ctx, "req-1")
	require.NoError(t, err)
	require.NoError(t, svc.MarkSuccess(ctx, res))

	_, err = svc.Begin(ctx, "req-1")
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	processed, err := svc.IsProcessed(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestIdempotencyService_ReleaseAllowsRetry(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	svc := NewIdempotencyService(adapter, DefaultIdempotencyConfig())
	ctx := context.Background()

	res, err := svc.Begin(ctx, "req-1")
	require.NoError(t, err)

	// Mutation failed; the client may retry with the same ID.
	svc.Release(ctx, res)

	res, err = svc.Begin(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, res)
}

func TestIdempotencyService_LockExpires(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	config := DefaultIdempotencyConfig()
	config.LockTTL = time.Second

	svc := NewIdempotencyService(adapter, config)
	ctx := context.Background()

	_, err := svc.Begin(ctx, "req-1")
	require.NoError(t, err)

	// A crashed worker never releases; the lock TTL frees the ID.
	mr.FastForward(2 * time.Second)

	_, err = svc.Begin(ctx, "req-1")
	require.NoError(t, err)
}
