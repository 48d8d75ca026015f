package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rapidopay/card-gateway/internal/model"
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

func testStreamConfig(name string) StreamConfig {
	return StreamConfig{
		Name:              name,
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      50 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
	}
}

func TestStream_PublishAndConsume(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	stream, err := NewStream(adapter, testStreamConfig("test:transactions"))
	require.NoError(t, err)

	txn := &model.Transaction{
		ID:         7,
		Barcode:    "123456789012",
		Amount:     500,
		Bonus:      50,
		OldBalance: 0,
		NewBalance: 550,
		Date:       time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, stream.PublishTransaction(context.Background(), txn))

	received := make(chan *model.Transaction, 1)
	require.NoError(t, stream.Consume(func(ctx context.Context, got *model.Transaction) error {
		received <- got
		return nil
	}))
	defer stream.Stop()

	select {
	case got := <-received:
		assert.Equal(t, "123456789012", got.Barcode)
		assert.Equal(t, int64(500), got.Amount)
		assert.Equal(t, int64(550), got.NewBalance)
	case <-time.After(2 * time.Second):
		t.Fatal("transaction event not received")
	}
}

func TestStream_AcksProcessedMessages(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	stream, err := NewStream(adapter, testStreamConfig("test:acked"))
	require.NoError(t, err)

	var handled atomic.Int64
	require.NoError(t, stream.PublishTransaction(context.Background(), &model.Transaction{Barcode: "123456789012", Amount: 100}))

	require.NoError(t, stream.Consume(func(ctx context.Context, _ *model.Transaction) error {
		handled.Add(1)
		return nil
	}))

	assert.Eventually(t, func() bool {
		return handled.Load() == 1
	}, 2*time.Second, 20*time.Millisecond)
	stream.Stop()

	// No pending entries left once the handler succeeded.
	pending, err := adapter.XPendingExt("test:acked", "test-group", "-", "+", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStream_DropsUndecodablePayloads(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	stream, err := NewStream(adapter, testStreamConfig("test:garbage"))
	require.NoError(t, err)

	_, err = adapter.XAdd("test:garbage", map[string]interface{}{"data": "{not json"})
	require.NoError(t, err)
	require.NoError(t, stream.PublishTransaction(context.Background(), &model.Transaction{Barcode: "123456789012", Amount: 200}))

	received := make(chan *model.Transaction, 2)
	require.NoError(t, stream.Consume(func(ctx context.Context, got *model.Transaction) error {
		received <- got
		return nil
	}))
	defer stream.Stop()

	select {
	case got := <-received:
		// Only the valid event reaches the handler.
		assert.Equal(t, int64(200), got.Amount)
	case <-time.After(2 * time.Second):
		t.Fatal("valid event not received")
	}
}

func TestStream_RequiresName(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	_, err := NewStream(adapter, StreamConfig{})
	assert.Error(t, err)
}

func TestStream_Len(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	stream, err := NewStream(adapter, testStreamConfig("test:len"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, stream.PublishTransaction(context.Background(), &model.Transaction{Barcode: "123456789012", Amount: int64(i + 1)}))
	}

	n, err := stream.Len()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
