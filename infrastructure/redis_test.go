package infrastructure

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rpsarena/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate redis container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := ConnectRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisInfrastructure(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	t.Run("stake lock is exclusive per tier", func(t *testing.T) {
		locker := NewRedisStakeLocker(client, 5*time.Second)

		release, err := locker.Lock(ctx, 500)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, 500)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		other, err := locker.Lock(ctx, 1000)
		require.NoError(t, err)
		other()

		release()
		again, err := locker.Lock(ctx, 500)
		require.NoError(t, err)
		again()
	})

	t.Run("stake lock waits for release", func(t *testing.T) {
		locker := NewRedisStakeLocker(client, 5*time.Second)
		release, err := locker.Lock(ctx, 200)
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			next, err := locker.Lock(ctx, 200)
			if err == nil {
				next()
			}
			close(acquired)
		}()

		time.Sleep(50 * time.Millisecond)
		release()

		select {
		case <-acquired:
		case <-time.After(2 * time.Second):
			t.Fatal("waiter never got the lock")
		}
	})

	t.Run("sweep lease has one holder", func(t *testing.T) {
		first := NewRedisSweepLease(client)
		second := NewRedisSweepLease(client)

		held, err := first.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		assert.True(t, held)

		held, err = second.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		assert.False(t, held)

		held, err = first.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		assert.True(t, held, "owner renews its own lease")

		require.NoError(t, first.Release(ctx))
		held, err = second.TryAcquire(ctx, time.Minute)
		require.NoError(t, err)
		assert.True(t, held)
		require.NoError(t, second.Release(ctx))
	})

	t.Run("payment references expire", func(t *testing.T) {
		store := NewRedisPaymentReferenceStore(client)
		payment := &models.PendingPayment{Reference: "ref-1", UserID: "alice", Amount: 5000, CreatedAt: time.Now().UTC()}

		require.NoError(t, store.Save(ctx, payment, time.Minute))
		got, err := store.Get(ctx, "ref-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "alice", got.UserID)
		assert.Equal(t, int64(5000), got.Amount)

		require.NoError(t, store.Delete(ctx, "ref-1"))
		got, err = store.Get(ctx, "ref-1")
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, store.Save(ctx, payment, 50*time.Millisecond))
		time.Sleep(150 * time.Millisecond)
		got, err = store.Get(ctx, "ref-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestMemoryPaymentReferenceStore(t *testing.T) {
	store := NewMemoryPaymentReferenceStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.PendingPayment{Reference: "ref-1", UserID: "alice", Amount: 100}, time.Minute))

	got, err := store.Get(ctx, "ref-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(100), got.Amount)

	now = now.Add(time.Minute)
	got, err = store.Get(ctx, "ref-1")
	require.NoError(t, err)
	assert.Nil(t, got, "expired references are forgotten")

	require.NoError(t, store.Delete(ctx, "missing"))
}

func TestMemoryPaymentReferenceStore_EvictsAbandonedReferencesOnSave(t *testing.T) {
	store := NewMemoryPaymentReferenceStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		ref := fmt.Sprintf("abandoned-%d", i)
		require.NoError(t, store.Save(ctx, &models.PendingPayment{Reference: ref, UserID: "alice", Amount: 100}, time.Minute))
	}
	require.NoError(t, store.Save(ctx, &models.PendingPayment{Reference: "long-lived", UserID: "bob", Amount: 500}, 72*time.Hour))

	now = now.Add(48 * time.Hour)
	for i := 0; i < 3; i++ {
		ref := fmt.Sprintf("fresh-%d", i)
		require.NoError(t, store.Save(ctx, &models.PendingPayment{Reference: ref, UserID: "carol", Amount: 200}, time.Minute))
	}

	store.mu.Lock()
	remaining := len(store.payments)
	_, abandonedKept := store.payments["abandoned-0"]
	_, longLivedKept := store.payments["long-lived"]
	store.mu.Unlock()

	assert.Equal(t, 4, remaining)
	assert.False(t, abandonedKept, "expired references are evicted without being read")
	assert.True(t, longLivedKept, "references still within their TTL survive eviction")
}
