package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// MemoryIdempotencyStore tests
// ---------------------------------------------------------------------------

func TestMemoryIdempotencyStore_UnknownEventIsAbsent(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)

	seen, err := store.Contains(context.Background(), "evt-1")

	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryIdempotencyStore_AddThenContains(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt-1"))

	seen, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMemoryIdempotencyStore_ExpiredEntryIsAbsent(t *testing.T) {
	store := NewMemoryIdempotencyStore(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt-expire"))

	time.Sleep(20 * time.Millisecond)

	seen, err := store.Contains(ctx, "evt-expire")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute)
	ctx := context.Background()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_ = store.Add(ctx, "evt-concurrent")
			_, _ = store.Contains(ctx, "evt-concurrent")
		}()
	}

	wg.Wait()

	seen, err := store.Contains(ctx, "evt-concurrent")
	require.NoError(t, err)
	assert.True(t, seen)
}

// ---------------------------------------------------------------------------
// RedisIdempotencyStore tests
// ---------------------------------------------------------------------------

func setupRedisStore(t *testing.T, ttl time.Duration) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIdempotencyStore(client, ttl), mr
}

func TestRedisIdempotencyStore_UnknownEventIsAbsent(t *testing.T) {
	store, _ := setupRedisStore(t, time.Hour)

	seen, err := store.Contains(context.Background(), "evt-1")

	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisIdempotencyStore_AddThenContains(t *testing.T) {
	store, mr := setupRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt-1"))

	seen, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.True(t, mr.Exists("event:processed:evt-1"))
}

func TestRedisIdempotencyStore_TTLSet(t *testing.T) {
	store, mr := setupRedisStore(t, time.Hour)

	require.NoError(t, store.Add(context.Background(), "evt-ttl"))

	assert.Equal(t, time.Hour, mr.TTL("event:processed:evt-ttl"))
}

func TestRedisIdempotencyStore_ExpiryAllowsReprocessing(t *testing.T) {
	store, mr := setupRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt-expire"))

	mr.FastForward(2 * time.Minute)

	seen, err := store.Contains(ctx, "evt-expire")
	require.NoError(t, err)
	assert.False(t, seen)
}
