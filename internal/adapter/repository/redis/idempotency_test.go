package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iho/loanledger/internal/usecase"
)

var _ usecase.IdempotencyStore = (*IdempotencyStore)(nil)

func TestIdempotencyStore_CheckAndSetExisting(t *testing.T) {
	client, _ := newTestRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, store.prefix+"key", "cached", time.Minute).Err())

	exists, resp, err := store.CheckAndSet(ctx, "key", nil, time.Minute)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, "cached", string(resp))
}

func TestIdempotencyStore_CheckAndSetLocksNewKey(t *testing.T) {
	client, mr := newTestRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, resp, err := store.CheckAndSet(ctx, "pending", nil, time.Minute)
	require.NoError(t, err)
	require.False(t, exists)
	require.Nil(t, resp)

	val, err := client.Get(ctx, store.prefix+"pending").Result()
	require.NoError(t, err)
	require.Equal(t, pendingMarker, val)

	// A concurrent duplicate sees the in-flight marker.
	exists, resp, err = store.CheckAndSet(ctx, "pending", nil, time.Minute)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, pendingMarker, string(resp))

	mr.FastForward(2 * time.Minute)
	exists, _, err = store.CheckAndSet(ctx, "pending", nil, time.Minute)
	require.NoError(t, err)
	require.False(t, exists, "expired key should be claimable again")
}

func TestIdempotencyStore_UpdateAndRelease(t *testing.T) {
	client, _ := newTestRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "complete", []byte("done"), time.Minute))

	val, err := client.Get(ctx, store.prefix+"complete").Result()
	require.NoError(t, err)
	require.Equal(t, "done", val)

	require.NoError(t, store.Release(ctx, "complete"))
	exists, _, err := store.CheckAndSet(ctx, "complete", nil, time.Minute)
	require.NoError(t, err)
	require.False(t, exists)
}
