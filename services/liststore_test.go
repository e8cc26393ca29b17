package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*RedisListStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisListStore(client), mr
}

func TestListStorePushTrimRange(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	for _, v := range []string{"1", "2", "3", "4"} {
		require.NoError(t, store.PushFront(ctx, "k", v))
		require.NoError(t, store.Trim(ctx, "k", 3))
	}

	got, err := store.Range(ctx, "k", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3", "2"}, got)

	got, err = store.Range(ctx, "missing", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListStoreRemoveIsIdempotent(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.PushFront(ctx, "k", "1", "2", "1"))

	removed, err := store.Remove(ctx, "k", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	removed, err = store.Remove(ctx, "k", "1")
	require.NoError(t, err)
	assert.Zero(t, removed)

	got, err := store.Range(ctx, "k", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, got)
}

func TestListStoreSetsDeleteAndExpire(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddMembers(ctx, "s", "7"))
	ok, err := store.IsMember(ctx, "s", "7")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.IsMember(ctx, "s", "8")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.PushFront(ctx, "k", "1"))
	require.NoError(t, store.Expire(ctx, "k", time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("k"))

	require.NoError(t, store.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
	require.NoError(t, store.Delete(ctx))
}

func TestBatchResultsByIndex(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddMembers(ctx, "s", "1"))

	batch := store.Batch()
	push := batch.PushFront("k", "a")
	rng := batch.Range("k", 0, -1)
	member := batch.IsMember("s", "1")
	assert.Equal(t, 3, batch.Len())

	res, err := batch.Exec(ctx)
	require.NoError(t, err)
	assert.NoError(t, res.Err(push))
	items, err := res.Strings(rng)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, items)
	isMember, err := res.Bool(member)
	require.NoError(t, err)
	assert.True(t, isMember)
	assert.Error(t, res.Err(10))
}

func TestBatchPartialFailure(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("user_feed:2", "not a list"))

	batch := store.Batch()
	ok := batch.PushFront("user_feed:1", "5")
	bad := batch.PushFront("user_feed:2", "5")

	res, err := batch.Exec(ctx)
	require.NoError(t, err)
	assert.NoError(t, res.Err(ok))
	assert.Error(t, res.Err(bad))
	assert.Equal(t, 1, res.Failed())
}

func TestBatchTotalFailure(t *testing.T) {
	store, mr := newStore(t)
	mr.SetError("store down")

	batch := store.Batch()
	batch.PushFront("k", "1")
	batch.Trim("k", 10)
	_, err := batch.Exec(context.Background())
	assert.Error(t, err)
}

func TestEmptyBatch(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.Batch().Exec(context.Background())
	assert.ErrorIs(t, err, ErrEmptyBatch)
}
