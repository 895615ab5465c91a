package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(context.Background(), RedisConfig{Address: mr.Addr(), TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := setupTestRedis(t, 0)
	testSessionService(t, store)
}

func TestRedisStore_KeyTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := setupTestRedis(t, time.Minute)

	require.NoError(t, store.Save(ctx, New("ttl")))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"ttl"))

	mr.FastForward(2 * time.Minute)
	loaded, err := store.Load(ctx, "ttl")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	store, mr := setupTestRedis(t, 0)

	require.NoError(t, mr.Set(keyPrefix+"bad", "{not json"))
	loaded, err := store.Load(ctx, "bad")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_ConnectionErrors(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(context.Background(), RedisConfig{Address: addr})
	assert.Error(t, err)
}

func TestRedisStore_ServerGoesAway(t *testing.T) {
	ctx := context.Background()
	store, mr := setupTestRedis(t, 0)
	mr.Close()

	_, err := store.Load(ctx, "any")
	assert.Error(t, err)
	assert.Error(t, store.Save(ctx, New("any")))
}
