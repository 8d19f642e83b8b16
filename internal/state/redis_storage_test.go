package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage_SetAndGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)

	ctx := context.Background()
	session := &Session{
		ConversationID: 123,
		State:          StateAwaitingWalletAddress,
		TradingActive:  true,
	}

	err := storage.Set(ctx, session)
	assert.NoError(t, err)

	result, err := storage.Get(ctx, session.ConversationID)
	assert.NoError(t, err)
	if assert.NotNil(t, result) {
		assert.Equal(t, session.ConversationID, result.ConversationID)
		assert.Equal(t, session.State, result.State)
		assert.True(t, result.TradingActive)
	}

	ttl := client.TTL(ctx, sessionKey(session.ConversationID)).Val()
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)

	session, err := storage.Get(context.Background(), 999)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_ClearState(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), time.Hour)

	ctx := context.Background()
	require.NoError(t, storage.Set(ctx, &Session{ConversationID: 456, State: StateIdle}))
	require.NoError(t, storage.Clear(ctx, 456))

	session, err := storage.Get(ctx, 456)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_List(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, testLogger(), 0)

	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, storage.Set(ctx, &Session{ConversationID: id, State: StateIdle}))
	}
	require.NoError(t, client.Set(ctx, "unrelated:key", "x", 0).Err())

	sessions, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
	assert.NoError(t, storage.HealthCheck(ctx))
}
