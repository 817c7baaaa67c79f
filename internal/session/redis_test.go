package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	state := New("abc")
	state.Login("alice", "access", "id")
	state.AppendUser("What is the turbidity?")
	state.AppendAssistant("Low.", TurnDetail{
		QueryID:        "q1",
		CreatedAt:      time.Unix(1700000000, 0).UTC(),
		Classification: "RAG",
		Sources:        []string{"Report - http://x"},
	})
	state.MarkFeedback(1, VerdictPositive)

	require.NoError(t, store.Save(ctx, state))
	assert.True(t, mr.Exists("session:abc"))
	assert.Equal(t, time.Hour, mr.TTL("session:abc"))

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, state.Messages, got.Messages)
	assert.Equal(t, "q1", got.Detail(1).QueryID)
	assert.Equal(t, []string{"Report - http://x"}, got.Detail(1).Sources)
	assert.Equal(t, VerdictPositive, got.Feedback[1])
	assert.True(t, got.Authenticated)
}

func TestRedisStoreMissingAndDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	_, err := store.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, New("gone")))
	require.NoError(t, store.Delete(ctx, "gone"))
	_, err = store.Load(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreNormalizesEmptyMaps(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set("session:raw", `{"id":"raw","messages":[]}`))

	got, err := store.Load(ctx, "raw")
	require.NoError(t, err)
	assert.NotNil(t, got.Details)
	assert.NotNil(t, got.Feedback)
}
