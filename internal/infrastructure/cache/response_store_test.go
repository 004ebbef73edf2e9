package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryResponseStore_PutGet(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	store := NewInMemoryResponseStore()
	store.now = clock.Now

	missing, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	body := []byte(`{"success":true}`)
	require.NoError(t, store.Put(ctx, "k1", &StoredResponse{
		Fingerprint: "abc",
		Status:      201,
		ContentType: "application/json",
		Body:        body,
	}, time.Minute))
	body[0] = 'X'

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.Status)
	assert.Equal(t, "abc", got.Fingerprint)
	assert.Equal(t, `{"success":true}`, string(got.Body), "stored body is a copy")

	clock.Advance(time.Minute)
	expired, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, expired)
}

func TestInMemoryResponseStore_PutSweepsExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	store := NewInMemoryResponseStore()
	store.now = clock.Now

	require.NoError(t, store.Put(ctx, "old", &StoredResponse{Status: 200}, time.Second))
	clock.Advance(2 * time.Second)
	require.NoError(t, store.Put(ctx, "new", &StoredResponse{Status: 200}, time.Minute))

	store.mu.RLock()
	defer store.mu.RUnlock()
	assert.Len(t, store.entries, 1)
	assert.Contains(t, store.entries, "new")
}

func TestResponseStoreFor(t *testing.T) {
	claims := NewInMemoryIdempotencyStore()
	defer claims.Close()
	assert.IsType(t, &InMemoryResponseStore{}, ResponseStoreFor(claims))
}
