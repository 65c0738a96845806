package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"ai-orchestrator-be/internal/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) *SessionCache {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return NewSessionCache(client, ttl)
}

func TestSessionCacheRoundTrip(t *testing.T) {
	c := newTestCache(t, time.Minute)
	ctx := context.Background()
	key := entity.SessionKey{TenantId: "it", ConversationId: uuid.NewString()}
	t.Cleanup(func() { c.Delete(ctx, key) })

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	s := entity.NewSession(key, time.Now().UTC())
	s.Turns = append(s.Turns, entity.Turn{RequestText: "hi", Category: entity.CategoryQuick})
	require.NoError(t, c.Set(ctx, s))

	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.Id, got.Id)
	assert.Equal(t, "hi", got.Turns[0].RequestText)
}

func TestSessionCacheGetSlidesExpiry(t *testing.T) {
	c := newTestCache(t, 400*time.Millisecond)
	ctx := context.Background()
	key := entity.SessionKey{TenantId: "it", ConversationId: uuid.NewString()}
	t.Cleanup(func() { c.Delete(ctx, key) })

	require.NoError(t, c.Set(ctx, entity.NewSession(key, time.Now())))

	for i := 0; i < 3; i++ {
		time.Sleep(250 * time.Millisecond)
		got, err := c.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, got, "read %d", i)
	}

	// Peek does not slide
	time.Sleep(250 * time.Millisecond)
	_, _ = c.Peek(ctx, key)
	time.Sleep(250 * time.Millisecond)
	got, err := c.Peek(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}
