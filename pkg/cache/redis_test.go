package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/condo-bookings/pkg/config"
)

func TestHashKey(t *testing.T) {
	k := HashKey("idempotency", "abc")
	assert.True(t, strings.HasPrefix(k, "idempotency:"))
	assert.Len(t, k, len("idempotency:")+64)
	assert.Equal(t, k, HashKey("idempotency", "abc"))
	assert.NotEqual(t, k, HashKey("ratelimit", "abc"))
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), config.RedisConfig{URL: "not a url"})
	assert.Error(t, err)
}

// Runs against a real server when REDIS_TEST_URL is set.
func TestRedisIntegration(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, config.RedisConfig{URL: url})
	require.NoError(t, err)
	defer client.Close()

	store := NewIdempotencyStore(client)
	key := HashKey("test", uuid.NewString())
	v, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, store.Set(ctx, key, "first", time.Minute))
	require.NoError(t, store.Set(ctx, key, "second", time.Minute))
	v, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	limiter := NewRateLimiter(client, 2, time.Minute)
	ip := "ip:" + uuid.NewString()
	for i, want := range []bool{true, true, false} {
		ok, err := limiter.Allow(ctx, ip)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "hit %d", i+1)
	}
}
