package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

func openTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSessionCacheRoundTripWithTTL(t *testing.T) {
	client := openTestRedis(t)
	ctx := context.Background()
	prefix := "test:" + uuid.NewString() + ":"

	expiry := func(string) (time.Time, bool) { return time.Now().Add(time.Minute), true }
	cache := NewSessionCache(client, prefix, "default", expiry)
	t.Cleanup(func() { _ = cache.Delete(context.Background()) })

	loaded, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	want := domain.Session{SubjectID: "3", Role: domain.RoleProvider, Credential: "tok"}
	require.NoError(t, cache.Save(ctx, want))

	loaded, err = cache.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, want, *loaded)

	ttl, err := client.TTL(ctx, prefix+"default").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, cache.Delete(ctx))
	loaded, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionCacheWithoutExpiryHasNoTTL(t *testing.T) {
	client := openTestRedis(t)
	ctx := context.Background()
	prefix := "test:" + uuid.NewString() + ":"

	cache := NewSessionCache(client, prefix, "default", nil)
	t.Cleanup(func() { _ = cache.Delete(context.Background()) })

	require.NoError(t, cache.Save(ctx, domain.Session{SubjectID: "3", Role: domain.RoleAdmin, Credential: "tok"}))
	ttl, err := client.TTL(ctx, prefix+"default").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}
