package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
)

func TestKeyCoversEveryInput(t *testing.T) {
	base := Key("m", 0.7, 1500, "sys", "hola")
	assert.Len(t, base, 64)
	assert.Equal(t, base, Key("m", 0.7, 1500, "sys", "hola"))

	for _, other := range []string{
		Key("m2", 0.7, 1500, "sys", "hola"),
		Key("m", 0.5, 1500, "sys", "hola"),
		Key("m", 0.7, 1000, "sys", "hola"),
		Key("m", 0.7, 1500, "sys2", "hola"),
		Key("m", 0.7, 1500, "sys", "hola!"),
		Key("m", 0.7, 1500, "sy", "shola"),
	} {
		assert.NotEqual(t, base, other)
	}
}

func TestMemoryExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok, _ = m.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "other", "v", time.Hour))
	now = now.Add(2 * time.Minute)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Purge())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, m.Purge())
}

func TestNewSelectsBackend(t *testing.T) {
	c, err := New(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(config.CacheConfig{Enabled: true, Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	c, err = New(config.CacheConfig{Enabled: true, Backend: "redis", Redis: config.RedisConfig{Addr: "localhost:6379"}})
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, c)

	_, err = New(config.CacheConfig{Enabled: true, Backend: "memcached"})
	assert.Error(t, err)
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	r := NewRedis(redis.NewClient(&redis.Options{Addr: addr}))
	t.Cleanup(func() { _ = r.Close() })
	ctx := context.Background()
	require.NoError(t, r.Ping(ctx))

	key := Key("test", 0, 1, "", t.Name())
	require.NoError(t, r.Set(ctx, key, "respuesta", time.Minute))
	v, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "respuesta", v)

	_, ok, err = r.Get(ctx, Key("test", 0, 1, "", "absent"))
	require.NoError(t, err)
	assert.False(t, ok)
}
