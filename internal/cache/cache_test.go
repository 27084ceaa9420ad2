package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	var got entry
	ok, err := s.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k1", entry{Name: "Bến Thành", Score: 0.7}, time.Minute))
	ok, err = s.Get(ctx, "k1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry{Name: "Bến Thành", Score: 0.7}, got)

	require.NoError(t, s.Delete(ctx, "k1"))
	ok, err = s.Get(ctx, "k1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Minute, time.Minute))
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Minute, time.Minute)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "short", entry{Name: "x"}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var got entry
	ok, err := s.Get(ctx, "short", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("FRIENDUS_REDIS_ADDR")
	if addr == "" {
		t.Skip("FRIENDUS_REDIS_ADDR not set; skipping redis-backed tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, NewRedisStore(client, "friendus:test:"))
}
