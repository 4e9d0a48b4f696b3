package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Score float64 `json:"score"`
}

func TestMemoryCacheRoundTripAndExpiry(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "png", []byte{1, 2, 3}, time.Minute))
	var got []byte
	require.NoError(t, mc.Get(ctx, "png", &got))
	assert.Equal(t, []byte{1, 2, 3}, got)

	require.NoError(t, mc.Set(ctx, "gone", "x", time.Nanosecond))
	time.Sleep(2 * time.Millisecond)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "gone", &s), ErrCacheMiss)
}

func TestMemoryCacheRejectsWrongDestType(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", 42, time.Minute))
	var s string
	assert.Error(t, mc.Get(ctx, "k", &s))
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.Equal(t, 2, mc.Len())
}

func TestRedisCacheJSONRoundTrip(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheWithClient(db, "macrocompass")
	ctx := context.Background()

	mock.ExpectSet("macrocompass:regime:latest", []byte(`{"score":0.5}`), 5*time.Minute).SetVal("OK")
	require.NoError(t, rc.Set(ctx, "regime:latest", entry{Score: 0.5}, 5*time.Minute))

	mock.ExpectGet("macrocompass:regime:latest").SetVal(`{"score":0.5}`)
	var got entry
	require.NoError(t, rc.Get(ctx, "regime:latest", &got))
	assert.Equal(t, 0.5, got.Score)

	mock.ExpectGet("macrocompass:missing").RedisNil()
	assert.ErrorIs(t, rc.Get(ctx, "missing", &got), ErrCacheMiss)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRememberBuildsOnceThenHits(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	builds := 0
	build := func() ([]byte, error) {
		builds++
		return []byte("png"), nil
	}

	for i := 0; i < 3; i++ {
		got, err := Remember(ctx, mc, "chart:momentum:a", time.Minute, build, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("png"), got)
	}
	assert.Equal(t, 1, builds)
}

func TestRememberDoesNotStoreBuildErrors(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_, err := Remember(ctx, mc, "k", time.Minute, func() (int, error) { return 0, errors.New("boom") }, nil)
	require.Error(t, err)

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestRememberWithoutStore(t *testing.T) {
	got, err := Remember[string](context.Background(), nil, "k", time.Minute, func() (string, error) { return "v", nil }, nil)
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestRedisConfigAddr(t *testing.T) {
	cfg := defaultRedisConfig()
	WithRedisHost("cache.internal")(cfg)
	WithRedisPort(0)(cfg)
	assert.Equal(t, "cache.internal:6379", cfg.Addr())
	assert.True(t, IsMiss(ErrCacheMiss))
}
