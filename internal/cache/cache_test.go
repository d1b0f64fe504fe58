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

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestKeys(t *testing.T) {
	assert.Equal(t, "series:AAPL:2y:1d", SeriesKey("AAPL", "2y", "1d"))
	assert.Equal(t, "classification:MSFT", ClassificationKey("MSFT"))
}

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache().WithClock(clock.now)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("2"), 0))

	v, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	clock.t = clock.t.Add(time.Minute)
	_, ok, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "entry expires at exactly its ttl")

	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 2, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
}

func TestMemoryCache_CleanupAndClear(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewMemoryCache().WithClock(clock.now)

	for _, k := range []string{"x", "y", "z"} {
		require.NoError(t, c.Set(ctx, k, []byte(k), time.Second))
	}
	require.NoError(t, c.Set(ctx, "keep", []byte("k"), time.Hour))
	clock.t = clock.t.Add(2 * time.Second)

	assert.Equal(t, 3, c.Stats().Expired)
	assert.Equal(t, 3, c.CleanupExpired())
	assert.Equal(t, 1, c.Stats().Entries)

	require.NoError(t, c.Delete(ctx, "keep"))
	assert.Equal(t, 0, c.Stats().Entries)

	require.NoError(t, c.Set(ctx, "again", nil, 0))
	c.Clear()
	assert.Equal(t, Stats{}, c.Stats())
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'z'
	v, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
	v[1] = 'z'
	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	type payload struct {
		Ticker string  `json:"ticker"`
		Price  float64 `json:"price"`
	}
	require.NoError(t, SetJSON(ctx, c, "p", payload{"AAPL", 190.5}, time.Minute))

	var got payload
	ok, err := GetJSON(ctx, c, "p", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{"AAPL", 190.5}, got)

	ok, err = GetJSON(ctx, c, "missing", &got)
	assert.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "broken", []byte("{"), 0))
	_, err = GetJSON(ctx, c, "broken", &got)
	assert.Error(t, err)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "watchdog:")

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet("watchdog:classification:AAPL").SetVal(`{"regime":"HEALTHY"}`)
		v, ok, err := c.Get(ctx, ClassificationKey("AAPL"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"regime":"HEALTHY"}`, string(v))
	})

	t.Run("miss is not an error", func(t *testing.T) {
		mock.ExpectGet("watchdog:missing").RedisNil()
		v, ok, err := c.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("backend error", func(t *testing.T) {
		mock.ExpectGet("watchdog:down").SetErr(errors.New("connection refused"))
		_, ok, err := c.Get(ctx, "down")
		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("set with ttl", func(t *testing.T) {
		mock.ExpectSet("watchdog:series:AAPL:2y:1d", []byte("[]"), 30*time.Minute).SetVal("OK")
		require.NoError(t, c.Set(ctx, SeriesKey("AAPL", "2y", "1d"), []byte("[]"), 30*time.Minute))
	})

	t.Run("delete", func(t *testing.T) {
		mock.ExpectDel("watchdog:k").SetVal(1)
		require.NoError(t, c.Delete(ctx, "k"))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
