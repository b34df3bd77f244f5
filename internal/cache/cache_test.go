package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func newTestMemoryCache() (*MemoryCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)}
	c := NewMemoryCache()
	c.now = clock.now
	return c, clock
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryCache()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))

	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, c.Delete(ctx, "a", "b", "never-set"))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestMemoryCache()

	require.NoError(t, c.Set(ctx, "snapshot", []byte("v1"), 10*time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))

	clock.t = clock.t.Add(9 * time.Minute)
	_, ok, _ := c.Get(ctx, "snapshot")
	assert.True(t, ok)

	clock.t = clock.t.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "snapshot")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	clock.t = clock.t.Add(24 * time.Hour)
	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryCache()

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, _, _ := c.Get(ctx, "k")
	got[1] = 'y'

	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryCache()

	type payload struct {
		Codes []string `json:"codes"`
	}

	var dst payload
	ok, err := GetJSON(ctx, c, "p", &dst)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, c, "p", payload{Codes: []string{"4.15"}}, time.Minute))
	ok, err = GetJSON(ctx, c, "p", &dst)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"4.15"}, dst.Codes)

	require.NoError(t, c.Set(ctx, "broken", []byte("{"), 0))
	ok, err = GetJSON(ctx, c, "broken", &dst)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisConfig_InvalidURL(t *testing.T) {
	_, err := RedisConfig{URL: "not-a-redis-url"}.NewRedisClient(context.Background())
	assert.Error(t, err)
}
