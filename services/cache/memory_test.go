package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_memoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2021, 1, 10, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	_, ok, err := c.Get(ctx, "lol")
	require.NoError(t, err)
	assert.False(t, ok, "unknown key")

	require.NoError(t, c.Set(ctx, "course", `{"name":"Go"}`))
	val, ok, err := c.Get(ctx, "course")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"Go"}`, val)

	require.NoError(t, c.Set(ctx, "allCourses", "[]"))
	require.NoError(t, c.Delete(ctx, "course", "allCourses"))
	for _, key := range []string{"course", "allCourses"} {
		_, ok, _ = c.Get(ctx, key)
		assert.False(t, ok, "deleted key %q", key)
	}

	require.NoError(t, c.Set(ctx, "course", "v1"))
	now = now.Add(59 * time.Second)
	_, ok, _ = c.Get(ctx, "course")
	assert.True(t, ok, "not expired yet")
	now = now.Add(time.Second)
	_, ok, _ = c.Get(ctx, "course")
	assert.False(t, ok, "expired")
}

func Test_memoryCache_noTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	c.now = func() time.Time { return time.Now().Add(100 * 365 * 24 * time.Hour) }

	require.NoError(t, c.Set(ctx, "course", "v1"))
	val, ok, err := c.Get(ctx, "course")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", val)
}

func Test_memoryCache_setDuringExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2021, 1, 10, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Minute)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "course", "v1"))

	// a Set lands once Get has seen the stale entry
	c.now = func() time.Time {
		c.now = func() time.Time { return now }
		now = now.Add(time.Minute)
		require.NoError(t, c.Set(ctx, "course", "v2"))
		return now
	}
	_, ok, err := c.Get(ctx, "course")
	require.NoError(t, err)
	assert.False(t, ok, "stale entry")

	val, ok, err := c.Get(ctx, "course")
	require.NoError(t, err)
	assert.True(t, ok, "fresh entry kept")
	assert.Equal(t, "v2", val)
}
