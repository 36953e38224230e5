package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
)

func newTestRedisCache(t *testing.T) (*redisCache, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	conf := &core.Config{AppName: "Elimu"}
	conf.Cache.TTL = time.Hour
	return NewRedisCache(client, conf), srv
}

func Test_redisCache(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedisCache(t)

	_, ok, err := c.Get(ctx, "lol")
	require.NoError(t, err)
	assert.False(t, ok, "unknown key")

	require.NoError(t, c.Set(ctx, "allCourses", "[]"))
	val, ok, err := c.Get(ctx, "allCourses")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", val)

	// namespaced & expiring
	assert.True(t, srv.Exists("Elimu:allCourses"))
	assert.Equal(t, time.Hour, srv.TTL("Elimu:allCourses"))

	srv.FastForward(time.Hour)
	_, ok, err = c.Get(ctx, "allCourses")
	require.NoError(t, err)
	assert.False(t, ok, "expired")

	require.NoError(t, c.Set(ctx, "a", "1"))
	require.NoError(t, c.Set(ctx, "b", "2"))
	require.NoError(t, c.Delete(ctx, "a", "b", "unknown"))
	assert.False(t, srv.Exists("Elimu:a"))
	assert.False(t, srv.Exists("Elimu:b"))
	require.NoError(t, c.Delete(ctx))
}

func Test_redisCache_serverDown(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedisCache(t)
	srv.Close()

	_, ok, err := c.Get(ctx, "allCourses")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.Set(ctx, "allCourses", "[]"))
}
