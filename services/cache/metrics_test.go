package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	c, err := WithMetrics(NewMemoryCache(time.Minute), reg)
	require.NoError(t, err)

	_, _, _ = c.Get(ctx, "course")
	require.NoError(t, c.Set(ctx, "course", "v1"))
	_, _, _ = c.Get(ctx, "course")
	_, _, _ = c.Get(ctx, "course")

	ic := c.(*instrumentedCache)
	assert.Equal(t, float64(2), testutil.ToFloat64(ic.requests.WithLabelValues(resultHit)))
	assert.Equal(t, float64(1), testutil.ToFloat64(ic.requests.WithLabelValues(resultMiss)))
	assert.Equal(t, float64(0), testutil.ToFloat64(ic.requests.WithLabelValues(resultError)))

	_, err = WithMetrics(NewMemoryCache(time.Minute), reg)
	assert.Error(t, err, "counter registered twice")
}
