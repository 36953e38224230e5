package cachesvc

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/elimu/core"
)

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// instrumentedCache counts the lookups of the wrapped core.Cache by result.
type instrumentedCache struct {
	core.Cache
	requests *prometheus.CounterVec
}

var _ core.Cache = (*instrumentedCache)(nil)

// WithMetrics wraps cache and registers its lookup counter on reg.
func WithMetrics(cache core.Cache, reg prometheus.Registerer) (core.Cache, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "elimu",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Cache lookups partitioned by result (hit, miss, error).",
	}, []string{"result"})
	if err := reg.Register(requests); err != nil {
		return nil, err
	}
	return &instrumentedCache{Cache: cache, requests: requests}, nil
}

func (c *instrumentedCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, ok, err := c.Cache.Get(ctx, key)
	switch {
	case err != nil:
		c.requests.WithLabelValues(resultError).Inc()
	case ok:
		c.requests.WithLabelValues(resultHit).Inc()
	default:
		c.requests.WithLabelValues(resultMiss).Inc()
	}
	return val, ok, err
}
