package mapbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"github.com/couchcryptid/covid-mortality-etl/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedResolver wraps a BoundaryResolver with an in-memory LRU cache keyed
// by case-folded region name.
type CachedResolver struct {
	inner   domain.BoundaryResolver
	cache   *lru.Cache[string, *domain.Boundary]
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner domain.BoundaryResolver, maxEntries int, metrics *observability.Metrics) (*CachedResolver, error) {
	cache, err := lru.New[string, *domain.Boundary](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("boundary cache: %w", err)
	}
	return &CachedResolver{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
	}, nil
}

func (c *CachedResolver) Boundary(ctx context.Context, region string) (*domain.Boundary, error) {
	key := strings.ToLower(strings.TrimSpace(region))
	if b, ok := c.cache.Get(key); ok {
		c.metrics.BoundaryCache.WithLabelValues("hit").Inc()
		return b, nil
	}
	c.metrics.BoundaryCache.WithLabelValues("miss").Inc()

	b, err := c.inner.Boundary(ctx, region)
	if err != nil {
		return nil, err
	}
	// Only cache found boundaries so transient "not found" responses can be retried.
	if b != nil {
		c.cache.Add(key, b)
	}
	return b, nil
}

// Len reports the number of cached boundaries.
func (c *CachedResolver) Len() int {
	return c.cache.Len()
}
