package mapbox

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/observability"
)

// CachedResolver wraps a PlaceResolver with an in-memory LRU cache.
type CachedResolver struct {
	inner   domain.PlaceResolver
	cache   *lru.Cache[string, domain.Place]
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner domain.PlaceResolver, maxEntries int, metrics *observability.Metrics) (*CachedResolver, error) {
	cache, err := lru.New[string, domain.Place](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	return &CachedResolver{inner: inner, cache: cache, metrics: metrics}, nil
}

// ResolvePlace implements domain.PlaceResolver.
func (c *CachedResolver) ResolvePlace(ctx context.Context, query string) (domain.Place, error) {
	key := "fwd:" + strings.ToLower(strings.TrimSpace(query))
	if p, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCacheHits.WithLabelValues("forward").Inc()
		return p, nil
	}
	// Errors, including not-found, are not cached so they can be retried.
	p, err := c.inner.ResolvePlace(ctx, query)
	if err != nil {
		return p, err
	}
	c.cache.Add(key, p)
	return p, nil
}

// DescribeLocation implements domain.PlaceResolver.
func (c *CachedResolver) DescribeLocation(ctx context.Context, lat, lon float64) (domain.Place, error) {
	key := fmt.Sprintf("rev:%.6f,%.6f", lat, lon)
	if p, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCacheHits.WithLabelValues("reverse").Inc()
		return p, nil
	}
	p, err := c.inner.DescribeLocation(ctx, lat, lon)
	if err != nil {
		return p, err
	}
	c.cache.Add(key, p)
	return p, nil
}
