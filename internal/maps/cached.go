package maps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"friendus/internal/cache"
	"friendus/internal/metrics"
	"friendus/internal/planner"
)

// CachedProvider memoizes place searches. Provider errors are never cached.
type CachedProvider struct {
	next   planner.PlaceProvider
	store  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProvider(next planner.PlaceProvider, store cache.Store, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{next: next, store: store, ttl: ttl, logger: logger}
}

func (c *CachedProvider) SearchPlaces(ctx context.Context, req planner.SearchRequest) ([]planner.Candidate, error) {
	return c.SearchPlacesWithin(ctx, req, 0)
}

// SearchPlacesWithin applies timeout to the wrapped provider only, and only
// on a cache miss.
func (c *CachedProvider) SearchPlacesWithin(ctx context.Context, req planner.SearchRequest, timeout time.Duration) ([]planner.Candidate, error) {
	key := cacheKey(req)

	var cached []planner.Candidate
	hit, err := c.store.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("place cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	found, err := c.fetch(ctx, req, timeout)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, found, c.ttl); err != nil {
		c.logger.Warn("place cache write failed", zap.String("key", key), zap.Error(err))
	}
	return found, nil
}

func (c *CachedProvider) fetch(ctx context.Context, req planner.SearchRequest, timeout time.Duration) ([]planner.Candidate, error) {
	if timed, ok := c.next.(planner.TimedPlaceProvider); ok {
		return timed.SearchPlacesWithin(ctx, req, timeout)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.next.SearchPlaces(ctx, req)
}

// cacheKey rounds the anchor to about 100 m so nearby searches share entries.
func cacheKey(req planner.SearchRequest) string {
	anchor := req.Anchor.Rounded(3)
	return fmt.Sprintf("places:%s:%s:%g", strings.ToLower(strings.Join(strings.Fields(req.Query), " ")), anchor.String(), req.RadiusKm)
}
