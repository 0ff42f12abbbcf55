package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/guestflow/guestflow/pkg/observability"
)

const (
	// OverviewCacheKey is the single Redis key holding the assembled
	// dashboard overview.
	OverviewCacheKey = "dashboard:overview"

	// OverviewCacheTTL bounds staleness of a cached overview.
	OverviewCacheTTL = 60 * time.Second
)

// CachedService fronts an OverviewProvider with a Redis read-through
// cache. The cache is strictly best-effort: Redis being down, a corrupt
// cached value, or a failed write all fall back to computing the
// overview directly.
type CachedService struct {
	inner  OverviewProvider
	client *redis.Client
	logger *observability.Logger
	key    string
	ttl    time.Duration
}

// NewCachedService wraps provider with the overview cache.
func NewCachedService(provider OverviewProvider, client *redis.Client, logger *observability.Logger) *CachedService {
	return &CachedService{
		inner:  provider,
		client: client,
		logger: logger,
		key:    OverviewCacheKey,
		ttl:    OverviewCacheTTL,
	}
}

// GetOverview returns the cached overview when present, otherwise
// computes it and caches the result. An overview with no events is
// returned without caching so newly created events show up immediately.
func (c *CachedService) GetOverview(ctx context.Context) (*Overview, error) {
	if cached, ok := c.get(ctx); ok {
		observability.CacheHits.WithLabelValues(c.key).Inc()
		return cached, nil
	}
	observability.CacheMisses.WithLabelValues(c.key).Inc()

	overview, err := c.inner.GetOverview(ctx)
	if err != nil {
		return nil, err
	}

	if len(overview.Events) > 0 {
		c.set(ctx, overview)
	}
	return overview, nil
}

// Invalidate drops the cached overview. Used after bulk metric
// refreshes so the next dashboard load reflects the new numbers.
func (c *CachedService) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		c.logger.WithError(err).WithField("key", c.key).Warn("Failed to invalidate dashboard cache")
	}
}

func (c *CachedService) get(ctx context.Context) (*Overview, bool) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", c.key).Warn("Dashboard cache read failed")
		return nil, false
	}

	var overview Overview
	if err := json.Unmarshal(data, &overview); err != nil {
		c.logger.WithError(err).WithField("key", c.key).Warn("Discarding corrupt cached dashboard overview")
		return nil, false
	}
	return &overview, true
}

func (c *CachedService) set(ctx context.Context, overview *Overview) {
	data, err := json.Marshal(overview)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal dashboard overview for caching")
		return
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", c.key).Warn("Failed to cache dashboard overview")
	}
}
