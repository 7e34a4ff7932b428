package geocode

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/incident-tracker/internal/domain"
	"github.com/couchcryptid/incident-tracker/internal/observability"
	"github.com/couchcryptid/incident-tracker/internal/store"
)

// Cache is the persistent query→coordinates cache backing the resolver.
// *store.Store satisfies it.
type Cache interface {
	CachedCoordinates(ctx context.Context, query string) (store.GeocodeCacheEntry, bool, error)
	PutCachedCoordinates(ctx context.Context, query string, lat, lon float64) error
	InvalidateCachedCoordinates(ctx context.Context, query string) error
}

// Resolver answers place-name queries from the cache, falling back to the
// external geocoder under a courtesy rate limit. Every coordinate pair it
// returns or caches lies inside the operating region rectangle; entries found
// outside it are evicted on read (self-healing invalidation).
type Resolver struct {
	cache    Cache
	geocoder domain.Geocoder
	region   domain.Region
	limiter  *rate.Limiter
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewResolver creates a Resolver. limit caps external call frequency, e.g.
// rate.Every(time.Second); upstream geocoders impose courtesy limits, so
// lookups are serial, never batched ahead.
func NewResolver(cache Cache, geocoder domain.Geocoder, region domain.Region, limit rate.Limit, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		cache:    cache,
		geocoder: geocoder,
		region:   region,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve maps a place-name query to validated coordinates. The boolean is
// false when the query cannot be resolved this round (no match, transport
// failure, out-of-region result); only cache storage errors are returned.
func (r *Resolver) Resolve(ctx context.Context, query string) (domain.GeoCandidate, bool, error) {
	entry, ok, err := r.cache.CachedCoordinates(ctx, query)
	if err != nil {
		return domain.GeoCandidate{}, false, err
	}
	if ok {
		if r.region.Contains(entry.Lat, entry.Lon) {
			r.metrics.GeocodeCache.WithLabelValues("hit").Inc()
			return domain.GeoCandidate{Lat: entry.Lat, Lon: entry.Lon}, true, nil
		}
		// Stale out-of-region entry: evict and re-resolve.
		r.metrics.GeocodeCache.WithLabelValues("evict").Inc()
		r.logger.Warn("evicting out-of-region geocode cache entry",
			"query", query,
			"lat", entry.Lat,
			"lon", entry.Lon,
		)
		if err := r.cache.InvalidateCachedCoordinates(ctx, query); err != nil {
			return domain.GeoCandidate{}, false, err
		}
	} else {
		r.metrics.GeocodeCache.WithLabelValues("miss").Inc()
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return domain.GeoCandidate{}, false, nil
	}

	candidates, err := r.geocoder.Geocode(ctx, query)
	if err != nil {
		// Unresolved this round; a future backfill pass retries.
		r.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		r.logger.Warn("geocode lookup failed", "query", query, "error", err)
		return domain.GeoCandidate{}, false, nil
	}
	if len(candidates) == 0 {
		r.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return domain.GeoCandidate{}, false, nil
	}

	best := candidates[0]
	if !r.region.Contains(best.Lat, best.Lon) {
		r.metrics.GeocodeRequests.WithLabelValues("out_of_bounds").Inc()
		r.logger.Warn("geocode result outside operating region",
			"query", query,
			"lat", best.Lat,
			"lon", best.Lon,
		)
		return domain.GeoCandidate{}, false, nil
	}

	if err := r.cache.PutCachedCoordinates(ctx, query, best.Lat, best.Lon); err != nil {
		return domain.GeoCandidate{}, false, err
	}
	r.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return best, true, nil
}

// Invalidate unconditionally deletes the cache entry for a query.
func (r *Resolver) Invalidate(ctx context.Context, query string) error {
	return r.cache.InvalidateCachedCoordinates(ctx, query)
}
