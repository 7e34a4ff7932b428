// Package backfill repairs reconciled records that are missing derived
// fields: duration and coordinates.
package backfill

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/incident-tracker/internal/domain"
	"github.com/couchcryptid/incident-tracker/internal/observability"
)

// Store is the persistence surface the coordinator needs. *store.Store
// satisfies it.
type Store interface {
	MissingDuration(ctx context.Context, limit, maxPlausible int) ([]domain.Incident, error)
	MissingCoordinates(ctx context.Context, limit int) ([]domain.Incident, error)
	SetDuration(ctx context.Context, id string, minutes int) error
	SetCoordinates(ctx context.Context, id string, lat, lon float64) error
}

// Resolver maps place-name queries to validated coordinates.
type Resolver interface {
	Resolve(ctx context.Context, query string) (domain.GeoCandidate, bool, error)
}

// Coordinator runs bounded repair passes over the record set on a fixed
// interval. Both limits cap per-pass cost; the coordinate limit is much
// smaller than the duration one because each lookup may hit the external
// geocoder.
type Coordinator struct {
	store          Store
	resolver       Resolver
	logger         *slog.Logger
	metrics        *observability.Metrics
	durationLimit  int
	geocodeLimit   int
	maxDurationMin int
}

// Default batch bounds for one repair pass.
const (
	DefaultDurationLimit = 80
	DefaultGeocodeLimit  = 8
)

// New creates a Coordinator. resolver may be nil when coordinate resolution
// is disabled; the coordinate pass is then skipped.
func New(store Store, resolver Resolver, durationLimit, geocodeLimit, maxDurationMin int, logger *slog.Logger, metrics *observability.Metrics) *Coordinator {
	return &Coordinator{
		store:          store,
		resolver:       resolver,
		logger:         logger,
		metrics:        metrics,
		durationLimit:  durationLimit,
		geocodeLimit:   geocodeLimit,
		maxDurationMin: maxDurationMin,
	}
}

// Run executes one bounded repair pass. Individual record failures are
// skipped; only the pass-level candidate queries can fail.
func (c *Coordinator) Run(ctx context.Context) {
	c.repairDurations(ctx)
	c.repairCoordinates(ctx)
}

func (c *Coordinator) repairDurations(ctx context.Context) {
	candidates, err := c.store.MissingDuration(ctx, c.durationLimit, c.maxDurationMin)
	if err != nil {
		c.logger.Warn("duration backfill query failed", "error", err)
		return
	}

	for _, inc := range candidates {
		start := startFor(inc)
		end := endFor(inc)
		mins, ok := domain.ComputeDurationMinutes(start, end, c.maxDurationMin)
		if !ok {
			continue
		}
		if err := c.store.SetDuration(ctx, inc.ID, mins); err != nil {
			c.logger.Warn("duration backfill write failed", "id", inc.ID, "error", err)
			continue
		}
		c.metrics.BackfillRepairs.WithLabelValues("duration").Inc()
	}
}

func (c *Coordinator) repairCoordinates(ctx context.Context) {
	if c.resolver == nil {
		return
	}

	candidates, err := c.store.MissingCoordinates(ctx, c.geocodeLimit)
	if err != nil {
		c.logger.Warn("coordinate backfill query failed", "error", err)
		return
	}

	for _, inc := range candidates {
		query := inc.CityText
		if query == "" {
			query = inc.PlaceText
		}
		if query == "" {
			continue
		}
		geo, ok, err := c.resolver.Resolve(ctx, query)
		if err != nil {
			c.logger.Warn("coordinate backfill resolve failed", "id", inc.ID, "query", query, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if err := c.store.SetCoordinates(ctx, inc.ID, geo.Lat, geo.Lon); err != nil {
			c.logger.Warn("coordinate backfill write failed", "id", inc.ID, "error", err)
			continue
		}
		c.metrics.BackfillRepairs.WithLabelValues("coordinates").Inc()
	}
}

// startFor picks the duration start: stored start time, else publication time.
func startFor(inc domain.Incident) time.Time {
	if inc.StartTime != nil {
		return *inc.StartTime
	}
	if inc.PubDate != nil {
		return *inc.PubDate
	}
	return time.Time{}
}

// endFor picks the duration end: stored end time, else the moment closure was
// first detected.
func endFor(inc domain.Incident) time.Time {
	if inc.EndTime != nil {
		return *inc.EndTime
	}
	if inc.ClosedDetectedAt != nil {
		return *inc.ClosedDetectedAt
	}
	return time.Time{}
}
