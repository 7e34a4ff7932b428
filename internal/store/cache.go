package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/couchcryptid/incident-tracker/internal/domain"
)

// NormalizeQuery canonicalizes a place-name query for use as a cache key:
// lowercased, whitespace collapsed.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// CachedCoordinates looks up a geocode cache entry. The second return value
// is false on a miss.
func (s *Store) CachedCoordinates(ctx context.Context, query string) (GeocodeCacheEntry, bool, error) {
	var entry GeocodeCacheEntry
	err := s.db.WithContext(ctx).First(&entry, "query = ?", NormalizeQuery(query)).Error
	switch {
	case err == nil:
		return entry, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return GeocodeCacheEntry{}, false, nil
	default:
		return GeocodeCacheEntry{}, false, fmt.Errorf("geocode cache lookup: %w", err)
	}
}

// PutCachedCoordinates writes a cache entry, overwriting any stale one.
func (s *Store) PutCachedCoordinates(ctx context.Context, query string, lat, lon float64) error {
	entry := GeocodeCacheEntry{
		Query:     NormalizeQuery(query),
		Lat:       lat,
		Lon:       lon,
		UpdatedAt: domain.Now(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error; err != nil {
		return fmt.Errorf("geocode cache write: %w", err)
	}
	return nil
}

// ClearOutOfRegionCache deletes every cache entry whose coordinates lie
// outside the region rectangle. Companion to ClearOutOfRegionCoordinates so
// a sweep does not leave stale entries to be served on the next lookup.
func (s *Store) ClearOutOfRegionCache(ctx context.Context, region domain.Region) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("lat < ? OR lat > ? OR lon < ? OR lon > ?", region.MinLat, region.MaxLat, region.MinLon, region.MaxLon).
		Delete(&GeocodeCacheEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear out-of-region cache entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// InvalidateCachedCoordinates unconditionally deletes a cache entry.
func (s *Store) InvalidateCachedCoordinates(ctx context.Context, query string) error {
	err := s.db.WithContext(ctx).
		Delete(&GeocodeCacheEntry{}, "query = ?", NormalizeQuery(query)).Error
	if err != nil {
		return fmt.Errorf("geocode cache invalidate: %w", err)
	}
	return nil
}
