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

// Reconcile merges one observation into the stored record for its identifier
// and persists the result with a single conditional upsert. The
// read-merge-write runs inside a transaction, so concurrent observations of
// the same identifier serialize instead of racing check-then-act.
func (s *Store) Reconcile(ctx context.Context, obs domain.Observation, pol domain.MergePolicy) (domain.Incident, error) {
	if strings.TrimSpace(obs.ID) == "" {
		return domain.Incident{}, fmt.Errorf("%w: empty id", domain.ErrInvalidInput)
	}

	var merged domain.Incident
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored domain.Incident
		var prev *domain.Incident
		switch err := tx.First(&stored, "id = ?", obs.ID).Error; {
		case err == nil:
			prev = &stored
		case errors.Is(err, gorm.ErrRecordNotFound):
			prev = nil
		default:
			return err
		}

		merged = domain.Merge(prev, obs, pol, domain.Now())
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&merged).Error
	})
	if err != nil {
		return domain.Incident{}, fmt.Errorf("reconcile %q: %w", obs.ID, err)
	}
	return merged, nil
}

// Get returns the record for one identifier.
func (s *Store) Get(ctx context.Context, id string) (domain.Incident, error) {
	var inc domain.Incident
	if err := s.db.WithContext(ctx).First(&inc, "id = ?", id).Error; err != nil {
		return domain.Incident{}, fmt.Errorf("get incident %q: %w", id, err)
	}
	return inc, nil
}

// ListAll returns the full reconciled record set, most recently seen first.
func (s *Store) ListAll(ctx context.Context) ([]domain.Incident, error) {
	var out []domain.Incident
	if err := s.db.WithContext(ctx).Order("last_seen_at desc, id asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return out, nil
}

// MissingDuration returns up to limit closed incidents that have a closure
// detection time but no usable duration, candidates for duration backfill.
func (s *Store) MissingDuration(ctx context.Context, limit, maxPlausible int) ([]domain.Incident, error) {
	var out []domain.Incident
	err := s.db.WithContext(ctx).
		Where("is_closed = ?", true).
		Where("closed_detected_at IS NOT NULL").
		Where("duration_min IS NULL OR duration_min <= 0 OR duration_min > ?", maxPlausible).
		Order("last_seen_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("select duration backfill candidates: %w", err)
	}
	return out, nil
}

// MissingCoordinates returns up to limit incidents without a resolved
// position, candidates for coordinate backfill.
func (s *Store) MissingCoordinates(ctx context.Context, limit int) ([]domain.Incident, error) {
	var out []domain.Incident
	err := s.db.WithContext(ctx).
		Where("lat IS NULL OR lon IS NULL").
		Order("last_seen_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("select geocode backfill candidates: %w", err)
	}
	return out, nil
}

// SetDuration writes a backfilled duration. Plain column-level last-writer-wins
// is fine here: the value carries no merge ambiguity.
func (s *Store) SetDuration(ctx context.Context, id string, minutes int) error {
	err := s.db.WithContext(ctx).Model(&domain.Incident{}).
		Where("id = ?", id).
		Update("duration_min", minutes).Error
	if err != nil {
		return fmt.Errorf("set duration for %q: %w", id, err)
	}
	return nil
}

// SetCoordinates writes backfilled coordinates, always both columns together.
func (s *Store) SetCoordinates(ctx context.Context, id string, lat, lon float64) error {
	err := s.db.WithContext(ctx).Model(&domain.Incident{}).
		Where("id = ?", id).
		Updates(map[string]any{"lat": lat, "lon": lon}).Error
	if err != nil {
		return fmt.Errorf("set coordinates for %q: %w", id, err)
	}
	return nil
}

// ClearOutOfRegionCoordinates nulls both coordinate columns on every incident
// whose position lies outside the region rectangle. Used by the administrative
// sweep together with geocode cache invalidation.
func (s *Store) ClearOutOfRegionCoordinates(ctx context.Context, region domain.Region) (int64, error) {
	res := s.db.WithContext(ctx).Model(&domain.Incident{}).
		Where("lat IS NOT NULL AND lon IS NOT NULL").
		Where("lat < ? OR lat > ? OR lon < ? OR lon > ?", region.MinLat, region.MaxLat, region.MinLon, region.MaxLon).
		Updates(map[string]any{"lat": nil, "lon": nil})
	if res.Error != nil {
		return 0, fmt.Errorf("clear out-of-region coordinates: %w", res.Error)
	}
	return res.RowsAffected, nil
}
