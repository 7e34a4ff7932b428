package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/couchcryptid/incident-tracker/internal/domain"
)

const trackingMarkerKey = "tracking_started_at"

// EnsureTrackingMarker records when result aggregation became trustworthy.
// Written with the current time only if absent; an existing marker is never
// touched, so the cutover survives restarts. Returns the effective marker.
func (s *Store) EnsureTrackingMarker(ctx context.Context) (time.Time, error) {
	now := domain.Now()
	entry := Setting{
		Key:       trackingMarkerKey,
		Value:     now.UTC().Format(time.RFC3339Nano),
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
		return time.Time{}, fmt.Errorf("ensure tracking marker: %w", err)
	}
	return s.TrackingStartedAt(ctx)
}

// TrackingStartedAt reads the persisted tracking marker.
func (s *Store) TrackingStartedAt(ctx context.Context) (time.Time, error) {
	var entry Setting
	if err := s.db.WithContext(ctx).First(&entry, "key = ?", trackingMarkerKey).Error; err != nil {
		return time.Time{}, fmt.Errorf("read tracking marker: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, entry.Value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse tracking marker %q: %w", entry.Value, err)
	}
	return t, nil
}
