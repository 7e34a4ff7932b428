// Package store persists reconciled incidents, the geocode cache, and the
// tracking marker in SQLite.
package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/couchcryptid/incident-tracker/internal/domain"
)

// Store wraps the database handle shared by the reconcile, backfill, and
// stats paths. Construct once at startup and pass into each component.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates the schema.
// The GORM NowFunc is routed through the injected domain clock so record
// timestamps stay deterministic under a frozen test clock.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: domain.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := db.AutoMigrate(&domain.Incident{}, &GeocodeCacheEntry{}, &Setting{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// GeocodeCacheEntry maps a normalized place-name query to resolved
// coordinates. Overwritten on re-resolution, deleted when found out of region.
type GeocodeCacheEntry struct {
	Query     string `gorm:"primaryKey;size:255"`
	Lat       float64
	Lon       float64
	UpdatedAt time.Time
}

func (GeocodeCacheEntry) TableName() string { return "geocode_cache" }

// Setting is a key-value row for process-wide markers.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text"`
	CreatedAt time.Time
}

func (Setting) TableName() string { return "settings" }
