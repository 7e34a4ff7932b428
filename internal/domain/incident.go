package domain

import (
	"context"
	"time"
)

// RawMessage represents an unprocessed observation message from the source topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Observation is one inbound report about an incident, possibly partial,
// possibly out of order. Nil pointer fields mean "not reported this time".
type Observation struct {
	ID             string
	Title          *string
	Link           *string
	PubDate        *time.Time
	PlaceText      *string
	CityText       *string
	StatusText     *string
	EventType      *string
	DescriptionRaw *string
	StartTime      *time.Time
	EndTime        *time.Time
	DurationMin    *int
	IsClosed       bool
}

// Incident is the reconciled record for one tracked incident, keyed by the
// feed's stable identifier. Records are created on first observation, mutated
// on every later one, and never deleted.
type Incident struct {
	ID               string     `gorm:"primaryKey;size:191" json:"id"`
	Title            string     `gorm:"type:text" json:"title"`
	Link             string     `gorm:"type:text" json:"link"`
	PubDate          *time.Time `json:"pub_date,omitempty"`
	PlaceText        string     `gorm:"size:512" json:"place_text"`
	CityText         string     `gorm:"index;size:255" json:"city_text"`
	StatusText       string     `gorm:"size:255" json:"status_text"`
	EventType        string     `gorm:"index;size:64" json:"event_type"`
	DescriptionRaw   string     `gorm:"type:text" json:"description_raw"`
	StartTime        *time.Time `gorm:"column:start_time_iso" json:"start_time_iso,omitempty"`
	EndTime          *time.Time `gorm:"column:end_time_iso" json:"end_time_iso,omitempty"`
	DurationMin      *int       `json:"duration_min,omitempty"`
	IsClosed         bool       `gorm:"index" json:"is_closed"`
	ClosedDetectedAt *time.Time `gorm:"index" json:"closed_detected_at,omitempty"`
	Lat              *float64   `json:"lat,omitempty"`
	Lon              *float64   `json:"lon,omitempty"`
	FirstSeenAt      time.Time  `json:"first_seen_at"`
	LastSeenAt       time.Time  `gorm:"index" json:"last_seen_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Incident) TableName() string { return "incidents" }

// HasCoordinates reports whether the record carries a resolved position.
func (i *Incident) HasCoordinates() bool {
	return i.Lat != nil && i.Lon != nil
}

// EventTime is the timestamp used for calendar filtering and grouping:
// parsed start time when known, else publication time, else creation time.
func (i *Incident) EventTime() time.Time {
	if i.StartTime != nil {
		return *i.StartTime
	}
	if i.PubDate != nil {
		return *i.PubDate
	}
	return i.CreatedAt
}
