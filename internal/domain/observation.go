package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput marks an observation that cannot be reconciled, currently
// only a missing or blank identifier. Surfaced to the caller; nothing is written.
var ErrInvalidInput = errors.New("invalid observation input")

// rawObservation is the flat JSON shape published by the feed watcher.
// All timestamps arrive as strings in assorted layouts.
type rawObservation struct {
	ID             string  `json:"id"`
	Title          *string `json:"title"`
	Link           *string `json:"link"`
	PubDate        *string `json:"pubDate"`
	PlaceText      *string `json:"placeText"`
	CityText       *string `json:"cityText"`
	StatusText     *string `json:"statusText"`
	EventType      *string `json:"eventType"`
	DescriptionRaw *string `json:"descriptionRaw"`
	StartTimeISO   *string `json:"startTimeIso"`
	EndTimeISO     *string `json:"endTimeIso"`
	DurationMin    *int    `json:"durationMin"`
	IsClosed       *bool   `json:"isClosed"`
}

// ParseRawMessage deserializes a RawMessage's value into an Observation.
// Unparsable timestamps are dropped rather than failing the whole message;
// only a missing identifier is fatal.
func ParseRawMessage(raw RawMessage) (Observation, error) {
	var rec rawObservation
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Observation{}, fmt.Errorf("parse raw observation: %w", err)
	}

	obs := Observation{
		ID:             strings.TrimSpace(rec.ID),
		Title:          rec.Title,
		Link:           rec.Link,
		PlaceText:      rec.PlaceText,
		CityText:       rec.CityText,
		StatusText:     rec.StatusText,
		EventType:      rec.EventType,
		DescriptionRaw: rec.DescriptionRaw,
		PubDate:        parseTimePtr(rec.PubDate),
		StartTime:      parseTimePtr(rec.StartTimeISO),
		EndTime:        parseTimePtr(rec.EndTimeISO),
		DurationMin:    rec.DurationMin,
	}
	if rec.IsClosed != nil {
		obs.IsClosed = *rec.IsClosed
	}

	if obs.ID == "" {
		return Observation{}, fmt.Errorf("%w: empty id", ErrInvalidInput)
	}
	return obs, nil
}

// timeLayouts are the timestamp formats seen in feed entries, most specific first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseEventTime leniently parses a feed timestamp. Returns the zero time
// when the string matches no known layout.
func ParseEventTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := ParseEventTime(*s)
	if t.IsZero() {
		return nil
	}
	return &t
}
