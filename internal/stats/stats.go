// Package stats computes read-side aggregates over the reconciled record set:
// filtered counts, per-day histograms, and rankings.
package stats

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/incident-tracker/internal/domain"
)

// Result-set caps.
const (
	HistogramDays     = 31
	TopLocationsLimit = 20
	LongestLimit      = 20
)

// Filter narrows the record set for counts and the histogram. Zero values
// mean "all". The top-locations ranking deliberately ignores it.
type Filter struct {
	Day    string // "today" or "yesterday"
	Status string // "open" or "closed"
	City   string // case-insensitive substring
	Month  string // "YYYY-MM"
	Type   string // exact event-type tag
}

var monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ParseFilter builds a Filter from raw query values. Unrecognized values fall
// back to "all" rather than erroring.
func ParseFilter(day, status, city, month, eventType string) Filter {
	f := Filter{
		City: strings.TrimSpace(city),
		Type: strings.TrimSpace(eventType),
	}
	switch day {
	case "today", "yesterday":
		f.Day = day
	}
	switch status {
	case "open", "closed":
		f.Status = status
	}
	if monthRe.MatchString(month) {
		f.Month = month
	}
	return f
}

// DayCount is one histogram bucket, keyed by local calendar day.
type DayCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// LocationCount is one entry of the top-locations ranking.
type LocationCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DurationEntry is one entry of the longest-duration ranking.
type DurationEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CityText    string `json:"city_text"`
	DurationMin int    `json:"duration_min"`
}

// Summary is the full aggregate for one stats request.
type Summary struct {
	OpenCount    int             `json:"open_count"`
	ClosedCount  int             `json:"closed_count"`
	Histogram    []DayCount      `json:"histogram"`
	TopLocations []LocationCount `json:"top_locations"`
	Longest      []DurationEntry `json:"longest"`
}

// Source is the read surface the aggregator needs. *store.Store satisfies it.
type Source interface {
	ListAll(ctx context.Context) ([]domain.Incident, error)
	TrackingStartedAt(ctx context.Context) (time.Time, error)
}

// Aggregator computes summaries in the operating region's local calendar.
type Aggregator struct {
	source Source
	region domain.Region
	loc    *time.Location
}

// NewAggregator creates an Aggregator evaluating calendar filters in loc.
func NewAggregator(source Source, region domain.Region, loc *time.Location) *Aggregator {
	return &Aggregator{source: source, region: region, loc: loc}
}

// Compute builds the summary for one filter. Counts and the histogram honor
// the filter; the top-locations ranking covers the whole dataset, and the
// longest-duration ranking covers everything closed after the tracking marker.
func (a *Aggregator) Compute(ctx context.Context, f Filter) (Summary, error) {
	all, err := a.source.ListAll(ctx)
	if err != nil {
		return Summary{}, err
	}
	marker, err := a.source.TrackingStartedAt(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("stats: %w", err)
	}

	var sum Summary
	byDay := make(map[string]int)
	for i := range all {
		inc := &all[i]
		if !a.matches(inc, f) {
			continue
		}
		if inc.IsClosed {
			sum.ClosedCount++
		} else {
			sum.OpenCount++
		}
		byDay[inc.EventTime().In(a.loc).Format("2006-01-02")]++
	}

	sum.Histogram = histogram(byDay)
	sum.TopLocations = a.topLocations(all)
	sum.Longest = longest(all, marker)
	return sum, nil
}

func (a *Aggregator) matches(inc *domain.Incident, f Filter) bool {
	switch f.Status {
	case "open":
		if inc.IsClosed {
			return false
		}
	case "closed":
		if !inc.IsClosed {
			return false
		}
	}
	if f.City != "" && !strings.Contains(strings.ToLower(inc.CityText), strings.ToLower(f.City)) {
		return false
	}
	if f.Type != "" && inc.EventType != f.Type {
		return false
	}

	when := inc.EventTime().In(a.loc)
	switch f.Day {
	case "today":
		if !sameDay(when, domain.Now().In(a.loc)) {
			return false
		}
	case "yesterday":
		if !sameDay(when, domain.Now().In(a.loc).AddDate(0, 0, -1)) {
			return false
		}
	}
	if f.Month != "" && when.Format("2006-01") != f.Month {
		return false
	}
	return true
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func histogram(byDay map[string]int) []DayCount {
	out := make([]DayCount, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, DayCount{Day: day, Count: n})
	}
	// Most recent first; day strings sort lexicographically.
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	if len(out) > HistogramDays {
		out = out[:HistogramDays]
	}
	return out
}

// topLocations ranks by city (falling back to place text) over the entire
// dataset, skipping records whose known coordinates lie outside the region.
func (a *Aggregator) topLocations(all []domain.Incident) []LocationCount {
	counts := make(map[string]int)
	for i := range all {
		inc := &all[i]
		if inc.HasCoordinates() && !a.region.Contains(*inc.Lat, *inc.Lon) {
			continue
		}
		name := inc.CityText
		if name == "" {
			name = inc.PlaceText
		}
		if name == "" {
			continue
		}
		counts[name]++
	}

	out := make([]LocationCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, LocationCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > TopLocationsLimit {
		out = out[:TopLocationsLimit]
	}
	return out
}

// longest ranks known positive durations among incidents closed after the
// tracking marker; older backlog has no reliably measured duration.
func longest(all []domain.Incident, marker time.Time) []DurationEntry {
	out := make([]DurationEntry, 0, LongestLimit)
	for i := range all {
		inc := &all[i]
		if !inc.IsClosed || inc.ClosedDetectedAt == nil || !inc.ClosedDetectedAt.After(marker) {
			continue
		}
		if inc.DurationMin == nil || *inc.DurationMin <= 0 {
			continue
		}
		out = append(out, DurationEntry{
			ID:          inc.ID,
			Title:       inc.Title,
			CityText:    inc.CityText,
			DurationMin: *inc.DurationMin,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DurationMin != out[j].DurationMin {
			return out[i].DurationMin > out[j].DurationMin
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > LongestLimit {
		out = out[:LongestLimit]
	}
	return out
}
