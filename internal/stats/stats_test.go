package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-tracker/internal/domain"
)

// --- fixtures ---

type mockSource struct {
	incidents []domain.Incident
	marker    time.Time
}

func (m *mockSource) ListAll(_ context.Context) ([]domain.Incident, error) {
	return m.incidents, nil
}

func (m *mockSource) TrackingStartedAt(_ context.Context) (time.Time, error) {
	return m.marker, nil
}

var (
	prague   = mustLoadPrague()
	baseTime = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
)

func mustLoadPrague() *time.Location {
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		panic(err)
	}
	return loc
}

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(baseTime))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func incident(id, city, typ string, start time.Time, closed bool) domain.Incident {
	inc := domain.Incident{
		ID:        id,
		CityText:  city,
		EventType: typ,
		StartTime: &start,
		IsClosed:  closed,
		CreatedAt: start,
	}
	return inc
}

func closedWithDuration(id, city string, closedAt time.Time, durationMin int) domain.Incident {
	start := closedAt.Add(-time.Duration(durationMin) * time.Minute)
	inc := incident(id, city, "power", start, true)
	inc.ClosedDetectedAt = &closedAt
	inc.DurationMin = &durationMin
	return inc
}

func newAggregator(src Source) *Aggregator {
	return NewAggregator(src, domain.CzechRegion, prague)
}

// --- tests ---

func TestParseFilter_UnrecognizedFallsBackToAll(t *testing.T) {
	f := ParseFilter("sometime", "banana", " Kladno ", "2024-6", "water")
	assert.Empty(t, f.Day)
	assert.Empty(t, f.Status)
	assert.Empty(t, f.Month, "month must match YYYY-MM")
	assert.Equal(t, "Kladno", f.City)
	assert.Equal(t, "water", f.Type)

	f = ParseFilter("yesterday", "closed", "", "2024-06", "")
	assert.Equal(t, "yesterday", f.Day)
	assert.Equal(t, "closed", f.Status)
	assert.Equal(t, "2024-06", f.Month)
}

func TestCompute_StatusAndCityFilters(t *testing.T) {
	freezeClock(t)
	src := &mockSource{incidents: []domain.Incident{
		incident("a", "Kladno", "power", baseTime, false),
		incident("b", "Kladno", "power", baseTime, true),
		incident("c", "Beroun", "water", baseTime, false),
	}}

	sum, err := newAggregator(src).Compute(context.Background(), Filter{City: "klad"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.OpenCount)
	assert.Equal(t, 1, sum.ClosedCount)

	sum, err = newAggregator(src).Compute(context.Background(), Filter{Status: "open"})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.OpenCount)
	assert.Equal(t, 0, sum.ClosedCount)
}

func TestCompute_DayFilterUsesPragueCalendar(t *testing.T) {
	freezeClock(t)
	// 23:30 UTC on June 14 is already June 15 in Prague (UTC+2 in summer).
	lateNight := time.Date(2024, 6, 14, 23, 30, 0, 0, time.UTC)
	src := &mockSource{incidents: []domain.Incident{
		incident("a", "Kladno", "power", lateNight, false),
		incident("b", "Kladno", "power", baseTime.AddDate(0, 0, -1), false),
	}}

	sum, err := newAggregator(src).Compute(context.Background(), Filter{Day: "today"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.OpenCount, "late UTC evening counts as the next Prague day")

	sum, err = newAggregator(src).Compute(context.Background(), Filter{Day: "yesterday"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.OpenCount)
}

func TestCompute_MonthFilter(t *testing.T) {
	freezeClock(t)
	src := &mockSource{incidents: []domain.Incident{
		incident("a", "Kladno", "power", baseTime, false),
		incident("b", "Kladno", "power", baseTime.AddDate(0, -1, 0), false),
	}}

	sum, err := newAggregator(src).Compute(context.Background(), Filter{Month: "2024-05"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.OpenCount)
}

func TestCompute_EventTimeFallsBackToPubDateThenCreated(t *testing.T) {
	freezeClock(t)
	pub := baseTime
	src := &mockSource{incidents: []domain.Incident{
		{ID: "a", CityText: "Kladno", PubDate: &pub, CreatedAt: baseTime.AddDate(0, -2, 0)},
		{ID: "b", CityText: "Kladno", CreatedAt: baseTime},
	}}

	sum, err := newAggregator(src).Compute(context.Background(), Filter{Day: "today"})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.OpenCount)
}

func TestCompute_HistogramMostRecentFirstCapped(t *testing.T) {
	freezeClock(t)
	var incs []domain.Incident
	for i := 0; i < 40; i++ {
		incs = append(incs, incident(fmt.Sprintf("e%d", i), "Kladno", "power", baseTime.AddDate(0, 0, -i), false))
	}
	src := &mockSource{incidents: incs}

	sum, err := newAggregator(src).Compute(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, sum.Histogram, HistogramDays)
	assert.True(t, sum.Histogram[0].Day > sum.Histogram[1].Day, "descending by day")
	assert.Equal(t, "2024-06-15", sum.Histogram[0].Day)
}

func TestCompute_TopLocationsIgnoresFilters(t *testing.T) {
	freezeClock(t)
	src := &mockSource{incidents: []domain.Incident{
		incident("a", "Kladno", "power", baseTime, false),
		incident("b", "Kladno", "water", baseTime, true),
		incident("c", "Beroun", "water", baseTime, false),
	}}
	agg := newAggregator(src)

	unfiltered, err := agg.Compute(context.Background(), Filter{})
	require.NoError(t, err)
	filtered, err := agg.Compute(context.Background(), Filter{Status: "closed", Type: "water", Day: "yesterday"})
	require.NoError(t, err)

	assert.Equal(t, unfiltered.TopLocations, filtered.TopLocations)
	require.Len(t, unfiltered.TopLocations, 2)
	assert.Equal(t, LocationCount{Name: "Kladno", Count: 2}, unfiltered.TopLocations[0])
}

func TestCompute_TopLocationsTieBreaksByName(t *testing.T) {
	freezeClock(t)
	src := &mockSource{incidents: []domain.Incident{
		incident("a", "Beroun", "power", baseTime, false),
		incident("b", "Kladno", "power", baseTime, false),
	}}

	sum, err := newAggregator(src).Compute(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, sum.TopLocations, 2)
	assert.Equal(t, "Beroun", sum.TopLocations[0].Name, "equal counts order by name ascending")
}

func TestCompute_TopLocationsSkipsOutOfRegionCoordinates(t *testing.T) {
	freezeClock(t)
	berlinLat, berlinLon := 52.52, 13.40
	out := incident("a", "Berlin", "power", baseTime, false)
	out.Lat, out.Lon = &berlinLat, &berlinLon
	src := &mockSource{incidents: []domain.Incident{
		out,
		incident("b", "Kladno", "power", baseTime, false),
	}}

	sum, err := newAggregator(src).Compute(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, sum.TopLocations, 1)
	assert.Equal(t, "Kladno", sum.TopLocations[0].Name)
}

func TestCompute_LongestExcludesClosedBeforeMarker(t *testing.T) {
	freezeClock(t)
	marker := baseTime.Add(-24 * time.Hour)
	src := &mockSource{
		marker: marker,
		incidents: []domain.Incident{
			closedWithDuration("pre", "Kladno", marker.Add(-time.Hour), 500),
			closedWithDuration("post", "Beroun", marker.Add(time.Hour), 120),
			closedWithDuration("longer", "Kladno", marker.Add(2*time.Hour), 240),
		},
	}

	sum, err := newAggregator(src).Compute(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, sum.Longest, 2)
	assert.Equal(t, "longer", sum.Longest[0].ID)
	assert.Equal(t, 240, sum.Longest[0].DurationMin)
	assert.Equal(t, "post", sum.Longest[1].ID)
}

func TestCompute_LongestSkipsUnknownOrNonPositiveDuration(t *testing.T) {
	freezeClock(t)
	marker := baseTime.Add(-24 * time.Hour)
	zero := closedWithDuration("zero", "Kladno", marker.Add(time.Hour), 0)
	unknown := incident("unknown", "Kladno", "power", baseTime, true)
	detected := marker.Add(time.Hour)
	unknown.ClosedDetectedAt = &detected

	src := &mockSource{marker: marker, incidents: []domain.Incident{zero, unknown}}

	sum, err := newAggregator(src).Compute(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, sum.Longest)
}
