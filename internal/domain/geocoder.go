package domain

import "context"

// GeoCandidate is one result from a geocoding provider.
type GeoCandidate struct {
	Lat float64
	Lon float64
}

// Geocoder resolves a free-text place query, scoped to the operating country,
// into zero or more coordinate candidates. A transport failure or an empty
// candidate list both mean "unresolved this round" to callers.
type Geocoder interface {
	Geocode(ctx context.Context, query string) ([]GeoCandidate, error)
}
