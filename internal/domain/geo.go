package domain

// Region is a latitude/longitude rectangle bounding the operating area.
// Coordinates outside it are rejected wherever they appear: geocoding
// results, cache entries, and persisted records.
type Region struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// CzechRegion bounds the Czech Republic with a small margin.
var CzechRegion = Region{
	MinLat: 48.5,
	MaxLat: 51.2,
	MinLon: 12.0,
	MaxLon: 18.9,
}

// Contains reports whether the coordinate pair lies inside the rectangle.
func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}
