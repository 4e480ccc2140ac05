package domain

import "github.com/samirrijal/geoquest/internal/pkg/geospatial"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the point is a finite, in-range decimal-degree pair.
func (p GeoPoint) Validate() error {
	return geospatial.ValidateCoordinate(p.Lat, p.Lon)
}

func (p GeoPoint) point() geospatial.Point {
	return geospatial.Point{Lat: p.Lat, Lon: p.Lon}
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether p falls inside the box (edges included).
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// BoundsAround returns the prefilter box for a radius search around center.
func BoundsAround(center GeoPoint, radiusMeters float64) Bounds {
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(center.Lat, center.Lon, radiusMeters)
	return Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}

// DistanceMeters returns the Haversine distance between two validated points.
func DistanceMeters(a, b GeoPoint) (float64, error) {
	return geospatial.HaversineDistanceMeters(a.Lat, a.Lon, b.Lat, b.Lon)
}

// WithinRadius reports whether user is within radiusMeters of center (inclusive).
func WithinRadius(user, center GeoPoint, radiusMeters float64) (bool, error) {
	return geospatial.IsWithinRadius(user.point(), center.point(), radiusMeters)
}
