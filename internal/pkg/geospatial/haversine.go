package geospatial

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used for all distance math.
const EarthRadiusMeters = 6371000.0

var (
	// ErrInvalidCoordinate is returned for out-of-range or non-finite degrees.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrInvalidRadius is returned for a negative or non-finite radius.
	ErrInvalidRadius = errors.New("invalid radius")
)

// Point is a WGS 84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// ValidateCoordinate checks lat is in [-90, 90] and lon in [-180, 180].
func ValidateCoordinate(lat, lon float64) error {
	if !finite(lat) || !finite(lon) {
		return fmt.Errorf("%w: non-finite value (%v, %v)", ErrInvalidCoordinate, lat, lon)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, lon)
	}
	return nil
}

// HaversineDistanceMeters returns the great-circle distance in meters between two points.
func HaversineDistanceMeters(lat1, lon1, lat2, lon2 float64) (float64, error) {
	if err := ValidateCoordinate(lat1, lon1); err != nil {
		return 0, err
	}
	if err := ValidateCoordinate(lat2, lon2); err != nil {
		return 0, err
	}
	return Haversine(lat1, lon1, lat2, lon2), nil
}

// Haversine calculates the great-circle distance in meters between two points.
// Inputs are not validated; use HaversineDistanceMeters for untrusted values.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// IsWithinRadius reports whether user lies within radiusMeters of center.
// The boundary is inclusive.
func IsWithinRadius(user, center Point, radiusMeters float64) (bool, error) {
	if !finite(radiusMeters) || radiusMeters < 0 {
		return false, fmt.Errorf("%w: %v", ErrInvalidRadius, radiusMeters)
	}
	d, err := HaversineDistanceMeters(user.Lat, user.Lon, center.Lat, center.Lon)
	if err != nil {
		return false, err
	}
	return d <= radiusMeters, nil
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	minLat, maxLat = math.Max(lat-latDelta, -90), math.Min(lat+latDelta, 90)
	minLon, maxLon = lon-lonDelta, lon+lonDelta
	// Near the poles the longitude span degenerates; widen to the whole band.
	if math.IsInf(lonDelta, 0) || math.IsNaN(lonDelta) || minLon < -180 || maxLon > 180 {
		minLon, maxLon = -180, 180
	}
	return minLat, minLon, maxLat, maxLon
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
