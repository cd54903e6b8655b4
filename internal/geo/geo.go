package geo

import (
	"errors"
	"math"
)

// earthRadiusMeters is the mean Earth radius used for great-circle distance.
const earthRadiusMeters = 6371000.0

var ErrInvalidCoordinates = errors.New("coordinates out of range")

// Point is a WGS84 coordinate pair.
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// ValidatePoint checks that the point lies in the valid coordinate ranges.
func ValidatePoint(p Point) error {
	if p.Longitude < -180 || p.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return ErrInvalidCoordinates
	}
	return nil
}

// Distance returns the great-circle distance between two points in meters,
// using the haversine formula.
func Distance(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
