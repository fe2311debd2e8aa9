// Package geo provides great-circle distance math and cached
// city-to-centroid resolution for the event filter pipeline.
package geo

import (
	"math"

	"github.com/gigmap/gigmap/pkg/domain"
)

// earthRadiusMiles is the mean Earth radius used for all distance math.
const earthRadiusMiles = 3959.0

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceMiles returns the Haversine great-circle distance between two
// points in miles. Callers are expected to check GeoPoint.Valid first;
// invalid inputs produce NaN, which no comparison treats as "within".
func DistanceMiles(a, b domain.GeoPoint) float64 {
	lat1 := degToRad(a.Latitude)
	lat2 := degToRad(b.Latitude)
	dLat := degToRad(b.Latitude - a.Latitude)
	dLon := degToRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMiles * c
}

// WithinMiles reports whether b lies within radius miles of a. Either
// point being invalid fails the test rather than producing an error.
func WithinMiles(a, b domain.GeoPoint, radius float64) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return DistanceMiles(a, b) <= radius
}

// BoundsAround returns a bounding box approximating a circle of the
// given radius around center. Longitude degrees shrink with latitude;
// the box is a coarse pre-filter, not an exact circle.
func BoundsAround(center domain.GeoPoint, radiusMiles float64) domain.BoundingBox {
	latDelta := radiusMiles / 69.0
	lonScale := math.Cos(degToRad(center.Latitude))
	if lonScale < 0.01 {
		lonScale = 0.01
	}
	lonDelta := radiusMiles / (69.0 * lonScale)

	return domain.BoundingBox{
		North: center.Latitude + latDelta,
		South: center.Latitude - latDelta,
		East:  center.Longitude + lonDelta,
		West:  center.Longitude - lonDelta,
	}
}
