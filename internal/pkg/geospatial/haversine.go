package geospatial

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// earthDiameter matches the mean diameter used for stored route distances.
const earthDiameter = 12756274.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthDiameter * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// PathLength sums the segment lengths of a polyline in meters.
func PathLength(points []domain.GeoPoint) float64 {
	var d float64
	for i := 1; i < len(points); i++ {
		d += Haversine(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}
	return d
}

// AngularDistance returns the s2 great-circle distance in meters, for callers
// that already work with s2 cells.
func AngularDistance(a, b domain.GeoPoint) float64 {
	ll1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	ll2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return ll1.Distance(ll2).Radians() * earthDiameter / 2
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
