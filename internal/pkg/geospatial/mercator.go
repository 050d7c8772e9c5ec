package geospatial

import (
	"math"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// EarthRadius is the spherical Web-Mercator radius in meters.
const EarthRadius = 6378137.0

// ToMeters projects a geographic point to spherical Mercator meters.
// The result is infinite at the poles; callers validate input first.
func ToMeters(p domain.GeoPoint) domain.MeterPoint {
	return domain.MeterPoint{
		X: toRad(p.Lon) * EarthRadius,
		Y: EarthRadius * math.Log(math.Tan(math.Pi/4+toRad(p.Lat)/2)),
	}
}

// ToLatLng is the inverse of ToMeters. The longitude is wrapped into
// (-180, 180], so points east of the antimeridian come back negative.
func ToLatLng(m domain.MeterPoint) domain.GeoPoint {
	return domain.GeoPoint{
		Lat: toDeg(2*math.Atan(math.Exp(m.Y/EarthRadius)) - math.Pi/2),
		Lon: NormalizeLon(toDeg(m.X / EarthRadius)),
	}
}

// lonSlack absorbs rounding when a longitude of exactly 180 goes through
// radians and back.
const lonSlack = 1e-9

// NormalizeLon wraps a longitude into (-180, 180].
func NormalizeLon(lon float64) float64 {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return lon
	}
	lon = math.Mod(lon, 360)
	switch {
	case lon > 180+lonSlack:
		lon -= 360
	case lon > 180:
		lon = 180
	case lon <= -180:
		lon += 360
	}
	return lon
}

// unwrapLon shifts lon by whole turns so it lies within 180 degrees of ref.
// Reference points on both sides of the antimeridian then project to one
// continuous strip of Mercator meters.
func unwrapLon(p domain.GeoPoint, ref float64) domain.GeoPoint {
	for p.Lon-ref > 180 {
		p.Lon -= 360
	}
	for p.Lon-ref < -180 {
		p.Lon += 360
	}
	return p
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
