package domain

import (
	"fmt"
	"math"
)

// GeoPoint represents a geographic coordinate (WGS 84) in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports ErrInvalidCoordinate when the point is outside the
// domain of the spherical Mercator projection.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: non-finite value (%v, %v)", ErrInvalidCoordinate, p.Lat, p.Lon)
	}
	if p.Lat <= -90 || p.Lat >= 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, p.Lat)
	}
	if p.Lon <= -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, p.Lon)
	}
	return nil
}

// PixelPoint is a position on a raster image, origin at the top-left corner.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MeterPoint is a position in spherical Mercator meters.
type MeterPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Correspondence ties an image pixel to the geographic point it depicts.
type Correspondence struct {
	Pixel PixelPoint `json:"pixel"`
	Geo   GeoPoint   `json:"geo"`
}

// Corners holds the geographic coordinates of the four corners of a raster
// image, in the order top-left, top-right, bottom-right, bottom-left.
type Corners struct {
	TopLeft     GeoPoint `json:"top_left"`
	TopRight    GeoPoint `json:"top_right"`
	BottomRight GeoPoint `json:"bottom_right"`
	BottomLeft  GeoPoint `json:"bottom_left"`
}

// Points returns the corners in calibration order.
func (c Corners) Points() [4]GeoPoint {
	return [4]GeoPoint{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
}

// CornersFromPoints is the inverse of Corners.Points.
func CornersFromPoints(p [4]GeoPoint) Corners {
	return Corners{TopLeft: p[0], TopRight: p[1], BottomRight: p[2], BottomLeft: p[3]}
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Extend grows b to include p.
func (b Bounds) Extend(p GeoPoint) Bounds {
	return Bounds{
		MinLat: math.Min(b.MinLat, p.Lat),
		MinLon: math.Min(b.MinLon, p.Lon),
		MaxLat: math.Max(b.MaxLat, p.Lat),
		MaxLon: math.Max(b.MaxLon, p.Lon),
	}
}

// BoundsOf returns the bounding box of a non-empty set of points.
func BoundsOf(points ...GeoPoint) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{MinLat: points[0].Lat, MinLon: points[0].Lon, MaxLat: points[0].Lat, MaxLon: points[0].Lon}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}
	return b
}
