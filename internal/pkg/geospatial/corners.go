package geospatial

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// cornerPrecision is the number of decimals kept in a calibration string.
const cornerPrecision = 5

// FormatCorners serializes corners as "lat,lon" × 4 in the order
// top-left, top-right, bottom-right, bottom-left, each rounded to 5 decimals.
func FormatCorners(c domain.Corners) string {
	parts := make([]string, 0, 8)
	for _, p := range c.Points() {
		parts = append(parts, formatCoord(p.Lat), formatCoord(p.Lon))
	}
	return strings.Join(parts, ",")
}

// ParseCorners reads the format written by FormatCorners. Any decimal
// precision is accepted.
func ParseCorners(s string) (domain.Corners, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields) != 8 {
		return domain.Corners{}, fmt.Errorf("%w: expected 8 numbers, got %d", domain.ErrInvalidCalibrationString, len(fields))
	}
	vals, err := parseFloats(fields)
	if err != nil {
		return domain.Corners{}, err
	}
	var pts [4]domain.GeoPoint
	for i := range pts {
		pts[i] = domain.GeoPoint{Lat: vals[2*i], Lon: vals[2*i+1]}
		if err := pts[i].Validate(); err != nil {
			return domain.Corners{}, fmt.Errorf("corner %d: %w", i, err)
		}
	}
	return domain.CornersFromPoints(pts), nil
}

// RoundCorners rounds every coordinate to the calibration string precision.
func RoundCorners(c domain.Corners) domain.Corners {
	pts := c.Points()
	for i := range pts {
		pts[i] = domain.GeoPoint{Lat: roundCoord(pts[i].Lat), Lon: roundCoord(pts[i].Lon)}
	}
	return domain.CornersFromPoints(pts)
}

// RotateCorners shifts the corner assignment by k quarter turns, matching
// an image rotated by k×90°. Negative k rotates the other way.
func RotateCorners(c domain.Corners, k int) domain.Corners {
	k = ((k % 4) + 4) % 4
	pts := c.Points()
	var out [4]domain.GeoPoint
	for i := range out {
		out[i] = pts[(i+k)%4]
	}
	return domain.CornersFromPoints(out)
}

// CornersCenter returns the arithmetic mean of the four corners.
func CornersCenter(c domain.Corners) domain.GeoPoint {
	var lat, lon float64
	for _, p := range c.Points() {
		lat += p.Lat
		lon += p.Lon
	}
	return domain.GeoPoint{Lat: lat / 4, Lon: lon / 4}
}

// ValidateCorners checks every corner coordinate and rejects quads whose
// edges cross each other.
func ValidateCorners(c domain.Corners) error {
	pts := c.Points()
	var m [4]vec2
	for i, p := range pts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("corner %d: %w", i, err)
		}
		mp := ToMeters(unwrapLon(p, c.TopLeft.Lon))
		m[i] = vec2{mp.X, mp.Y}
	}
	if segmentsCross(m[0], m[1], m[2], m[3]) || segmentsCross(m[1], m[2], m[3], m[0]) {
		return fmt.Errorf("%w: corners form a self-intersecting quad", domain.ErrDegenerateCalibration)
	}
	return nil
}

// ParseThreePointCalibration reads "lng|lat|x|y" repeated three times.
func ParseThreePointCalibration(s string) ([]domain.Correspondence, error) {
	fields := strings.Split(strings.TrimSpace(s), "|")
	if len(fields) != 12 {
		return nil, fmt.Errorf("%w: expected 12 numbers, got %d", domain.ErrInvalidCalibrationString, len(fields))
	}
	vals, err := parseFloats(fields)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Correspondence, 3)
	for i := range out {
		v := vals[4*i : 4*i+4]
		out[i] = domain.Correspondence{
			Geo:   domain.GeoPoint{Lat: v[1], Lon: v[0]},
			Pixel: domain.PixelPoint{X: v[2], Y: v[3]},
		}
	}
	return out, nil
}

// ThreePointCalibrationToCorners converts a three point calibration string
// into rounded image corners.
func ThreePointCalibrationToCorners(s string, width, height int) (domain.Corners, error) {
	points, err := ParseThreePointCalibration(s)
	if err != nil {
		return domain.Corners{}, err
	}
	c, _, err := Calibrate(points, width, height)
	return c, err
}

func parseFloats(fields []string) ([]float64, error) {
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %v", domain.ErrInvalidCalibrationString, i, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func roundCoord(v float64) float64 {
	p := math.Pow10(cornerPrecision)
	return math.Round(v*p) / p
}

// formatCoord prints the shortest decimal form, keeping one fractional
// digit on whole numbers ("6.0").
func formatCoord(v float64) string {
	s := strconv.FormatFloat(roundCoord(v), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func orientation(a, b, c vec2) float64 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

// segmentsCross reports whether segments ab and cd properly intersect.
func segmentsCross(a, b, c, d vec2) bool {
	o1, o2 := orientation(a, b, c), orientation(a, b, d)
	o3, o4 := orientation(c, d, a), orientation(c, d, b)
	return o1*o2 < 0 && o3*o4 < 0
}
