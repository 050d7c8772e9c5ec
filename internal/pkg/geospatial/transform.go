package geospatial

import (
	"errors"
	"fmt"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// Method names the solver behind a Transform.
type Method string

const (
	MethodAffine     Method = "affine"
	MethodHomography Method = "homography"
)

// ErrPointCount is returned when a calibration has neither 3 nor 4 points.
var ErrPointCount = errors.New("calibration needs 3 or 4 reference points")

// Transform maps image pixels to geographic coordinates and back. It is
// immutable after construction and safe for concurrent use.
type Transform struct {
	method     Method
	affine     Affine
	homography *Homography
	// refLon anchors longitudes so maps crossing the antimeridian stay continuous.
	refLon float64
}

// NewTransform builds a transform from 3 (affine) or 4 (homography)
// correspondences.
func NewTransform(points []domain.Correspondence) (*Transform, error) {
	for i, p := range points {
		if err := p.Geo.Validate(); err != nil {
			return nil, fmt.Errorf("reference point %d: %w", i, err)
		}
		if !finite(p.Pixel.X, p.Pixel.Y) {
			return nil, fmt.Errorf("reference point %d: %w: non-finite pixel", i, domain.ErrDegenerateCalibration)
		}
	}

	var ref float64
	if len(points) > 0 {
		ref = points[0].Geo.Lon
	}

	switch len(points) {
	case 3:
		var px [3]domain.PixelPoint
		var m [3]domain.MeterPoint
		for i, p := range points {
			px[i], m[i] = p.Pixel, ToMeters(unwrapLon(p.Geo, ref))
		}
		a, err := SolveAffine(px, m)
		if err != nil {
			return nil, err
		}
		return &Transform{method: MethodAffine, affine: a, refLon: ref}, nil
	case 4:
		var px [4]domain.PixelPoint
		var m [4]domain.MeterPoint
		for i, p := range points {
			px[i], m[i] = p.Pixel, ToMeters(unwrapLon(p.Geo, ref))
		}
		h, err := SolveHomography(px, m)
		if err != nil {
			return nil, err
		}
		return &Transform{method: MethodHomography, homography: h, refLon: ref}, nil
	default:
		return nil, fmt.Errorf("%w: got %d", ErrPointCount, len(points))
	}
}

// NewCornerTransform builds the homography of a calibrated map from its
// corners and image size.
func NewCornerTransform(c domain.Corners, width, height int) (*Transform, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", domain.ErrDegenerateCalibration, width, height)
	}
	if err := ValidateCorners(c); err != nil {
		return nil, err
	}
	geo := c.Points()
	px := imageCorners(width, height)
	points := make([]domain.Correspondence, 4)
	for i := range points {
		points[i] = domain.Correspondence{Pixel: px[i], Geo: geo[i]}
	}
	return NewTransform(points)
}

// Method reports which solver backs the transform.
func (t *Transform) Method() Method { return t.method }

// Matrix returns the pixel → meters matrix.
func (t *Transform) Matrix() Matrix3 {
	if t.method == MethodAffine {
		return t.affine.Matrix()
	}
	return t.homography.Matrix()
}

// Forward maps an image pixel to a geographic coordinate.
func (t *Transform) Forward(p domain.PixelPoint) (domain.GeoPoint, error) {
	m, err := t.toMeters(p)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	g := ToLatLng(m)
	if !finite(g.Lat, g.Lon) {
		return domain.GeoPoint{}, fmt.Errorf("%w: pixel (%v, %v) has no geographic position", domain.ErrDegenerateCalibration, p.X, p.Y)
	}
	return g, nil
}

// Inverse maps a geographic coordinate to an image pixel.
func (t *Transform) Inverse(g domain.GeoPoint) (domain.PixelPoint, error) {
	if err := g.Validate(); err != nil {
		return domain.PixelPoint{}, err
	}
	m := ToMeters(unwrapLon(g, t.refLon))
	if t.method == MethodAffine {
		return t.affine.Invert(m)
	}
	return t.homography.ToPixels(m)
}

// Corners returns the geographic position of the image corners.
func (t *Transform) Corners(width, height int) (domain.Corners, error) {
	var out [4]domain.GeoPoint
	for i, p := range imageCorners(width, height) {
		g, err := t.Forward(p)
		if err != nil {
			return domain.Corners{}, fmt.Errorf("corner %d: %w", i, err)
		}
		out[i] = g
	}
	return domain.CornersFromPoints(out), nil
}

func (t *Transform) toMeters(p domain.PixelPoint) (domain.MeterPoint, error) {
	if t.method == MethodAffine {
		return t.affine.Apply(p), nil
	}
	return t.homography.ToMeters(p)
}

// Calibrate solves the reference points and returns the image corners,
// rounded to the precision of the calibration string.
func Calibrate(points []domain.Correspondence, width, height int) (domain.Corners, Method, error) {
	if width <= 0 || height <= 0 {
		return domain.Corners{}, "", fmt.Errorf("%w: image size %dx%d", domain.ErrDegenerateCalibration, width, height)
	}
	t, err := NewTransform(points)
	if err != nil {
		return domain.Corners{}, "", err
	}
	c, err := t.Corners(width, height)
	if err != nil {
		return domain.Corners{}, "", err
	}
	c = RoundCorners(c)
	if err := ValidateCorners(c); err != nil {
		return domain.Corners{}, "", err
	}
	return c, t.method, nil
}

func imageCorners(width, height int) [4]domain.PixelPoint {
	w, h := float64(width), float64(height)
	return [4]domain.PixelPoint{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}
