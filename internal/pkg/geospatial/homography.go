package geospatial

import (
	"fmt"
	"math"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// degenerateTolerance bounds twice the area of any triangle formed by the
// reference points, relative to the squared extent of the point set.
const degenerateTolerance = 1e-9

type vec2 struct{ x, y float64 }

// Homography is an exact projective fit between four pixel points and four
// planar points. Both point sets are shifted to their centroid before
// solving so that Mercator offsets of millions of meters do not swamp the
// conditioning of the matrices.
type Homography struct {
	toMeters    Matrix3
	toPixels    Matrix3
	pixelOrigin vec2
	meterOrigin vec2
}

// SolveHomography computes the pixel → meters homography that reproduces
// the four correspondences. No three points on either side may be collinear.
func SolveHomography(pixels [4]domain.PixelPoint, meters [4]domain.MeterPoint) (*Homography, error) {
	var src, dst [4]vec2
	for i := range pixels {
		src[i] = vec2{pixels[i].X, pixels[i].Y}
		dst[i] = vec2{meters[i].X, meters[i].Y}
	}
	so, dO := centroid(src[:]), centroid(dst[:])
	for i := range src {
		src[i] = vec2{src[i].x - so.x, src[i].y - so.y}
		dst[i] = vec2{dst[i].x - dO.x, dst[i].y - dO.y}
	}

	s, err := basisToPoints(src)
	if err != nil {
		return nil, fmt.Errorf("pixel points: %w", err)
	}
	d, err := basisToPoints(dst)
	if err != nil {
		return nil, fmt.Errorf("geographic points: %w", err)
	}

	fwd := d.Mul(s.Adjugate())
	if !fwd.finite() {
		return nil, fmt.Errorf("%w: matrix is not finite", domain.ErrDegenerateCalibration)
	}
	inv, err := fwd.Inverse()
	if err != nil {
		return nil, err
	}
	return &Homography{toMeters: fwd, toPixels: inv, pixelOrigin: so, meterOrigin: dO}, nil
}

// ToMeters maps a pixel to planar meters.
func (h *Homography) ToMeters(p domain.PixelPoint) (domain.MeterPoint, error) {
	x, y := Project(h.toMeters, p.X-h.pixelOrigin.x, p.Y-h.pixelOrigin.y)
	if !finite(x, y) {
		return domain.MeterPoint{}, fmt.Errorf("%w: pixel (%v, %v) maps to infinity", domain.ErrDegenerateCalibration, p.X, p.Y)
	}
	return domain.MeterPoint{X: x + h.meterOrigin.x, Y: y + h.meterOrigin.y}, nil
}

// ToPixels maps planar meters back to a pixel.
func (h *Homography) ToPixels(m domain.MeterPoint) (domain.PixelPoint, error) {
	x, y := Project(h.toPixels, m.X-h.meterOrigin.x, m.Y-h.meterOrigin.y)
	if !finite(x, y) {
		return domain.PixelPoint{}, fmt.Errorf("%w: point (%v, %v) maps to infinity", domain.ErrDegenerateCalibration, m.X, m.Y)
	}
	return domain.PixelPoint{X: x + h.pixelOrigin.x, Y: y + h.pixelOrigin.y}, nil
}

// Matrix returns the single pixel → meters matrix usable with Project.
func (h *Homography) Matrix() Matrix3 {
	return translation(h.meterOrigin.x, h.meterOrigin.y).
		Mul(h.toMeters).
		Mul(translation(-h.pixelOrigin.x, -h.pixelOrigin.y))
}

// basisToPoints returns the matrix mapping the projective basis
// (1,0,0), (0,1,0), (0,0,1), (1,1,1) onto the four points.
func basisToPoints(p [4]vec2) (Matrix3, error) {
	tol := degenerateTolerance * sq(extent(p[:]))
	if tol == 0 {
		return Matrix3{}, fmt.Errorf("%w: points coincide", domain.ErrDegenerateCalibration)
	}

	m := Matrix3{
		p[0].x, p[1].x, p[2].x,
		p[0].y, p[1].y, p[2].y,
		1, 1, 1,
	}
	if math.Abs(m.Det()) <= tol {
		return Matrix3{}, fmt.Errorf("%w: first three points are collinear", domain.ErrDegenerateCalibration)
	}

	// Each weight is twice the signed area of the fourth point with two of
	// the others; a zero weight means those three are collinear.
	v := m.Adjugate().MulVec([3]float64{p[3].x, p[3].y, 1})
	for i, w := range v {
		if math.Abs(w) <= tol {
			return Matrix3{}, fmt.Errorf("%w: fourth point is collinear with two others (weight %d)", domain.ErrDegenerateCalibration, i)
		}
	}

	return m.Mul(Matrix3{
		v[0], 0, 0,
		0, v[1], 0,
		0, 0, v[2],
	}), nil
}

func centroid(ps []vec2) vec2 {
	var c vec2
	for _, p := range ps {
		c.x += p.x
		c.y += p.y
	}
	n := float64(len(ps))
	return vec2{c.x / n, c.y / n}
}

// extent is the larger side of the bounding box of ps.
func extent(ps []vec2) float64 {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range ps {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	return math.Max(maxX-minX, maxY-minY)
}

func sq(v float64) float64 { return v * v }

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
