package geospatial

import (
	"fmt"
	"math"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// Affine holds the coefficients [a b c d e f] of
//
//	mx = a·x + b·y + c
//	my = d·x + e·y + f
//
// mapping pixels to planar meters.
type Affine [6]float64

// SolveAffine fits the affine transform through three correspondences by
// Cramer's rule, once per output axis. Collinear pixel or meter triples are
// rejected with ErrDegenerateCalibration.
func SolveAffine(pixels [3]domain.PixelPoint, meters [3]domain.MeterPoint) (Affine, error) {
	src := []vec2{{pixels[0].X, pixels[0].Y}, {pixels[1].X, pixels[1].Y}, {pixels[2].X, pixels[2].Y}}
	dst := []vec2{{meters[0].X, meters[0].Y}, {meters[1].X, meters[1].Y}, {meters[2].X, meters[2].Y}}

	det, err := triangleDet(src)
	if err != nil {
		return Affine{}, fmt.Errorf("pixel points: %w", err)
	}
	if _, err := triangleDet(dst); err != nil {
		return Affine{}, fmt.Errorf("geographic points: %w", err)
	}

	a, b, c := solveAxis(src, dst[0].x, dst[1].x, dst[2].x, det)
	d, e, f := solveAxis(src, dst[0].y, dst[1].y, dst[2].y, det)
	out := Affine{a, b, c, d, e, f}
	if !finite(out[:]...) {
		return Affine{}, fmt.Errorf("%w: coefficients are not finite", domain.ErrDegenerateCalibration)
	}
	return out, nil
}

// Apply maps a pixel to planar meters.
func (t Affine) Apply(p domain.PixelPoint) domain.MeterPoint {
	return domain.MeterPoint{
		X: t[0]*p.X + t[1]*p.Y + t[2],
		Y: t[3]*p.X + t[4]*p.Y + t[5],
	}
}

// Invert maps planar meters back to a pixel.
func (t Affine) Invert(m domain.MeterPoint) (domain.PixelPoint, error) {
	det := t[0]*t[4] - t[1]*t[3]
	if det == 0 || !finite(det) {
		return domain.PixelPoint{}, fmt.Errorf("%w: affine transform is singular", domain.ErrDegenerateCalibration)
	}
	dx, dy := m.X-t[2], m.Y-t[5]
	return domain.PixelPoint{
		X: (t[4]*dx - t[1]*dy) / det,
		Y: (t[0]*dy - t[3]*dx) / det,
	}, nil
}

// Matrix returns the transform as a homogeneous 3x3 matrix.
func (t Affine) Matrix() Matrix3 {
	return Matrix3{t[0], t[1], t[2], t[3], t[4], t[5], 0, 0, 1}
}

// triangleDet returns twice the signed area of the triangle, failing when
// it is negligible relative to the triangle's extent.
func triangleDet(p []vec2) (float64, error) {
	det := (p[0].x-p[2].x)*(p[1].y-p[2].y) - (p[1].x-p[2].x)*(p[0].y-p[2].y)
	tol := degenerateTolerance * sq(extent(p))
	if !(math.Abs(det) > tol) {
		return 0, fmt.Errorf("%w: points are collinear", domain.ErrDegenerateCalibration)
	}
	return det, nil
}

// solveAxis solves r·α + s·β + γ = t for the three points.
func solveAxis(p []vec2, t1, t2, t3, det float64) (alpha, beta, gamma float64) {
	r13, r23 := p[0].x-p[2].x, p[1].x-p[2].x
	s13, s23 := p[0].y-p[2].y, p[1].y-p[2].y
	t13, t23 := t1-t3, t2-t3

	alpha = (t13*s23 - t23*s13) / det
	beta = (r13*t23 - r23*t13) / det
	gamma = t3 - alpha*p[2].x - beta*p[2].y
	return alpha, beta, gamma
}
