package geospatial

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/samirrijal/mapdump/internal/core/domain"
)

// Matrix3 is a row-major 3x3 matrix acting on homogeneous 2D coordinates.
type Matrix3 [9]float64

// Identity3 is the 3x3 identity matrix.
var Identity3 = Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Adjugate returns the transpose of the cofactor matrix. For an invertible
// matrix it equals the inverse scaled by the determinant, which is all a
// projective transform needs.
func (m Matrix3) Adjugate() Matrix3 {
	return Matrix3{
		m[4]*m[8] - m[5]*m[7], m[2]*m[7] - m[1]*m[8], m[1]*m[5] - m[2]*m[4],
		m[5]*m[6] - m[3]*m[8], m[0]*m[8] - m[2]*m[6], m[2]*m[3] - m[0]*m[5],
		m[3]*m[7] - m[4]*m[6], m[1]*m[6] - m[0]*m[7], m[0]*m[4] - m[1]*m[3],
	}
}

// Mul returns m·b.
func (m Matrix3) Mul(b Matrix3) Matrix3 {
	var c Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				c[3*i+j] += m[3*i+k] * b[3*k+j]
			}
		}
	}
	return c
}

// MulVec returns m·v.
func (m Matrix3) MulVec(v [3]float64) [3]float64 {
	return [3]float64{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// Det returns the determinant.
func (m Matrix3) Det() float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) - m[1]*(m[3]*m[8]-m[5]*m[6]) + m[2]*(m[3]*m[7]-m[4]*m[6])
}

// Inverse returns the matrix inverse. Singular or numerically singular
// matrices report ErrDegenerateCalibration.
func (m Matrix3) Inverse() (Matrix3, error) {
	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(3, 3, m[:])); err != nil {
		return Matrix3{}, fmt.Errorf("%w: %v", domain.ErrDegenerateCalibration, err)
	}
	var out Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[3*i+j] = inv.At(i, j)
		}
	}
	if !out.finite() {
		return Matrix3{}, fmt.Errorf("%w: inverse is not finite", domain.ErrDegenerateCalibration)
	}
	return out, nil
}

// Project applies m to (x, y, 1) and divides by the resulting w.
func Project(m Matrix3, x, y float64) (float64, float64) {
	v := m.MulVec([3]float64{x, y, 1})
	return v[0] / v[2], v[1] / v[2]
}

func (m Matrix3) finite() bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func translation(tx, ty float64) Matrix3 {
	return Matrix3{1, 0, tx, 0, 1, ty, 0, 0, 1}
}
