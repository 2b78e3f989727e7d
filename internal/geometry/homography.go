package geometry

import "math"

// singularEpsilon is the determinant magnitude below which a matrix is
// treated as singular.
const singularEpsilon = 1e-6

// Homography is a 3x3 projective transform:
//
//	| H11 H12 H13 |
//	| H21 H22 H23 |
//	| H31 H32 H33 |
//
// It maps (x, y, 1) to homogeneous coordinates which are divided by the
// resulting w to obtain the output point.
type Homography struct {
	H11, H12, H13 float64
	H21, H22, H23 float64
	H31, H32, H33 float64
}

// IdentityHomography returns the identity projective transform.
func IdentityHomography() Homography {
	return Homography{H11: 1, H22: 1, H33: 1}
}

// HomographyFromSlice builds a homography from a row-major 9-element
// array.
func HomographyFromSlice(h [9]float64) Homography {
	return Homography{
		H11: h[0], H12: h[1], H13: h[2],
		H21: h[3], H22: h[4], H23: h[5],
		H31: h[6], H32: h[7], H33: h[8],
	}
}

// Slice returns the coefficients in row-major order.
func (h Homography) Slice() [9]float64 {
	return [9]float64{h.H11, h.H12, h.H13, h.H21, h.H22, h.H23, h.H31, h.H32, h.H33}
}

// Determinant returns the determinant of the full 3x3 matrix.
func (h Homography) Determinant() float64 {
	return h.H11*(h.H22*h.H33-h.H23*h.H32) -
		h.H12*(h.H21*h.H33-h.H23*h.H31) +
		h.H13*(h.H21*h.H32-h.H22*h.H31)
}

// IsValid reports whether the matrix is usable, i.e. non-singular
// within epsilon. A singular homography must never be applied to an
// image.
func (h Homography) IsValid() bool {
	return math.Abs(h.Determinant()) > singularEpsilon
}

// TransformPoint projects (x, y, 1) through the matrix and performs the
// projective divide. When the homogeneous w is near zero the result is
// NaN or Inf rather than a panic; callers must check with math.IsNaN /
// math.IsInf.
func (h Homography) TransformPoint(x, y float64) (float64, float64) {
	w := h.H31*x + h.H32*y + h.H33
	px := (h.H11*x + h.H12*y + h.H13) / w
	py := (h.H21*x + h.H22*y + h.H23) / w
	return px, py
}

// ApproximateScale returns the geometric-mean scale derived from the
// upper-left 2x2 submatrix, sqrt(|H11*H22 - H12*H21|). Like the affine
// variant this is a heuristic rather than a true decomposition;
// downstream stability thresholds are tuned against it, so keep it.
func (h Homography) ApproximateScale() float64 {
	return math.Sqrt(math.Abs(h.H11*h.H22 - h.H12*h.H21))
}

// ApproximateRotationDegrees estimates the in-plane rotation from the
// first column of the linear submatrix, in degrees. Heuristic, same
// caveat as ApproximateScale.
func (h Homography) ApproximateRotationDegrees() float64 {
	return math.Atan2(h.H21, h.H11) * 180 / math.Pi
}

// BlendWithIdentity linearly interpolates all nine coefficients from
// the identity matrix toward h. t=0 returns the identity, t=1 returns
// h unchanged; values in between keep a fraction t of the transform.
// The landscape pipeline uses this to soften an unstable homography
// instead of discarding it.
func (h Homography) BlendWithIdentity(t float64) Homography {
	if t <= 0 {
		return IdentityHomography()
	}
	if t >= 1 {
		return h
	}
	id := IdentityHomography()
	lerp := func(a, b float64) float64 { return a + (b-a)*t }
	return Homography{
		H11: lerp(id.H11, h.H11), H12: lerp(id.H12, h.H12), H13: lerp(id.H13, h.H13),
		H21: lerp(id.H21, h.H21), H22: lerp(id.H22, h.H22), H23: lerp(id.H23, h.H23),
		H31: lerp(id.H31, h.H31), H32: lerp(id.H32, h.H32), H33: lerp(id.H33, h.H33),
	}
}

// Multiply returns the composition h2*h, the transform that applies h
// first and h2 second.
func (h Homography) Multiply(h2 Homography) Homography {
	return Homography{
		H11: h2.H11*h.H11 + h2.H12*h.H21 + h2.H13*h.H31,
		H12: h2.H11*h.H12 + h2.H12*h.H22 + h2.H13*h.H32,
		H13: h2.H11*h.H13 + h2.H12*h.H23 + h2.H13*h.H33,
		H21: h2.H21*h.H11 + h2.H22*h.H21 + h2.H23*h.H31,
		H22: h2.H21*h.H12 + h2.H22*h.H22 + h2.H23*h.H32,
		H23: h2.H21*h.H13 + h2.H22*h.H23 + h2.H23*h.H33,
		H31: h2.H31*h.H11 + h2.H32*h.H21 + h2.H33*h.H31,
		H32: h2.H31*h.H12 + h2.H32*h.H22 + h2.H33*h.H32,
		H33: h2.H31*h.H13 + h2.H32*h.H23 + h2.H33*h.H33,
	}
}

// Invert returns the inverse homography and false if the matrix is
// singular.
func (h Homography) Invert() (Homography, bool) {
	det := h.Determinant()
	if math.Abs(det) < singularEpsilon {
		return Homography{}, false
	}
	inv := Homography{
		H11: (h.H22*h.H33 - h.H23*h.H32) / det,
		H12: (h.H13*h.H32 - h.H12*h.H33) / det,
		H13: (h.H12*h.H23 - h.H13*h.H22) / det,
		H21: (h.H23*h.H31 - h.H21*h.H33) / det,
		H22: (h.H11*h.H33 - h.H13*h.H31) / det,
		H23: (h.H13*h.H21 - h.H11*h.H23) / det,
		H31: (h.H21*h.H32 - h.H22*h.H31) / det,
		H32: (h.H12*h.H31 - h.H11*h.H32) / det,
		H33: (h.H11*h.H22 - h.H12*h.H21) / det,
	}
	return inv, true
}

// ComputeHomography computes the 3x3 matrix H mapping p[i] -> q[i] for
// exactly four correspondences, with H33 fixed to 1. Returns false when
// the 8x8 system is singular (collinear or repeated points).
func ComputeHomography(p, q [4]Point) (Homography, bool) {
	// Build the 8x8 system A*h = b for the 8 unknowns (H11..H32).
	var a [8][8]float64
	var b [8]float64
	for i := range 4 {
		X, Y := p[i].X, p[i].Y
		x, y := q[i].X, q[i].Y
		r := 2 * i
		// x' = (H11 X + H12 Y + H13)/(H31 X + H32 Y + 1)
		a[r][0] = X
		a[r][1] = Y
		a[r][2] = 1
		a[r][6] = -X * x
		a[r][7] = -Y * x
		b[r] = x

		// y' = (H21 X + H22 Y + H23)/(H31 X + H32 Y + 1)
		a[r+1][3] = X
		a[r+1][4] = Y
		a[r+1][5] = 1
		a[r+1][6] = -X * y
		a[r+1][7] = -Y * y
		b[r+1] = y
	}

	h, ok := solve8x8(a, b)
	if !ok {
		return Homography{}, false
	}
	return HomographyFromSlice([9]float64{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}), true
}

func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	matrix := a
	vector := b

	// Forward elimination with partial pivoting.
	for i := range 8 {
		if !pivotAndNormalize(&matrix, &vector, i) {
			return [8]float64{}, false
		}
		eliminateColumn(&matrix, &vector, i)
	}

	return vector, true
}

func pivotAndNormalize(matrix *[8][8]float64, vector *[8]float64, col int) bool {
	pivotRow := findPivotRow(*matrix, col)
	if pivotRow == -1 {
		return false
	}
	if pivotRow != col {
		matrix[col], matrix[pivotRow] = matrix[pivotRow], matrix[col]
		vector[col], vector[pivotRow] = vector[pivotRow], vector[col]
	}
	div := matrix[col][col]
	for c := col; c < 8; c++ {
		matrix[col][c] /= div
	}
	vector[col] /= div
	return true
}

func findPivotRow(matrix [8][8]float64, col int) int {
	maxAbs := math.Abs(matrix[col][col])
	pivotRow := col
	for r := col + 1; r < 8; r++ {
		if math.Abs(matrix[r][col]) > maxAbs {
			maxAbs = math.Abs(matrix[r][col])
			pivotRow = r
		}
	}
	if maxAbs == 0 {
		return -1
	}
	return pivotRow
}

func eliminateColumn(matrix *[8][8]float64, vector *[8]float64, col int) {
	for r := range 8 {
		if r == col {
			continue
		}
		factor := matrix[r][col]
		if factor == 0 {
			continue
		}
		for c := col; c < 8; c++ {
			matrix[r][c] -= factor * matrix[col][c]
		}
		vector[r] -= factor * vector[col]
	}
}
