package geometry

import "math"

// AffineMatrix is a 2x3 transform mapping source pixel coordinates to
// output pixel coordinates:
//
//	x' = ScaleX*x + SkewX*y + TranslateX
//	y' = SkewY*x + ScaleY*y + TranslateY
type AffineMatrix struct {
	ScaleX     float64 `json:"scale_x"`
	SkewX      float64 `json:"skew_x"`
	TranslateX float64 `json:"translate_x"`
	SkewY      float64 `json:"skew_y"`
	ScaleY     float64 `json:"scale_y"`
	TranslateY float64 `json:"translate_y"`
}

// IdentityAffine returns the identity transform.
func IdentityAffine() AffineMatrix {
	return AffineMatrix{ScaleX: 1, ScaleY: 1}
}

// NewRotation returns a rotation by the given angle in radians about
// the origin. Positive angles rotate counter-clockwise in image
// coordinates (y down).
func NewRotation(radians float64) AffineMatrix {
	c, s := math.Cos(radians), math.Sin(radians)
	return AffineMatrix{ScaleX: c, SkewX: -s, SkewY: s, ScaleY: c}
}

// NewRotationAbout returns a rotation by radians about (cx, cy).
func NewRotationAbout(radians, cx, cy float64) AffineMatrix {
	c, s := math.Cos(radians), math.Sin(radians)
	return AffineMatrix{
		ScaleX:     c,
		SkewX:      -s,
		TranslateX: cx - c*cx + s*cy,
		SkewY:      s,
		ScaleY:     c,
		TranslateY: cy - s*cx - c*cy,
	}
}

// NewScale returns a uniform scale about the origin.
func NewScale(factor float64) AffineMatrix {
	return AffineMatrix{ScaleX: factor, ScaleY: factor}
}

// NewScaleAbout returns a uniform scale about (cx, cy).
func NewScaleAbout(factor, cx, cy float64) AffineMatrix {
	return AffineMatrix{
		ScaleX:     factor,
		TranslateX: cx * (1 - factor),
		ScaleY:     factor,
		TranslateY: cy * (1 - factor),
	}
}

// NewTranslation returns a pure translation.
func NewTranslation(tx, ty float64) AffineMatrix {
	return AffineMatrix{ScaleX: 1, TranslateX: tx, ScaleY: 1, TranslateY: ty}
}

// Apply transforms the pixel coordinate (x, y).
func (m AffineMatrix) Apply(x, y float64) (float64, float64) {
	return m.ScaleX*x + m.SkewX*y + m.TranslateX,
		m.SkewY*x + m.ScaleY*y + m.TranslateY
}

// Compose returns the transform that applies m first and then next,
// i.e. the matrix product next*m. Refiners use this to chain a
// correction onto an existing transform.
func (m AffineMatrix) Compose(next AffineMatrix) AffineMatrix {
	return AffineMatrix{
		ScaleX:     next.ScaleX*m.ScaleX + next.SkewX*m.SkewY,
		SkewX:      next.ScaleX*m.SkewX + next.SkewX*m.ScaleY,
		TranslateX: next.ScaleX*m.TranslateX + next.SkewX*m.TranslateY + next.TranslateX,
		SkewY:      next.SkewY*m.ScaleX + next.ScaleY*m.SkewY,
		ScaleY:     next.SkewY*m.SkewX + next.ScaleY*m.ScaleY,
		TranslateY: next.SkewY*m.TranslateX + next.ScaleY*m.TranslateY + next.TranslateY,
	}
}

// ScaleLinear multiplies only the linear 2x2 components by factor,
// leaving the translation untouched.
func (m AffineMatrix) ScaleLinear(factor float64) AffineMatrix {
	m.ScaleX *= factor
	m.SkewX *= factor
	m.SkewY *= factor
	m.ScaleY *= factor
	return m
}

// Translate returns m with (dx, dy) added to the translation
// components.
func (m AffineMatrix) Translate(dx, dy float64) AffineMatrix {
	m.TranslateX += dx
	m.TranslateY += dy
	return m
}

// Determinant returns the determinant of the linear 2x2 submatrix.
func (m AffineMatrix) Determinant() float64 {
	return m.ScaleX*m.ScaleY - m.SkewX*m.SkewY
}

// Invert returns the inverse transform and false if the matrix is
// singular.
func (m AffineMatrix) Invert() (AffineMatrix, bool) {
	det := m.Determinant()
	if math.Abs(det) < singularEpsilon {
		return AffineMatrix{}, false
	}
	inv := AffineMatrix{
		ScaleX: m.ScaleY / det,
		SkewX:  -m.SkewX / det,
		SkewY:  -m.SkewY / det,
		ScaleY: m.ScaleX / det,
	}
	inv.TranslateX = -(inv.ScaleX*m.TranslateX + inv.SkewX*m.TranslateY)
	inv.TranslateY = -(inv.SkewY*m.TranslateX + inv.ScaleY*m.TranslateY)
	return inv, true
}

// ApproximateScale returns the geometric-mean scale of the linear part,
// sqrt(|det|). This is a heuristic, not a true decomposition; it is
// exact only for similarity transforms.
func (m AffineMatrix) ApproximateScale() float64 {
	return math.Sqrt(math.Abs(m.Determinant()))
}

// RotationDegrees returns the rotation implied by the first column of
// the linear part, in degrees.
func (m AffineMatrix) RotationDegrees() float64 {
	return math.Atan2(m.SkewY, m.ScaleX) * 180 / math.Pi
}
