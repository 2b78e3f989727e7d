package refine

import (
	"math"
	"testing"

	"github.com/steadycam/steady/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotation_ConvergedWithinThreshold(t *testing.T) {
	m := geometry.IdentityAffine()
	left := geometry.Point{X: 0.3, Y: 0.500}
	right := geometry.Point{X: 0.7, Y: 0.501} // 1px delta on 1000px canvas

	res := Rotation(m, left, right, 2.0, 1000, 1000)
	assert.True(t, res.Converged)
	assert.Equal(t, m, res.Matrix)
	assert.InDelta(t, 1.0, res.Error, 1e-9)
}

func TestRotation_CorrectsTilt(t *testing.T) {
	m := geometry.IdentityAffine()
	left := geometry.Point{X: 0.3, Y: 0.45}
	right := geometry.Point{X: 0.7, Y: 0.55} // 100px delta on 1000px canvas

	res := Rotation(m, left, right, 2.0, 1000, 1000)
	require.False(t, res.Converged)
	assert.InDelta(t, 100, res.Error, 1e-9)

	// Applying the corrected matrix to the detected pixel positions
	// levels the pair.
	lx, ly := left.Pixel(1000, 1000)
	rx, ry := right.Pixel(1000, 1000)
	_, oly := res.Matrix.Apply(lx, ly)
	_, ory := res.Matrix.Apply(rx, ry)
	assert.InDelta(t, oly, ory, 1e-6)
}

func TestRotation_RoundTripReturnsOriginal(t *testing.T) {
	base := geometry.AffineMatrix{ScaleX: 1.2, SkewX: 0.1, TranslateX: 30, SkewY: -0.1, ScaleY: 1.1, TranslateY: -20}
	theta := 0.21
	mid := geometry.Point{X: 0.5, Y: 0.5}
	mx, my := mid.Pixel(1000, 1000)

	forward := base.Compose(geometry.NewRotationAbout(theta, mx, my))
	back := forward.Compose(geometry.NewRotationAbout(-theta, mx, my))

	assert.InDelta(t, base.ScaleX, back.ScaleX, 1e-9)
	assert.InDelta(t, base.SkewX, back.SkewX, 1e-9)
	assert.InDelta(t, base.TranslateX, back.TranslateX, 1e-9)
	assert.InDelta(t, base.SkewY, back.SkewY, 1e-9)
	assert.InDelta(t, base.ScaleY, back.ScaleY, 1e-9)
	assert.InDelta(t, base.TranslateY, back.TranslateY, 1e-9)
}

func TestScale_ConvergedWithinThreshold(t *testing.T) {
	m := geometry.IdentityAffine()
	left := geometry.Point{X: 0.35, Y: 0.5}
	right := geometry.Point{X: 0.65, Y: 0.5} // 300px apart

	res := Scale(m, left, right, 302, 5, 1000, 1000)
	assert.True(t, res.Converged)
	assert.Equal(t, m, res.Matrix)
	assert.InDelta(t, 2, res.Error, 1e-9)
}

func TestScale_CorrectsLinearOnly(t *testing.T) {
	m := geometry.AffineMatrix{ScaleX: 1, ScaleY: 1, TranslateX: 40, TranslateY: -10}
	left := geometry.Point{X: 0.4, Y: 0.5}
	right := geometry.Point{X: 0.6, Y: 0.5} // 200px apart, goal 300

	res := Scale(m, left, right, 300, 5, 1000, 1000)
	require.False(t, res.Converged)
	assert.InDelta(t, 100, res.Error, 1e-9)
	assert.InDelta(t, 1.5, res.Matrix.ScaleX, 1e-9)
	assert.InDelta(t, 1.5, res.Matrix.ScaleY, 1e-9)
	// translation untouched
	assert.InDelta(t, 40, res.Matrix.TranslateX, 1e-12)
	assert.InDelta(t, -10, res.Matrix.TranslateY, 1e-12)
}

func TestScale_CoincidentPointsDoNotCrash(t *testing.T) {
	m := geometry.IdentityAffine()
	p := geometry.Point{X: 0.5, Y: 0.5}
	res := Scale(m, p, p, 300, 5, 1000, 1000)
	assert.False(t, res.Converged)
	assert.Equal(t, m, res.Matrix)
}

func TestTranslation_DampedCorrection(t *testing.T) {
	m := geometry.IdentityAffine()
	left := geometry.Point{X: 0.3, Y: 0.5}
	right := geometry.Point{X: 0.5, Y: 0.5} // midpoint (400, 500)

	res := Translation(m, left, right, 500, 500, DampingFactor, 1000, 1000)
	// full offset is (100, 0); damped by 0.5
	assert.InDelta(t, 50, res.Matrix.TranslateX, 1e-9)
	assert.InDelta(t, 0, res.Matrix.TranslateY, 1e-9)
	assert.InDelta(t, 100, res.Error, 1e-9)
}

func TestPerspectiveStability_StablePassesThrough(t *testing.T) {
	h := geometry.IdentityHomography()
	res := PerspectiveStability(h, DefaultPerspectiveLimits())
	assert.True(t, res.Stable)
	assert.Empty(t, res.Failures)
	assert.Equal(t, h, res.Homography)
}

func TestPerspectiveStability_ExcessiveScaleSoftened(t *testing.T) {
	h := geometry.Homography{H11: 3, H22: 3, H33: 1} // scale 3, det 9
	limits := DefaultPerspectiveLimits()
	res := PerspectiveStability(h, limits)

	require.False(t, res.Stable)
	assert.NotEmpty(t, res.Failures)
	// blended halfway toward identity
	assert.InDelta(t, 2, res.Homography.H11, 1e-12)
	assert.InDelta(t, 2, res.Homography.H22, 1e-12)
}

func TestPerspectiveStability_BlendFactorIsFractionTowardIdentity(t *testing.T) {
	h := geometry.Homography{H11: 3, H22: 3, H33: 1}
	limits := DefaultPerspectiveLimits()
	limits.BlendFactor = 0.75
	res := PerspectiveStability(h, limits)

	require.False(t, res.Stable)
	// 75% of the way to identity keeps a quarter of the transform.
	assert.InDelta(t, 1.5, res.Homography.H11, 1e-12)
	assert.InDelta(t, 1.5, res.Homography.H22, 1e-12)
}

func TestPerspectiveStability_ExcessiveRotation(t *testing.T) {
	theta := 30 * math.Pi / 180
	h := geometry.Homography{
		H11: math.Cos(theta), H12: -math.Sin(theta),
		H21: math.Sin(theta), H22: math.Cos(theta),
		H33: 1,
	}
	res := PerspectiveStability(h, DefaultPerspectiveLimits())
	assert.False(t, res.Stable)
	assert.Contains(t, res.Failures, "rotation exceeds limit")
}

func TestTransformsUnitSquareConvex(t *testing.T) {
	assert.True(t, transformsUnitSquareConvex(geometry.IdentityHomography()))

	// A reflection flips orientation but stays convex; a strong
	// perspective fold does not. Force a fold with a large H31.
	fold := geometry.Homography{H11: 1, H22: 1, H31: -1.5, H33: 1}
	assert.False(t, transformsUnitSquareConvex(fold))
}
