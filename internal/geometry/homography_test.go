package geometry

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityHomography_TransformPoint(t *testing.T) {
	id := IdentityHomography()
	tests := []struct{ x, y float64 }{
		{0, 0},
		{1, 1},
		{-3.5, 7.25},
		{1e6, -1e6},
	}
	for _, tt := range tests {
		x, y := id.TransformPoint(tt.x, tt.y)
		assert.InDelta(t, tt.x, x, 1e-12)
		assert.InDelta(t, tt.y, y, 1e-12)
	}
}

func TestIdentityHomography_TransformPointProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("identity maps every finite point to itself", prop.ForAll(
		func(x, y float64) bool {
			px, py := IdentityHomography().TransformPoint(x, y)
			return px == x && py == y
		},
		gen.Float64Range(-1e9, 1e9),
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}

func TestHomography_IsValid(t *testing.T) {
	assert.True(t, IdentityHomography().IsValid())
	assert.False(t, Homography{}.IsValid())

	// Rank-deficient: two identical rows.
	singular := Homography{H11: 1, H12: 2, H13: 3, H21: 1, H22: 2, H23: 3, H33: 1}
	assert.False(t, singular.IsValid())
}

func TestHomography_TransformPoint_DegenerateDenominator(t *testing.T) {
	// w = H31*x + H32*y + H33 = 0 at (1, 0).
	h := Homography{H11: 1, H22: 1, H31: -1, H33: 1}
	x, y := h.TransformPoint(1, 0)
	assert.True(t, math.IsNaN(x) || math.IsInf(x, 0))
	assert.True(t, math.IsNaN(y) || math.IsInf(y, 0))
}

func TestBlendWithIdentity_Endpoints(t *testing.T) {
	h := Homography{
		H11: 1.2, H12: 0.1, H13: 14,
		H21: -0.1, H22: 0.8, H23: -3,
		H31: 1e-4, H32: 2e-4, H33: 1,
	}

	assert.Equal(t, IdentityHomography(), h.BlendWithIdentity(0))
	assert.Equal(t, h, h.BlendWithIdentity(1))

	half := h.BlendWithIdentity(0.5)
	assert.InDelta(t, 1.1, half.H11, 1e-12)
	assert.InDelta(t, 7.0, half.H13, 1e-12)
	assert.InDelta(t, 0.9, half.H22, 1e-12)
}

func TestBlendWithIdentity_MonotoneTowardTransform(t *testing.T) {
	properties := gopter.NewProperties(nil)
	h := Homography{H11: 2, H12: 0.3, H13: 50, H21: -0.2, H22: 1.7, H23: -20, H31: 1e-4, H32: -2e-4, H33: 1}

	properties.Property("larger t lands farther from identity", prop.ForAll(
		func(t1, t2 float64) bool {
			if t1 > t2 {
				t1, t2 = t2, t1
			}
			d1 := coefficientDistance(h.BlendWithIdentity(t1), IdentityHomography())
			d2 := coefficientDistance(h.BlendWithIdentity(t2), IdentityHomography())
			return d1 <= d2+1e-9
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func coefficientDistance(a, b Homography) float64 {
	as, bs := a.Slice(), b.Slice()
	sum := 0.0
	for i := range as {
		d := as[i] - bs[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func TestComputeHomography_IdentityQuad(t *testing.T) {
	quad := [4]Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}
	h, ok := ComputeHomography(quad, quad)
	require.True(t, ok)

	x, y := h.TransformPoint(37, 61)
	assert.InDelta(t, 37, x, 1e-6)
	assert.InDelta(t, 61, y, 1e-6)
}

func TestComputeHomography_MapsCorners(t *testing.T) {
	src := [4]Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}
	dst := [4]Point{{X: 10, Y: 5}, {X: 90, Y: 12}, {X: 95, Y: 105}, {X: 3, Y: 98}}

	h, ok := ComputeHomography(src, dst)
	require.True(t, ok)
	require.True(t, h.IsValid())

	for i := range 4 {
		x, y := h.TransformPoint(src[i].X, src[i].Y)
		assert.InDelta(t, dst[i].X, x, 1e-6, "corner %d x", i)
		assert.InDelta(t, dst[i].Y, y, 1e-6, "corner %d y", i)
	}
}

func TestComputeHomography_CollinearFails(t *testing.T) {
	src := [4]Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	dst := [4]Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}
	_, ok := ComputeHomography(src, dst)
	assert.False(t, ok)
}

func TestHomography_InvertRoundTrip(t *testing.T) {
	src := [4]Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}
	dst := [4]Point{{X: 8, Y: 4}, {X: 92, Y: 10}, {X: 97, Y: 102}, {X: 2, Y: 95}}
	h, ok := ComputeHomography(src, dst)
	require.True(t, ok)

	inv, ok := h.Invert()
	require.True(t, ok)

	x, y := h.TransformPoint(50, 50)
	bx, by := inv.TransformPoint(x, y)
	assert.InDelta(t, 50, bx, 1e-6)
	assert.InDelta(t, 50, by, 1e-6)
}

func TestHomography_ApproximateScaleAndRotation(t *testing.T) {
	// Pure similarity: rotation 30deg, scale 2.
	theta := math.Pi / 6
	h := Homography{
		H11: 2 * math.Cos(theta), H12: -2 * math.Sin(theta),
		H21: 2 * math.Sin(theta), H22: 2 * math.Cos(theta),
		H33: 1,
	}
	assert.InDelta(t, 2.0, h.ApproximateScale(), 1e-9)
	assert.InDelta(t, 30.0, h.ApproximateRotationDegrees(), 1e-9)
}
