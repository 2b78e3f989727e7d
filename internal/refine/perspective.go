package refine

import (
	"math"

	"github.com/steadycam/steady/internal/geometry"
)

// convexityEpsilon tolerates tiny cross-product sign flips from
// floating-point noise in the quadrilateral convexity check.
const convexityEpsilon = 1e-6

// PerspectiveLimits bounds how far a landscape homography may deviate
// from a rigid frame-to-frame motion before it is considered unstable.
type PerspectiveLimits struct {
	MinDeterminant     float64
	MaxDeterminant     float64
	MinScale           float64
	MaxScale           float64
	MaxRotationDegrees float64
	BlendFactor        float64 // interpolation toward identity applied on failure
}

// DefaultPerspectiveLimits returns the stability gates used when the
// caller supplies none.
func DefaultPerspectiveLimits() PerspectiveLimits {
	return PerspectiveLimits{
		MinDeterminant:     0.5,
		MaxDeterminant:     2.0,
		MinScale:           0.7,
		MaxScale:           1.4,
		MaxRotationDegrees: 15,
		BlendFactor:        0.5,
	}
}

// PerspectiveResult reports the outcome of a stability pass over a
// homography.
type PerspectiveResult struct {
	Homography geometry.Homography
	Stable     bool     // all checks passed; the matrix was not softened
	Failures   []string // human-readable failed checks, empty when stable
}

// PerspectiveStability validates that a homography represents a
// plausible frame-to-frame camera motion. When any check fails the
// matrix is blended toward identity by the configured factor rather
// than rejected outright: a softened transform still improves the frame
// while a discarded one would stall the whole pass loop.
func PerspectiveStability(h geometry.Homography, limits PerspectiveLimits) PerspectiveResult {
	failures := perspectiveFailures(h, limits)
	if len(failures) == 0 {
		return PerspectiveResult{Homography: h, Stable: true}
	}
	// BlendFactor is the fraction of the way toward identity, so the
	// blend keeps 1-BlendFactor of the original transform.
	return PerspectiveResult{
		Homography: h.BlendWithIdentity(1 - limits.BlendFactor),
		Stable:     false,
		Failures:   failures,
	}
}

func perspectiveFailures(h geometry.Homography, limits PerspectiveLimits) []string {
	var failures []string

	det := h.Determinant()
	if det < limits.MinDeterminant || det > limits.MaxDeterminant {
		failures = append(failures, "determinant outside stable range")
	}

	scale := h.ApproximateScale()
	if scale < limits.MinScale || scale > limits.MaxScale {
		failures = append(failures, "scale outside stable range")
	}

	if math.Abs(h.ApproximateRotationDegrees()) > limits.MaxRotationDegrees {
		failures = append(failures, "rotation exceeds limit")
	}

	if !transformsUnitSquareConvex(h) {
		failures = append(failures, "unit square does not map to a convex quadrilateral")
	}

	return failures
}

// transformsUnitSquareConvex projects the four unit-square corners
// through h and checks that the resulting quadrilateral is convex via
// cross-product sign consistency. NaN or infinite projections fail the
// check.
func transformsUnitSquareConvex(h geometry.Homography) bool {
	corners := [4][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	var quad [4][2]float64
	for i, c := range corners {
		x, y := h.TransformPoint(c[0], c[1])
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return false
		}
		quad[i] = [2]float64{x, y}
	}

	sign := 0.0
	for i := range 4 {
		a := quad[i]
		b := quad[(i+1)%4]
		c := quad[(i+2)%4]
		cross := (b[0]-a[0])*(c[1]-b[1]) - (b[1]-a[1])*(c[0]-b[0])
		if math.Abs(cross) <= convexityEpsilon {
			continue
		}
		if sign == 0 {
			sign = cross
		} else if sign*cross < 0 {
			return false
		}
	}
	return true
}
