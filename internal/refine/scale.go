package refine

import (
	"math"

	"github.com/steadycam/steady/internal/geometry"
)

// Scale corrects the reference-point separation toward goalDistance
// (pixels on the canvas). The error metric is |current - goal|; within
// errorThreshold the stage has converged. The correction multiplies
// only the linear components of the matrix by goal/current, leaving the
// translation untouched.
func Scale(m geometry.AffineMatrix, left, right geometry.Point, goalDistance, errorThreshold float64, canvasW, canvasH int) Result {
	current := left.PixelDistanceTo(right, canvasW, canvasH)
	scaleError := math.Abs(current - goalDistance)

	if scaleError <= errorThreshold {
		return Result{Matrix: m, Converged: true, Error: scaleError}
	}
	if current == 0 {
		// Coincident points carry no scale information; leave the
		// matrix alone and report the raw error.
		return Result{Matrix: m, Converged: false, Error: scaleError}
	}

	corrected := m.ScaleLinear(goalDistance / current)
	return Result{Matrix: corrected, Converged: false, Error: scaleError}
}
