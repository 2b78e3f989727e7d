package refine

import (
	"math"

	"github.com/steadycam/steady/internal/geometry"
)

// Translation nudges the detected reference-point midpoint toward the
// goal midpoint. The correction is damped rather than exact one-shot:
// applying the full offset tends to oscillate when the next detection
// lands slightly differently, so only damping*offset is applied to the
// translation components. goalX/goalY are pixels on the canvas.
func Translation(m geometry.AffineMatrix, left, right geometry.Point, goalX, goalY, damping float64, canvasW, canvasH int) Result {
	lx, ly := left.Pixel(canvasW, canvasH)
	rx, ry := right.Pixel(canvasW, canvasH)
	midX, midY := (lx+rx)/2, (ly+ry)/2

	offsetX := goalX - midX
	offsetY := goalY - midY
	offset := math.Hypot(offsetX, offsetY)

	corrected := m.Translate(offsetX*damping, offsetY*damping)
	return Result{Matrix: corrected, Converged: false, Error: offset}
}
