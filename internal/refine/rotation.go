package refine

import (
	"math"

	"github.com/steadycam/steady/internal/geometry"
)

// Rotation levels the reference-point pair. left and right are the
// freshly detected reference points on the already-transformed image,
// in normalized coordinates; deltas are evaluated in pixel space on the
// canvasW x canvasH canvas. When |deltaY| is within stopThreshold
// pixels the stage has converged and the matrix is returned unchanged.
// Otherwise a rotation of -atan2(deltaY, deltaX) about the detected
// midpoint is composed onto the matrix, preserving its scale and
// translation.
func Rotation(m geometry.AffineMatrix, left, right geometry.Point, stopThreshold float64, canvasW, canvasH int) Result {
	lx, ly := left.Pixel(canvasW, canvasH)
	rx, ry := right.Pixel(canvasW, canvasH)

	deltaX := rx - lx
	deltaY := ry - ly

	if math.Abs(deltaY) <= stopThreshold {
		return Result{Matrix: m, Converged: true, Error: math.Abs(deltaY)}
	}

	angle := -math.Atan2(deltaY, deltaX)
	midX, midY := (lx+rx)/2, (ly+ry)/2
	corrected := m.Compose(geometry.NewRotationAbout(angle, midX, midY))

	return Result{Matrix: corrected, Converged: false, Error: math.Abs(deltaY)}
}
