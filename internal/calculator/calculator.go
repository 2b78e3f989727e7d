// Package calculator builds the initial affine transform that maps two
// detected reference points onto a fixed target layout. Faces align on
// the eye pair, bodies on the shoulder pair; the algorithm is the same,
// only the point pair and target ratios differ.
package calculator

import (
	"fmt"
	"math"

	"github.com/steadycam/steady/internal/geometry"
)

// Layout describes the target canvas every frame is mapped onto.
type Layout struct {
	OutputSize             int     // square output canvas edge, pixels
	TargetEyeDistance      float64 // eye separation as a fraction of the canvas (face)
	TargetShoulderDistance float64 // shoulder separation as a fraction of the canvas (body)
	VerticalOffset         float64 // shifts the target center up by this fraction of the canvas
	HeadToWaistRatio       float64 // fraction of the canvas from head to waist (body framing)
}

// DefaultLayout returns the canvas layout used when the caller supplies
// none.
func DefaultLayout() Layout {
	return Layout{
		OutputSize:             1080,
		TargetEyeDistance:      0.25,
		TargetShoulderDistance: 0.35,
		VerticalOffset:         0.1,
		HeadToWaistRatio:       0.6,
	}
}

// Validate checks the caller-supplied layout. Target ratios must be
// strictly inside (0, 1); the canvas must be positive.
func (l Layout) Validate() error {
	if l.OutputSize <= 0 {
		return fmt.Errorf("output size must be positive, got %d", l.OutputSize)
	}
	if l.TargetEyeDistance <= 0 || l.TargetEyeDistance >= 1 {
		return fmt.Errorf("target eye distance %.3f outside (0, 1)", l.TargetEyeDistance)
	}
	if l.TargetShoulderDistance <= 0 || l.TargetShoulderDistance >= 1 {
		return fmt.Errorf("target shoulder distance %.3f outside (0, 1)", l.TargetShoulderDistance)
	}
	if l.HeadToWaistRatio <= 0 || l.HeadToWaistRatio >= 1 {
		return fmt.Errorf("head-to-waist ratio %.3f outside (0, 1)", l.HeadToWaistRatio)
	}
	if l.VerticalOffset < 0 || l.VerticalOffset >= 0.5 {
		return fmt.Errorf("vertical offset %.3f outside [0, 0.5)", l.VerticalOffset)
	}
	return nil
}

// TargetCenter returns the canvas position the reference-point midpoint
// is mapped to. Body mode raises the center further so the crop frames
// head to waist.
func (l Layout) TargetCenter(body bool) (float64, float64) {
	size := float64(l.OutputSize)
	cx := size / 2
	cy := size * (0.5 - l.VerticalOffset)
	if body {
		cy -= size * 0.25 * (1 - l.HeadToWaistRatio)
	}
	return cx, cy
}

// TargetDistance returns the desired reference-point separation on the
// canvas, in pixels.
func (l Layout) TargetDistance(body bool) float64 {
	ratio := l.TargetEyeDistance
	if body {
		ratio = l.TargetShoulderDistance
	}
	return float64(l.OutputSize) * ratio
}

// FaceMatrix computes the affine transform mapping the detected eye
// pair (normalized coordinates on a srcW x srcH image) onto the layout:
// eyes horizontal, separated by OutputSize*TargetEyeDistance pixels,
// centered at the layout's target center.
func FaceMatrix(leftEye, rightEye geometry.Point, layout Layout, srcW, srcH int) geometry.AffineMatrix {
	return referenceMatrix(leftEye, rightEye, layout, srcW, srcH, false)
}

// BodyMatrix is FaceMatrix for the shoulder pair, with the body
// framing adjustments applied.
func BodyMatrix(leftShoulder, rightShoulder geometry.Point, layout Layout, srcW, srcH int) geometry.AffineMatrix {
	return referenceMatrix(leftShoulder, rightShoulder, layout, srcW, srcH, true)
}

func referenceMatrix(a, b geometry.Point, layout Layout, srcW, srcH int, body bool) geometry.AffineMatrix {
	ax, ay := a.Pixel(srcW, srcH)
	bx, by := b.Pixel(srcW, srcH)

	dx, dy := bx-ax, by-ay
	angle := math.Atan2(dy, dx) // target rotation is 0 (horizontal pair)
	dist := math.Hypot(dx, dy)

	scale := 1.0 // degenerate-input guard: coincident points keep unit scale
	if dist > 0 {
		scale = layout.TargetDistance(body) / dist
	}

	// rotation(-angle) composed with the uniform scale
	c, s := math.Cos(-angle), math.Sin(-angle)
	m := geometry.AffineMatrix{
		ScaleX: scale * c,
		SkewX:  -scale * s,
		SkewY:  scale * s,
		ScaleY: scale * c,
	}

	// Solve the translation so the transformed midpoint lands on the
	// target center.
	midX, midY := (ax+bx)/2, (ay+by)/2
	cx, cy := layout.TargetCenter(body)
	m.TranslateX = cx - (m.ScaleX*midX + m.SkewX*midY)
	m.TranslateY = cy - (m.SkewY*midX + m.ScaleY*midY)
	return m
}

// GoalPoints returns where the two reference points should sit on the
// canvas: level with the target center, split symmetrically by the
// target distance.
func GoalPoints(layout Layout, body bool) (left, right geometry.Point) {
	cx, cy := layout.TargetCenter(body)
	half := layout.TargetDistance(body) / 2
	return geometry.Point{X: cx - half, Y: cy}, geometry.Point{X: cx + half, Y: cy}
}
