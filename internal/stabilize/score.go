package stabilize

import (
	"math"

	"github.com/steadycam/steady/internal/geometry"
)

// Score measures the distance to the goal layout: the sum of the two
// reference points' Euclidean pixel errors, with the per-point
// components kept for diagnostics.
type Score struct {
	Value         float64 `json:"value"`
	LeftDistance  float64 `json:"left_distance"`
	RightDistance float64 `json:"right_distance"`
}

// NewScore scores the detected reference pair (normalized coordinates
// on the canvas) against the goal positions (pixels on the canvas).
func NewScore(detLeft, detRight, goalLeft, goalRight geometry.Point, canvasW, canvasH int) Score {
	lx, ly := detLeft.Pixel(canvasW, canvasH)
	rx, ry := detRight.Pixel(canvasW, canvasH)

	left := math.Hypot(lx-goalLeft.X, ly-goalLeft.Y)
	right := math.Hypot(rx-goalRight.X, ry-goalRight.Y)
	return Score{Value: left + right, LeftDistance: left, RightDistance: right}
}

// NeedsCorrection reports whether the score is above the success
// threshold and another refinement pass is warranted.
func (s Score) NeedsCorrection(successThreshold float64) bool {
	return s.Value > successThreshold
}
