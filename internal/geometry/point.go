// Package geometry provides the 2D primitives used by the alignment
// engine: normalized points, bounding boxes, 2x3 affine matrices and
// 3x3 homographies.
package geometry

import "math"

// Point is a 2D point. Detector results use normalized [0,1]
// image-relative coordinates; goal and warp code uses pixel
// coordinates. Z is reserved for detectors that report depth and is 0
// for 2D-only pipelines.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Pixel converts the normalized point to pixel coordinates for an
// image of the given dimensions.
func (p Point) Pixel(width, height int) (float64, float64) {
	return p.X * float64(width), p.Y * float64(height)
}

// DistanceTo returns the Euclidean distance to q in normalized space.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// PixelDistanceTo returns the Euclidean distance to q in pixel space
// for an image of the given dimensions.
func (p Point) PixelDistanceTo(q Point, width, height int) float64 {
	px, py := p.Pixel(width, height)
	qx, qy := q.Pixel(width, height)
	return math.Hypot(px-qx, py-qy)
}

// Midpoint returns the point halfway between p and q.
func (p Point) Midpoint(q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// InUnitRange reports whether both coordinates lie within [0,1].
func (p Point) InUnitRange() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

// Box is an axis-aligned bounding box in normalized coordinates.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// NewBox creates a box, normalizing inverted coordinates.
func NewBox(left, top, right, bottom float64) Box {
	if left > right {
		left, right = right, left
	}
	if top > bottom {
		top, bottom = bottom, top
	}
	return Box{Left: left, Top: top, Right: right, Bottom: bottom}
}

// Width returns the box width.
func (b Box) Width() float64 { return b.Right - b.Left }

// Height returns the box height.
func (b Box) Height() float64 { return b.Bottom - b.Top }

// Area returns the box area.
func (b Box) Area() float64 { return b.Width() * b.Height() }

// Center returns the box center point.
func (b Box) Center() Point {
	return Point{X: (b.Left + b.Right) / 2, Y: (b.Top + b.Bottom) / 2}
}

// InUnitRange reports whether the box lies fully within [0,1] on both axes.
func (b Box) InUnitRange() bool {
	return b.Left >= 0 && b.Top >= 0 && b.Right <= 1 && b.Bottom <= 1
}

// BoundingBox computes the bounding box of a set of points. Returns the
// zero box for an empty slice.
func BoundingBox(pts []Point) Box {
	if len(pts) == 0 {
		return Box{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Box{Left: minX, Top: minY, Right: maxX, Bottom: maxY}
}
