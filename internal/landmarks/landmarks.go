// Package landmarks defines the detection result types consumed by the
// alignment engine and the narrow detector interface implemented by
// platform collaborators.
package landmarks

import (
	"github.com/steadycam/steady/internal/geometry"
)

// ContentKind identifies which subject variant a set of landmarks
// describes.
type ContentKind string

const (
	// KindFace is a face subject aligned on the eye pair.
	KindFace ContentKind = "face"
	// KindBody is a body subject aligned on the shoulder pair.
	KindBody ContentKind = "body"
	// KindLandscape is a scene aligned by feature correspondences.
	KindLandscape ContentKind = "landscape"
)

// Landmarks is the minimal capability shared by all detection result
// variants: a bounding box and a confidence-like quality signal.
// Content-type specific geometry is reached by switching on Kind().
type Landmarks interface {
	Kind() ContentKind
	Bounds() geometry.Box
	Confidence() float64
}

// FaceLandmarks holds a detected face: the eye pair used for alignment,
// the nose, the full detected point set and the face bounding box. All
// coordinates are normalized [0,1].
type FaceLandmarks struct {
	LeftEye  geometry.Point
	RightEye geometry.Point
	Nose     geometry.Point
	Points   []geometry.Point
	Box      geometry.Box
	Score    float64
}

// Kind returns KindFace.
func (f FaceLandmarks) Kind() ContentKind { return KindFace }

// Bounds returns the face bounding box.
func (f FaceLandmarks) Bounds() geometry.Box { return f.Box }

// Confidence returns the detector confidence for this face.
func (f FaceLandmarks) Confidence() float64 { return f.Score }

// EyeDistance returns the normalized distance between the eyes.
func (f FaceLandmarks) EyeDistance() float64 {
	return f.LeftEye.DistanceTo(f.RightEye)
}

// BodyLandmarks holds a detected body pose: the shoulder pair used for
// alignment, the hips, and the derived neck center. Coordinates are
// normalized [0,1].
type BodyLandmarks struct {
	LeftShoulder  geometry.Point
	RightShoulder geometry.Point
	LeftHip       geometry.Point
	RightHip      geometry.Point
	Box           geometry.Box
	Score         float64
}

// Kind returns KindBody.
func (b BodyLandmarks) Kind() ContentKind { return KindBody }

// Bounds returns the body bounding box.
func (b BodyLandmarks) Bounds() geometry.Box { return b.Box }

// Confidence returns the detector confidence for this pose.
func (b BodyLandmarks) Confidence() float64 { return b.Score }

// NeckCenter returns the midpoint of the shoulders.
func (b BodyLandmarks) NeckCenter() geometry.Point {
	return b.LeftShoulder.Midpoint(b.RightShoulder)
}

// ShoulderDistance returns the normalized distance between shoulders.
func (b BodyLandmarks) ShoulderDistance() float64 {
	return b.LeftShoulder.DistanceTo(b.RightShoulder)
}

// Keypoint is a detected visual feature in pixel coordinates, in the
// shape reported by ORB/AKAZE-style detectors.
type Keypoint struct {
	X          float64
	Y          float64
	Size       float64
	Angle      float64
	Response   float64
	Octave     int
	Descriptor []float32
}

// LandscapeLandmarks holds the keypoint set detected on a scene frame.
type LandscapeLandmarks struct {
	Keypoints    []Keypoint
	DetectorName string
	Quality      float64
	Box          geometry.Box
}

// NewLandscapeLandmarks builds landscape landmarks, deriving the
// normalized bounding box of the keypoint set from the image size.
func NewLandscapeLandmarks(kps []Keypoint, detectorName string, quality float64, imgW, imgH int) LandscapeLandmarks {
	pts := make([]geometry.Point, len(kps))
	for i, kp := range kps {
		pts[i] = geometry.Point{X: kp.X / float64(imgW), Y: kp.Y / float64(imgH)}
	}
	return LandscapeLandmarks{
		Keypoints:    kps,
		DetectorName: detectorName,
		Quality:      quality,
		Box:          geometry.BoundingBox(pts),
	}
}

// Kind returns KindLandscape.
func (l LandscapeLandmarks) Kind() ContentKind { return KindLandscape }

// Bounds returns the bounding box of the keypoint set.
func (l LandscapeLandmarks) Bounds() geometry.Box { return l.Box }

// Confidence returns the detector quality score.
func (l LandscapeLandmarks) Confidence() float64 { return l.Quality }

// ReferencePoints returns the two anchor points driving affine
// alignment for the given landmarks: eyes for a face, shoulders for a
// body. Landscape landmarks have no point pair and return ok=false.
func ReferencePoints(l Landmarks) (left, right geometry.Point, ok bool) {
	switch v := l.(type) {
	case FaceLandmarks:
		return v.LeftEye, v.RightEye, true
	case BodyLandmarks:
		return v.LeftShoulder, v.RightShoulder, true
	default:
		return geometry.Point{}, geometry.Point{}, false
	}
}
