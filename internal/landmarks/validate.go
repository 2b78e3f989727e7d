package landmarks

import (
	"fmt"

	"github.com/steadycam/steady/internal/geometry"
)

// ValidationConfig holds the generic quality gates applied to detected
// landmarks before alignment is attempted.
type ValidationConfig struct {
	MinConfidence          float64 // minimum detector confidence (0-1)
	MinReferenceSeparation float64 // minimum normalized distance between the two reference points
	MinBoxArea             float64 // minimum normalized bounding-box area
}

// DefaultValidationConfig returns the thresholds used when the caller
// supplies none.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MinConfidence:          0.5,
		MinReferenceSeparation: 0.02,
		MinBoxArea:             0.001,
	}
}

// Validate runs the generic checks and returns the first failure, or
// nil when the landmarks are usable.
func Validate(l Landmarks, cfg ValidationConfig) error {
	reasons := ValidateDetailed(l, cfg)
	if len(reasons) == 0 {
		return nil
	}
	return fmt.Errorf("landmark validation failed: %s", reasons[0])
}

// ValidateDetailed runs all generic checks and returns every failed
// check as a human-readable reason. An empty slice means the landmarks
// passed.
func ValidateDetailed(l Landmarks, cfg ValidationConfig) []string {
	var reasons []string

	if l.Confidence() < cfg.MinConfidence {
		reasons = append(reasons, fmt.Sprintf(
			"confidence %.3f below minimum %.3f", l.Confidence(), cfg.MinConfidence))
	}

	box := l.Bounds()
	if box.Area() < cfg.MinBoxArea {
		reasons = append(reasons, fmt.Sprintf(
			"bounding box area %.5f below minimum %.5f", box.Area(), cfg.MinBoxArea))
	}
	if !box.InUnitRange() {
		reasons = append(reasons, "bounding box extends outside the image")
	}

	if left, right, ok := ReferencePoints(l); ok {
		reasons = append(reasons, validateReferencePair(left, right, cfg)...)
	}

	for i, p := range keyPoints(l) {
		if !p.InUnitRange() {
			reasons = append(reasons, fmt.Sprintf(
				"key point %d at (%.3f, %.3f) outside [0,1]", i, p.X, p.Y))
		}
	}

	return reasons
}

func validateReferencePair(left, right geometry.Point, cfg ValidationConfig) []string {
	var reasons []string
	sep := left.DistanceTo(right)
	if sep < cfg.MinReferenceSeparation {
		reasons = append(reasons, fmt.Sprintf(
			"reference points %.4f apart, minimum is %.4f", sep, cfg.MinReferenceSeparation))
	}
	if right.X <= left.X {
		reasons = append(reasons, "right reference point is not right of the left one")
	}
	return reasons
}

// keyPoints returns the per-variant points whose coordinates must lie
// within the image.
func keyPoints(l Landmarks) []geometry.Point {
	switch v := l.(type) {
	case FaceLandmarks:
		return []geometry.Point{v.LeftEye, v.RightEye, v.Nose}
	case BodyLandmarks:
		return []geometry.Point{v.LeftShoulder, v.RightShoulder, v.LeftHip, v.RightHip}
	default:
		return nil
	}
}
