package landmarks

import (
	"context"
	"errors"
	"image"
)

// Detection errors surfaced as values. Callers distinguish a missing
// capability (fall back, keep the original frame) from a frame-local
// miss (fail this frame only).
var (
	// ErrDetectorUnavailable means no detector implementation exists on
	// this platform or its model failed to load. Recoverable.
	ErrDetectorUnavailable = errors.New("landmark detector unavailable")

	// ErrNoSubject means the detector ran but found no landmarks on the
	// initial image. Fails the current frame only.
	ErrNoSubject = errors.New("no subject detected")

	// ErrDetectionLost means a re-detection during refinement came up
	// empty. The stabilization loop records this as an early stop
	// instead of propagating a failure.
	ErrDetectionLost = errors.New("detection lost during refinement")
)

// Detector finds landmarks on an image. Implementations are stateless
// per call from the engine's perspective; any native resource pooling
// is their own concern.
type Detector interface {
	// Available reports whether this detector can be used. Must be
	// checked before Detect; an unavailable detector is a recoverable
	// condition, not a fatal one.
	Available() bool

	// Detect returns the landmarks found on img, or ErrNoSubject when
	// nothing was detected.
	Detect(ctx context.Context, img image.Image) (Landmarks, error)
}
