package features

import (
	"context"
	"errors"
	"image"

	"github.com/steadycam/steady/internal/landmarks"
)

var (
	// ErrTooFewKeypoints means a frame produced fewer keypoints than
	// Config.MinKeypoints.
	ErrTooFewKeypoints = errors.New("too few keypoints for matching")

	// ErrTooFewMatches means the ratio test left fewer matches than
	// Config.MinMatches.
	ErrTooFewMatches = errors.New("too few matches for homography estimation")

	// ErrEstimationFailed means RANSAC could not find a non-degenerate
	// homography supported by the correspondences.
	ErrEstimationFailed = errors.New("homography estimation failed")
)

// FeatureDetector extracts keypoints with descriptors from a frame.
// Implementations wrap ORB- or AKAZE-style detectors; the pipeline
// itself is detector-agnostic.
type FeatureDetector interface {
	// Name identifies the detector in logs and stored results.
	Name() string

	// Detect returns the frame's keypoints in pixel coordinates with
	// their descriptors populated.
	Detect(ctx context.Context, img image.Image) ([]landmarks.Keypoint, error)
}
