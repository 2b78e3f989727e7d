// Package features implements the landscape alignment pipeline:
// keypoint detection, descriptor matching with a ratio test, robust
// homography estimation via RANSAC, and reprojection-error validation.
package features

import "fmt"

// Config holds the tunables for the feature-matching pipeline.
type Config struct {
	// RatioThreshold is the Lowe ratio test cutoff: a match survives
	// only if its best distance is below threshold * second-best.
	// Accepted range is [0.5, 0.95], boundaries included.
	RatioThreshold float64

	// CrossCheck additionally requires each match to be mutual: the
	// train keypoint's best match must point back at the query.
	CrossCheck bool

	// MinKeypoints is the smallest keypoint count per frame worth
	// matching at all. Frames with fewer are rejected outright.
	MinKeypoints int

	// MinMatches is the smallest surviving match count required to
	// attempt homography estimation. Must be at least 4.
	MinMatches int

	// MinInlierRatio gates the RANSAC result: inliers / matches.
	MinInlierRatio float64

	// InlierThreshold is the reprojection distance (pixels) under
	// which a correspondence counts as an inlier.
	InlierThreshold float64

	// RANSACIterations bounds the number of random 4-point samples.
	RANSACIterations int

	// MaxMeanReprojectionError gates the reprojection statistics.
	MaxMeanReprojectionError float64

	// MaxPasses caps the multi-pass alignment loop.
	MaxPasses int

	// DeterminantDelta is the per-pass homography determinant change
	// under which the loop is considered converged.
	DeterminantDelta float64

	// Seed feeds the RANSAC sampler. Zero selects a fixed default so
	// runs are reproducible.
	Seed int64
}

// DefaultConfig returns the tuned pipeline defaults.
func DefaultConfig() Config {
	return Config{
		RatioThreshold:           0.75,
		CrossCheck:               false,
		MinKeypoints:             10,
		MinMatches:               10,
		MinInlierRatio:           0.3,
		InlierThreshold:          5.0,
		RANSACIterations:         512,
		MaxMeanReprojectionError: 3.0,
		MaxPasses:                3,
		DeterminantDelta:         0.01,
		Seed:                     1,
	}
}

// Validate rejects configurations that would make matching degenerate.
func (c Config) Validate() error {
	if c.RatioThreshold < 0.5 || c.RatioThreshold > 0.95 {
		return fmt.Errorf("ratio threshold %.3f outside [0.5, 0.95]", c.RatioThreshold)
	}
	if c.MinKeypoints < 4 {
		return fmt.Errorf("min keypoints must be at least 4, got %d", c.MinKeypoints)
	}
	if c.MinMatches < 4 {
		return fmt.Errorf("min matches must be at least 4, got %d", c.MinMatches)
	}
	if c.MinInlierRatio < 0 || c.MinInlierRatio > 1 {
		return fmt.Errorf("min inlier ratio %.3f outside [0, 1]", c.MinInlierRatio)
	}
	if c.InlierThreshold <= 0 {
		return fmt.Errorf("inlier threshold must be positive, got %.3f", c.InlierThreshold)
	}
	if c.RANSACIterations < 1 {
		return fmt.Errorf("ransac iterations must be at least 1, got %d", c.RANSACIterations)
	}
	if c.MaxPasses < 1 {
		return fmt.Errorf("max passes must be at least 1, got %d", c.MaxPasses)
	}
	return nil
}
