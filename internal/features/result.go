package features

import (
	"github.com/steadycam/steady/internal/geometry"
	"github.com/steadycam/steady/internal/landmarks"
)

// FeatureMatchResult is the outcome of matching one target frame
// against the reference frame. The homography maps target pixels to
// reference pixels.
type FeatureMatchResult struct {
	Homography   geometry.Homography
	MatchCount   int
	InlierCount  int
	InlierRatio  float64
	Reprojection ReprojectionStats
}

// IsValid reports whether the result is trustworthy enough to apply:
// enough matches survived, enough of them agree with the homography,
// and the matrix itself is non-singular.
func (r FeatureMatchResult) IsValid(minMatches int, minInlierRatio float64) bool {
	return r.MatchCount >= minMatches &&
		r.InlierRatio >= minInlierRatio &&
		r.Homography.IsValid()
}

// MatchFrames runs the full single-pass pipeline over two keypoint
// sets: ratio-test matching, RANSAC homography estimation, and
// reprojection statistics over the surviving matches.
func MatchFrames(refKps, targetKps []landmarks.Keypoint, cfg Config) (FeatureMatchResult, error) {
	matches, err := MatchDescriptors(targetKps, refKps, cfg)
	if err != nil {
		return FeatureMatchResult{}, err
	}

	src := make([]geometry.Point, len(matches))
	dst := make([]geometry.Point, len(matches))
	for i, m := range matches {
		src[i] = geometry.Point{X: targetKps[m.QueryIndex].X, Y: targetKps[m.QueryIndex].Y}
		dst[i] = geometry.Point{X: refKps[m.TrainIndex].X, Y: refKps[m.TrainIndex].Y}
	}

	est, err := EstimateHomographyRANSAC(src, dst, cfg)
	if err != nil {
		return FeatureMatchResult{}, err
	}

	return FeatureMatchResult{
		Homography:   est.Homography,
		MatchCount:   len(matches),
		InlierCount:  est.InlierCount,
		InlierRatio:  float64(est.InlierCount) / float64(len(matches)),
		Reprojection: Reprojection(est.Homography, src, dst, cfg.InlierThreshold),
	}, nil
}
