package features

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/steadycam/steady/internal/geometry"
)

// HomographyEstimate is the output of robust homography fitting.
type HomographyEstimate struct {
	Homography  geometry.Homography
	InlierCount int
	InlierMask  []bool // parallel to the input correspondences
}

// EstimateHomographyRANSAC fits a homography mapping src[i] -> dst[i]
// by repeatedly sampling four correspondences, solving exactly, and
// keeping the hypothesis with the most inliers under the configured
// reprojection threshold. The sampler is seeded from cfg.Seed so runs
// are reproducible.
func EstimateHomographyRANSAC(src, dst []geometry.Point, cfg Config) (HomographyEstimate, error) {
	if len(src) != len(dst) {
		return HomographyEstimate{}, fmt.Errorf("correspondence count mismatch: %d src vs %d dst", len(src), len(dst))
	}
	if len(src) < 4 {
		return HomographyEstimate{}, fmt.Errorf("need at least 4 correspondences, got %d: %w", len(src), ErrEstimationFailed)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))

	best := HomographyEstimate{}
	for range cfg.RANSACIterations {
		var p, q [4]geometry.Point
		perm := rng.Perm(len(src))
		for i := range 4 {
			p[i] = src[perm[i]]
			q[i] = dst[perm[i]]
		}
		h, ok := geometry.ComputeHomography(p, q)
		if !ok || !h.IsValid() {
			continue
		}
		count, mask := countInliers(h, src, dst, cfg.InlierThreshold)
		if count > best.InlierCount {
			best = HomographyEstimate{Homography: h, InlierCount: count, InlierMask: mask}
		}
	}

	if best.InlierCount < 4 {
		return HomographyEstimate{}, fmt.Errorf("best hypothesis had %d inliers: %w", best.InlierCount, ErrEstimationFailed)
	}
	return best, nil
}

func countInliers(h geometry.Homography, src, dst []geometry.Point, threshold float64) (int, []bool) {
	mask := make([]bool, len(src))
	count := 0
	for i := range src {
		x, y := h.TransformPoint(src[i].X, src[i].Y)
		d := math.Hypot(x-dst[i].X, y-dst[i].Y)
		if !math.IsNaN(d) && d <= threshold {
			mask[i] = true
			count++
		}
	}
	return count, mask
}
