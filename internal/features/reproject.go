package features

import (
	"math"
	"sort"

	"github.com/steadycam/steady/internal/geometry"
)

// ReprojectionStats summarizes how well a homography explains a set of
// correspondences.
type ReprojectionStats struct {
	MeanError   float64
	MedianError float64
	MaxError    float64
	InlierRatio float64 // fraction of correspondences within the threshold
}

// Reprojection projects every src point through h and measures its
// distance to the paired dst point. NaN projections (near-zero
// homogeneous w) count as infinitely wrong.
func Reprojection(h geometry.Homography, src, dst []geometry.Point, inlierThreshold float64) ReprojectionStats {
	if len(src) == 0 || len(src) != len(dst) {
		return ReprojectionStats{}
	}

	errs := make([]float64, len(src))
	inliers := 0
	for i := range src {
		x, y := h.TransformPoint(src[i].X, src[i].Y)
		d := math.Hypot(x-dst[i].X, y-dst[i].Y)
		if math.IsNaN(d) {
			d = math.Inf(1)
		}
		errs[i] = d
		if d <= inlierThreshold {
			inliers++
		}
	}

	sort.Float64s(errs)
	var sum float64
	for _, e := range errs {
		sum += e
	}
	median := errs[len(errs)/2]
	if len(errs)%2 == 0 {
		median = (errs[len(errs)/2-1] + errs[len(errs)/2]) / 2
	}

	return ReprojectionStats{
		MeanError:   sum / float64(len(errs)),
		MedianError: median,
		MaxError:    errs[len(errs)-1],
		InlierRatio: float64(inliers) / float64(len(errs)),
	}
}

// Acceptable reports whether the fit is good enough to apply: mean
// error at or under maxMean and inlier ratio at or above minRatio.
func (s ReprojectionStats) Acceptable(maxMean, minRatio float64) bool {
	return s.MeanError <= maxMean && s.InlierRatio >= minRatio
}
