package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steadycam/steady/internal/geometry"
	"github.com/steadycam/steady/internal/landmarks"
)

// gridKeypoints lays out a 4x5 grid of keypoints with one-hot
// descriptors, so matching by descriptor is unambiguous and index i
// always corresponds to index i.
func gridKeypoints(transform func(x, y float64) (float64, float64)) []landmarks.Keypoint {
	kps := make([]landmarks.Keypoint, 0, 20)
	i := 0
	for row := range 4 {
		for col := range 5 {
			x, y := transform(100+60*float64(col), 100+50*float64(row))
			desc := make([]float32, 20)
			desc[i] = 10
			kps = append(kps, landmarks.Keypoint{
				X: x, Y: y, Size: 8, Response: 0.5, Descriptor: desc,
			})
			i++
		}
	}
	return kps
}

func identityPos(x, y float64) (float64, float64) { return x, y }

func relaxedConfig() Config {
	cfg := DefaultConfig()
	cfg.MinKeypoints = 4
	cfg.MinMatches = 4
	return cfg
}

func TestConfig_RatioThresholdBoundaries(t *testing.T) {
	cfg := DefaultConfig()

	cfg.RatioThreshold = 0.5
	assert.NoError(t, cfg.Validate())

	cfg.RatioThreshold = 0.95
	assert.NoError(t, cfg.Validate())

	cfg.RatioThreshold = 0.49
	assert.Error(t, cfg.Validate())

	cfg.RatioThreshold = 0.96
	assert.Error(t, cfg.Validate())
}

func TestConfig_MinMatchesFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinMatches = 4
	assert.NoError(t, cfg.Validate())
	cfg.MinMatches = 3
	assert.Error(t, cfg.Validate())
}

func TestMatchDescriptors_RejectsSparseFrames(t *testing.T) {
	full := gridKeypoints(identityPos)
	sparse := full[:9] // one under the default minimum

	_, err := MatchDescriptors(sparse, full, DefaultConfig())
	assert.ErrorIs(t, err, ErrTooFewKeypoints)

	_, err = MatchDescriptors(full, sparse, DefaultConfig())
	assert.ErrorIs(t, err, ErrTooFewKeypoints)

	// Exactly the minimum is accepted.
	ten := full[:10]
	matches, err := MatchDescriptors(ten, ten, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, matches, 10)
}

func TestMatchDescriptors_MatchesByDescriptor(t *testing.T) {
	ref := gridKeypoints(identityPos)
	target := gridKeypoints(func(x, y float64) (float64, float64) { return x + 5, y - 3 })

	matches, err := MatchDescriptors(target, ref, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, matches, 20)
	for _, m := range matches {
		assert.Equal(t, m.QueryIndex, m.TrainIndex)
		assert.InDelta(t, 0, m.Distance, 1e-9)
	}
}

func TestMatchDescriptors_RatioTestDropsAmbiguousMatches(t *testing.T) {
	ref := gridKeypoints(identityPos)
	target := gridKeypoints(identityPos)

	// A query descriptor equidistant from two reference descriptors
	// fails the ratio test and is dropped.
	ambiguous := make([]float32, 20)
	ambiguous[0] = 5
	ambiguous[1] = 5
	target = append(target, landmarks.Keypoint{X: 400, Y: 400, Descriptor: ambiguous})

	matches, err := MatchDescriptors(target, ref, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, matches, 20)
}

func TestMatchDescriptors_CrossCheckRequiresMutualBest(t *testing.T) {
	ref := gridKeypoints(identityPos)
	target := gridKeypoints(identityPos)

	// A second query keypoint carrying a copy of descriptor 0 matches
	// ref[0], but ref[0]'s own best match is the original query, so the
	// impostor is dropped only when cross-checking.
	impostor := make([]float32, 20)
	impostor[0] = 10.1
	target = append(target, landmarks.Keypoint{X: 500, Y: 500, Descriptor: impostor})

	cfg := DefaultConfig()
	matches, err := MatchDescriptors(target, ref, cfg)
	require.NoError(t, err)
	assert.Len(t, matches, 21)

	cfg.CrossCheck = true
	matches, err = MatchDescriptors(target, ref, cfg)
	require.NoError(t, err)
	assert.Len(t, matches, 20)
}

func TestMatchDescriptors_TooFewSurvivors(t *testing.T) {
	ref := gridKeypoints(identityPos)

	// Every target descriptor is equidistant from two reference
	// descriptors, so the ratio test rejects everything.
	target := make([]landmarks.Keypoint, len(ref))
	for i := range target {
		desc := make([]float32, 20)
		desc[i] = 5
		desc[(i+1)%20] = 5
		target[i] = landmarks.Keypoint{X: ref[i].X, Y: ref[i].Y, Descriptor: desc}
	}

	_, err := MatchDescriptors(target, ref, DefaultConfig())
	assert.ErrorIs(t, err, ErrTooFewMatches)
}

func TestEstimateHomographyRANSAC_RecoversExactTranslation(t *testing.T) {
	src := make([]geometry.Point, 0, 20)
	dst := make([]geometry.Point, 0, 20)
	for _, kp := range gridKeypoints(identityPos) {
		src = append(src, geometry.Point{X: kp.X, Y: kp.Y})
		dst = append(dst, geometry.Point{X: kp.X + 12, Y: kp.Y - 7})
	}

	est, err := EstimateHomographyRANSAC(src, dst, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 20, est.InlierCount)
	assert.InDelta(t, 12, est.Homography.H13, 1e-6)
	assert.InDelta(t, -7, est.Homography.H23, 1e-6)
}

func TestEstimateHomographyRANSAC_IgnoresOutliers(t *testing.T) {
	src := make([]geometry.Point, 0, 20)
	dst := make([]geometry.Point, 0, 20)
	for _, kp := range gridKeypoints(identityPos) {
		src = append(src, geometry.Point{X: kp.X, Y: kp.Y})
		dst = append(dst, geometry.Point{X: kp.X + 12, Y: kp.Y - 7})
	}
	// Corrupt four correspondences well past the inlier threshold.
	for i := range 4 {
		dst[i*5].X += 300
		dst[i*5].Y -= 150
	}

	est, err := EstimateHomographyRANSAC(src, dst, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 16, est.InlierCount)
	assert.InDelta(t, 12, est.Homography.H13, 1e-6)
	for i := range 4 {
		assert.False(t, est.InlierMask[i*5])
	}
}

func TestEstimateHomographyRANSAC_TooFewCorrespondences(t *testing.T) {
	pts := []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	_, err := EstimateHomographyRANSAC(pts, pts, DefaultConfig())
	assert.ErrorIs(t, err, ErrEstimationFailed)
}

func TestReprojection_Stats(t *testing.T) {
	src := make([]geometry.Point, 0, 20)
	for _, kp := range gridKeypoints(identityPos) {
		src = append(src, geometry.Point{X: kp.X, Y: kp.Y})
	}
	dst := make([]geometry.Point, len(src))
	copy(dst, src)
	dst[3].X += 10 // one gross outlier

	stats := Reprojection(geometry.IdentityHomography(), src, dst, 5.0)
	assert.InDelta(t, 0.5, stats.MeanError, 1e-9)
	assert.InDelta(t, 0, stats.MedianError, 1e-9)
	assert.InDelta(t, 10, stats.MaxError, 1e-9)
	assert.InDelta(t, 0.95, stats.InlierRatio, 1e-9)

	assert.True(t, stats.Acceptable(1.0, 0.9))
	assert.False(t, stats.Acceptable(0.1, 0.9))
	assert.False(t, stats.Acceptable(1.0, 0.99))
}

func TestFeatureMatchResult_IsValid(t *testing.T) {
	res := FeatureMatchResult{
		Homography:  geometry.IdentityHomography(),
		MatchCount:  20,
		InlierCount: 8,
		InlierRatio: 0.4,
	}

	assert.True(t, res.IsValid(10, 0.3))
	assert.False(t, res.IsValid(10, 0.5))
	assert.False(t, res.IsValid(21, 0.3))

	res.Homography = geometry.Homography{} // singular
	assert.False(t, res.IsValid(10, 0.3))
}

func TestMatchFrames_RecoversTargetToReferenceTransform(t *testing.T) {
	ref := gridKeypoints(identityPos)
	target := gridKeypoints(func(x, y float64) (float64, float64) { return x + 5, y })

	res, err := MatchFrames(ref, target, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, res.IsValid(10, 0.3))
	assert.Equal(t, 20, res.MatchCount)
	assert.Equal(t, 20, res.InlierCount)
	assert.InDelta(t, 1.0, res.InlierRatio, 1e-9)
	assert.InDelta(t, -5, res.Homography.H13, 1e-6)
	assert.InDelta(t, 0, res.Reprojection.MeanError, 1e-6)

	// The homography maps target pixels back onto reference pixels.
	x, y := res.Homography.TransformPoint(target[0].X, target[0].Y)
	assert.InDelta(t, ref[0].X, x, 1e-6)
	assert.InDelta(t, ref[0].Y, y, 1e-6)
}
