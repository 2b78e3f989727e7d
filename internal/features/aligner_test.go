package features

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steadycam/steady/internal/geometry"
	"github.com/steadycam/steady/internal/landmarks"
	"github.com/steadycam/steady/internal/refine"
	"github.com/steadycam/steady/internal/testutil"
)

// scriptedFeatureDetector replays keypoint sets in order; the last
// entry repeats once the script is exhausted.
type scriptedFeatureDetector struct {
	script [][]landmarks.Keypoint
	errs   []error
	calls  int
}

func (d *scriptedFeatureDetector) Name() string { return "scripted" }

func (d *scriptedFeatureDetector) Detect(_ context.Context, _ image.Image) ([]landmarks.Keypoint, error) {
	idx := d.calls
	if idx >= len(d.script) {
		idx = len(d.script) - 1
	}
	d.calls++
	if idx < len(d.errs) && d.errs[idx] != nil {
		return nil, d.errs[idx]
	}
	return d.script[idx], nil
}

// recordingHomographyWarper records applied matrices and hands back
// fresh canvases.
type recordingHomographyWarper struct {
	matrices []geometry.Homography
}

func (w *recordingHomographyWarper) ApplyHomography(_ image.Image, h geometry.Homography, outW, outH int) (image.Image, error) {
	w.matrices = append(w.matrices, h)
	return testutil.NewTestImage(outW, outH), nil
}

func scaledGrid(factor float64) []landmarks.Keypoint {
	return gridKeypoints(func(x, y float64) (float64, float64) {
		return x * factor, y * factor
	})
}

func TestAlign_ConvergesOnceCorrectionIsNearIdentity(t *testing.T) {
	ref := gridKeypoints(identityPos)
	detector := &scriptedFeatureDetector{
		script: [][]landmarks.Keypoint{
			ref,              // reference frame
			scaledGrid(1.25), // pass 1 sees a zoomed-in target
			ref,              // pass 2 sees it registered
		},
	}
	warper := &recordingHomographyWarper{}

	aligner, err := NewAligner(detector, warper, DefaultConfig(), refine.DefaultPerspectiveLimits(), nil)
	require.NoError(t, err)

	out, err := aligner.Align(context.Background(), testutil.NewTestImage(640, 480), testutil.NewTestImage(640, 480))
	require.NoError(t, err)

	assert.True(t, out.Converged)
	assert.Equal(t, 2, out.Passes)
	require.Len(t, warper.matrices, 2)
	// Pass 1 undoes the 1.25x zoom, pass 2 is near identity.
	assert.InDelta(t, 0.8, warper.matrices[0].H11, 1e-6)
	assert.InDelta(t, 1.0, warper.matrices[1].H11, 1e-6)
	assert.True(t, out.Result.IsValid(10, 0.3))
}

func TestAlign_StopsAtPassCapWithoutConverging(t *testing.T) {
	ref := gridKeypoints(identityPos)
	detector := &scriptedFeatureDetector{
		// The target stubbornly reports the same zoom every pass, as if
		// each correction had no effect.
		script: [][]landmarks.Keypoint{ref, scaledGrid(1.25)},
	}
	warper := &recordingHomographyWarper{}

	aligner, err := NewAligner(detector, warper, DefaultConfig(), refine.DefaultPerspectiveLimits(), nil)
	require.NoError(t, err)

	out, err := aligner.Align(context.Background(), testutil.NewTestImage(640, 480), testutil.NewTestImage(640, 480))
	require.NoError(t, err)
	assert.False(t, out.Converged)
	assert.Equal(t, DefaultConfig().MaxPasses, out.Passes)
}

func TestAlign_FailsWhenReferenceDetectionFails(t *testing.T) {
	errBroken := errors.New("sensor offline")
	detector := &scriptedFeatureDetector{
		script: [][]landmarks.Keypoint{nil},
		errs:   []error{errBroken},
	}
	aligner, err := NewAligner(detector, &recordingHomographyWarper{}, DefaultConfig(), refine.DefaultPerspectiveLimits(), nil)
	require.NoError(t, err)

	_, err = aligner.Align(context.Background(), testutil.NewTestImage(64, 64), testutil.NewTestImage(64, 64))
	assert.ErrorIs(t, err, errBroken)
}

func TestAlign_FailsWhenFirstPassCannotMatch(t *testing.T) {
	ref := gridKeypoints(identityPos)
	detector := &scriptedFeatureDetector{
		script: [][]landmarks.Keypoint{ref, ref[:5]}, // target too sparse
	}
	aligner, err := NewAligner(detector, &recordingHomographyWarper{}, DefaultConfig(), refine.DefaultPerspectiveLimits(), nil)
	require.NoError(t, err)

	_, err = aligner.Align(context.Background(), testutil.NewTestImage(64, 64), testutil.NewTestImage(64, 64))
	assert.ErrorIs(t, err, ErrTooFewKeypoints)
}

func TestAlign_KeepsPreviousPassWhenDetectionDegrades(t *testing.T) {
	ref := gridKeypoints(identityPos)
	detector := &scriptedFeatureDetector{
		script: [][]landmarks.Keypoint{ref, scaledGrid(1.25), ref[:5]},
	}
	warper := &recordingHomographyWarper{}
	aligner, err := NewAligner(detector, warper, DefaultConfig(), refine.DefaultPerspectiveLimits(), nil)
	require.NoError(t, err)

	out, err := aligner.Align(context.Background(), testutil.NewTestImage(640, 480), testutil.NewTestImage(640, 480))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Passes)
	assert.False(t, out.Converged)
	assert.Len(t, warper.matrices, 1)
}

func TestAlign_RespectsContextCancellation(t *testing.T) {
	ref := gridKeypoints(identityPos)
	detector := &scriptedFeatureDetector{
		script: [][]landmarks.Keypoint{ref, scaledGrid(1.25)},
	}
	aligner, err := NewAligner(detector, &recordingHomographyWarper{}, DefaultConfig(), refine.DefaultPerspectiveLimits(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = aligner.Align(ctx, testutil.NewTestImage(64, 64), testutil.NewTestImage(64, 64))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAligner_Validation(t *testing.T) {
	detector := &scriptedFeatureDetector{script: [][]landmarks.Keypoint{nil}}
	warper := &recordingHomographyWarper{}

	_, err := NewAligner(nil, warper, DefaultConfig(), refine.DefaultPerspectiveLimits(), nil)
	assert.Error(t, err)

	_, err = NewAligner(detector, nil, DefaultConfig(), refine.DefaultPerspectiveLimits(), nil)
	assert.Error(t, err)

	bad := DefaultConfig()
	bad.RatioThreshold = 0.3
	_, err = NewAligner(detector, warper, bad, refine.DefaultPerspectiveLimits(), nil)
	assert.Error(t, err)
}
