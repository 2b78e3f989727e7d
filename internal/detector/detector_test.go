package detector

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steadycam/steady/internal/landmarks"
	"github.com/steadycam/steady/internal/mempool"
	"github.com/steadycam/steady/internal/models"
	"github.com/steadycam/steady/internal/testutil"
)

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Kind = landmarks.KindLandscape
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.InputSize = 16
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MinConfidence = 1.5
	assert.Error(t, cfg.Validate())
}

func TestConfig_UpdateModelPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UpdateModelPath("/m")
	assert.Equal(t, filepath.Join("/m", models.FaceLandmarks), cfg.ModelPath)

	cfg.Kind = landmarks.KindBody
	cfg.UpdateModelPath("/m")
	assert.Equal(t, filepath.Join("/m", models.BodyLandmarks), cfg.ModelPath)
}

func TestNew_MissingModelFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestPreprocess_NCHWLayout(t *testing.T) {
	img := testutil.NewTestImage(4, 4) // uniform gray 128
	data := preprocess(img, 4)
	defer mempool.PutFloat32(data)

	require.Len(t, data, 3*4*4)
	want := float32(128) / 255.0
	for i, v := range data {
		assert.InDelta(t, want, v, 1e-3, "index %d", i)
	}
}

func TestPostprocessFace_ParsesLandmarks(t *testing.T) {
	out := []float32{
		0.9, // score
		0.2, 0.1, 0.8, 0.9, // box
		0.35, 0.4, // left eye
		0.65, 0.4, // right eye
		0.5, 0.55, // nose
	}
	lm, err := postprocessFace(out, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, lm.Score, 1e-6)
	assert.InDelta(t, 0.35, lm.LeftEye.X, 1e-6)
	assert.InDelta(t, 0.65, lm.RightEye.X, 1e-6)
	assert.InDelta(t, 0.55, lm.Nose.Y, 1e-6)
	assert.InDelta(t, 0.2, lm.Box.Left, 1e-6)
	assert.InDelta(t, 0.9, lm.Box.Bottom, 1e-6)
}

func TestPostprocessFace_LowScoreMeansNoSubject(t *testing.T) {
	out := make([]float32, faceOutputLen)
	out[0] = 0.3
	_, err := postprocessFace(out, 0.5)
	assert.ErrorIs(t, err, landmarks.ErrNoSubject)
}

func TestPostprocessFace_WrongLengthFails(t *testing.T) {
	_, err := postprocessFace(make([]float32, 7), 0.5)
	assert.Error(t, err)
}

func TestPostprocessBody_ParsesLandmarks(t *testing.T) {
	out := []float32{
		0.8, // score
		0.1, 0.2, 0.9, 1.0, // box
		0.3, 0.35, // left shoulder
		0.7, 0.35, // right shoulder
		0.35, 0.7, // left hip
		0.65, 0.7, // right hip
	}
	lm, err := postprocessBody(out, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, lm.Score, 1e-6)
	assert.InDelta(t, 0.3, lm.LeftShoulder.X, 1e-6)
	assert.InDelta(t, 0.7, lm.RightShoulder.X, 1e-6)
	assert.InDelta(t, 0.7, lm.LeftHip.Y, 1e-6)
}

func TestPostprocessBody_LowScoreMeansNoSubject(t *testing.T) {
	out := make([]float32, bodyOutputLen)
	out[0] = 0.1
	_, err := postprocessBody(out, 0.5)
	assert.ErrorIs(t, err, landmarks.ErrNoSubject)
}
