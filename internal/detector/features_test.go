package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sceneRow(x, y, response float32, firstDesc float32) []float32 {
	row := make([]float32, sceneRowLen)
	row[0], row[1], row[2] = x, y, response
	row[3] = firstDesc
	return row
}

func TestDefaultSceneConfigValidates(t *testing.T) {
	assert.NoError(t, DefaultSceneConfig().Validate())

	cfg := DefaultSceneConfig()
	cfg.InputSize = 16
	assert.Error(t, cfg.Validate())

	cfg = DefaultSceneConfig()
	cfg.MinResponse = -0.1
	assert.Error(t, cfg.Validate())
}

func TestSceneConfigMaxKeypointsBoundary(t *testing.T) {
	cfg := DefaultSceneConfig()
	cfg.MaxKeypoints = 10
	assert.NoError(t, cfg.Validate())

	cfg.MaxKeypoints = 9
	assert.Error(t, cfg.Validate())
}

func TestNewSceneDetectorMissingModelFails(t *testing.T) {
	cfg := DefaultSceneConfig()
	cfg.ModelPath = "/nonexistent/scene_features.onnx"
	_, err := NewSceneDetector(cfg)
	assert.Error(t, err)
}

func TestDecodeKeypoints(t *testing.T) {
	var out []float32
	out = append(out, sceneRow(0.25, 0.5, 0.9, 7)...)
	out = append(out, sceneRow(0.75, 0.1, 0.8, 8)...)

	kps, err := decodeKeypoints(out, 400, 200, 0, 0)
	require.NoError(t, err)
	require.Len(t, kps, 2)

	assert.InDelta(t, 100.0, kps[0].X, 1e-5)
	assert.InDelta(t, 100.0, kps[0].Y, 1e-5)
	assert.InDelta(t, 0.9, kps[0].Response, 1e-6)
	assert.Len(t, kps[0].Descriptor, sceneDescriptorLen)
	assert.InDelta(t, 7.0, kps[0].Descriptor[0], 1e-6)

	assert.InDelta(t, 300.0, kps[1].X, 1e-5)
	assert.InDelta(t, 20.0, kps[1].Y, 1e-5)
}

func TestDecodeKeypointsDropsWeakResponses(t *testing.T) {
	var out []float32
	out = append(out, sceneRow(0.5, 0.5, 0.9, 0)...)
	out = append(out, sceneRow(0.5, 0.5, 0.001, 0)...)

	kps, err := decodeKeypoints(out, 100, 100, 0.01, 0)
	require.NoError(t, err)
	assert.Len(t, kps, 1)
}

func TestDecodeKeypointsCapsToStrongestResponses(t *testing.T) {
	var out []float32
	out = append(out, sceneRow(0.1, 0.1, 0.3, 1)...)
	out = append(out, sceneRow(0.2, 0.2, 0.9, 2)...)
	out = append(out, sceneRow(0.3, 0.3, 0.6, 3)...)

	kps, err := decodeKeypoints(out, 100, 100, 0, 2)
	require.NoError(t, err)
	require.Len(t, kps, 2)
	assert.InDelta(t, 0.9, kps[0].Response, 1e-6)
	assert.InDelta(t, 0.6, kps[1].Response, 1e-6)
}

func TestDecodeKeypointsRejectsRaggedOutput(t *testing.T) {
	_, err := decodeKeypoints(make([]float32, sceneRowLen+1), 100, 100, 0, 0)
	assert.Error(t, err)
}

func TestDecodeKeypointsEmptyOutput(t *testing.T) {
	kps, err := decodeKeypoints(nil, 100, 100, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, kps)
}
