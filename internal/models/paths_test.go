package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelsDir_ExplicitWins(t *testing.T) {
	t.Setenv(EnvModelsDir, "/env/models")
	assert.Equal(t, "/explicit", GetModelsDir("/explicit"))
}

func TestGetModelsDir_EnvFallback(t *testing.T) {
	t.Setenv(EnvModelsDir, "/env/models")
	assert.Equal(t, "/env/models", GetModelsDir(""))
}

func TestModelPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("/m", FaceLandmarks), GetFaceModelPath("/m"))
	assert.Equal(t, filepath.Join("/m", BodyLandmarks), GetBodyModelPath("/m"))
}

func TestValidateModelPath(t *testing.T) {
	assert.Error(t, ValidateModelPath(""))
	assert.Error(t, ValidateModelPath(filepath.Join(t.TempDir(), "missing.onnx")))
	assert.Error(t, ValidateModelPath(t.TempDir()))

	path := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o600))
	assert.NoError(t, ValidateModelPath(path))
}
