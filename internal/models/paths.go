// Package models resolves landmark model files on disk.
package models

import (
	"errors"
	"os"
	"path/filepath"
)

// Model name constants to avoid typos and ensure consistency.
const (
	// FaceLandmarks detects eyes, nose and the face box.
	FaceLandmarks = "face_landmarks.onnx"

	// BodyLandmarks detects shoulders, hips and the body box.
	BodyLandmarks = "body_landmarks.onnx"

	// SceneFeatures detects keypoints with descriptors on landscape
	// frames.
	SceneFeatures = "scene_features.onnx"
)

// Default models directory.
const DefaultModelsDir = "models"

// Environment variable for models directory override.
const EnvModelsDir = "STEADY_MODELS_DIR"

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("could not find project root (go.mod not found)")
}

// GetModelsDir returns the models directory path from various sources.
// Priority: 1. Explicit modelsDir parameter, 2. Environment variable,
// 3. Project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}

	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}

	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}

	return DefaultModelsDir
}

// GetFaceModelPath returns the path of the face landmark model.
func GetFaceModelPath(modelsDir string) string {
	return filepath.Join(GetModelsDir(modelsDir), FaceLandmarks)
}

// GetBodyModelPath returns the path of the body landmark model.
func GetBodyModelPath(modelsDir string) string {
	return filepath.Join(GetModelsDir(modelsDir), BodyLandmarks)
}

// GetSceneModelPath returns the path of the scene feature model.
func GetSceneModelPath(modelsDir string) string {
	return filepath.Join(GetModelsDir(modelsDir), SceneFeatures)
}

// ValidateModelPath checks that a model file exists and is readable.
func ValidateModelPath(path string) error {
	if path == "" {
		return errors.New("model path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("model path is a directory")
	}
	return nil
}
