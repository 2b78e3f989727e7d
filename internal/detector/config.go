// Package detector implements the ONNX-backed landmark detector for
// face and body subjects.
package detector

import (
	"fmt"

	"github.com/steadycam/steady/internal/landmarks"
	"github.com/steadycam/steady/internal/models"
	"github.com/steadycam/steady/internal/onnx"
)

// Config holds configuration for the landmark detector.
type Config struct {
	// Kind selects the face or body model.
	Kind landmarks.ContentKind

	// ModelPath is the ONNX model file. Empty resolves from ModelsDir
	// by Kind.
	ModelPath string

	// ModelsDir overrides the models directory lookup.
	ModelsDir string

	// InputSize is the square side the frame is stretched to before
	// inference.
	InputSize int

	// MinConfidence is the detection score under which the frame is
	// treated as having no subject.
	MinConfidence float64

	// NumThreads caps intra-op parallelism (0 = runtime default).
	NumThreads int

	// GPU configures CUDA acceleration.
	GPU onnx.GPUConfig
}

// DefaultConfig returns the default face-detector configuration.
func DefaultConfig() Config {
	return Config{
		Kind:          landmarks.KindFace,
		InputSize:     256,
		MinConfidence: 0.5,
		GPU:           onnx.DefaultGPUConfig(),
	}
}

// UpdateModelPath re-resolves ModelPath from the given models directory
// according to Kind.
func (c *Config) UpdateModelPath(modelsDir string) {
	if modelsDir != "" {
		c.ModelsDir = modelsDir
	}
	switch c.Kind {
	case landmarks.KindBody:
		c.ModelPath = models.GetBodyModelPath(c.ModelsDir)
	default:
		c.ModelPath = models.GetFaceModelPath(c.ModelsDir)
	}
}

// Validate rejects configurations the detector cannot run with.
func (c Config) Validate() error {
	if c.Kind != landmarks.KindFace && c.Kind != landmarks.KindBody {
		return fmt.Errorf("detector kind %q is not a subject kind", c.Kind)
	}
	if c.InputSize < 32 {
		return fmt.Errorf("input size %d too small, need at least 32", c.InputSize)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence %.3f outside [0, 1]", c.MinConfidence)
	}
	return nil
}
