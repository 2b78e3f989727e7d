package detector

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sort"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/steadycam/steady/internal/features"
	"github.com/steadycam/steady/internal/landmarks"
	"github.com/steadycam/steady/internal/mempool"
	"github.com/steadycam/steady/internal/models"
	"github.com/steadycam/steady/internal/onnx"
)

// Scene feature model layout: each output row is one keypoint as
// [x, y, response, descriptor...], coordinates normalized to [0, 1]
// relative to the model input.
const (
	sceneDescriptorLen = 32
	sceneRowLen        = 3 + sceneDescriptorLen
)

// SceneConfig configures the landscape keypoint detector.
type SceneConfig struct {
	// ModelPath is the ONNX model file. Empty resolves from ModelsDir.
	ModelPath string

	// ModelsDir overrides the models directory lookup.
	ModelsDir string

	// InputSize is the square side the frame is stretched to before
	// inference.
	InputSize int

	// MinResponse drops weak keypoints.
	MinResponse float64

	// MaxKeypoints caps how many keypoints a detection returns, keeping
	// the strongest responses. Fewer than 10 cannot support homography
	// estimation, so lower values are rejected.
	MaxKeypoints int

	// NumThreads caps intra-op parallelism (0 = runtime default).
	NumThreads int

	// GPU configures CUDA acceleration.
	GPU onnx.GPUConfig
}

// DefaultSceneConfig returns the default scene-detector configuration.
func DefaultSceneConfig() SceneConfig {
	return SceneConfig{
		InputSize:    512,
		MinResponse:  0.01,
		MaxKeypoints: 500,
		GPU:          onnx.DefaultGPUConfig(),
	}
}

// Validate rejects configurations the detector cannot run with.
func (c SceneConfig) Validate() error {
	if c.InputSize < 32 {
		return fmt.Errorf("input size %d too small, need at least 32", c.InputSize)
	}
	if c.MinResponse < 0 {
		return fmt.Errorf("min response must be non-negative, got %g", c.MinResponse)
	}
	if c.MaxKeypoints < 10 {
		return fmt.Errorf("max keypoints must be at least 10, got %d", c.MaxKeypoints)
	}
	return nil
}

// ONNXFeatureDetector runs the scene feature model. It implements
// features.FeatureDetector.
type ONNXFeatureDetector struct {
	cfg     SceneConfig
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// NewSceneDetector loads the scene feature model.
func NewSceneDetector(cfg SceneConfig) (*ONNXFeatureDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene detector config: %w", err)
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = models.GetSceneModelPath(cfg.ModelsDir)
	}
	if err := models.ValidateModelPath(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("scene feature model: %w", err)
	}

	if err := setupONNXEnvironment(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	session, err := createSceneSession(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("scene feature detector ready", "model", cfg.ModelPath)
	return &ONNXFeatureDetector{cfg: cfg, session: session}, nil
}

func createSceneSession(cfg SceneConfig) (*ort.DynamicAdvancedSession, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("failed to destroy session options", "error", err)
		}
	}()

	if err := onnx.ConfigureSessionForGPU(opts, cfg.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{inputName}, []string{"keypoints"}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return session, nil
}

// Name identifies the detector in logs and match results.
func (d *ONNXFeatureDetector) Name() string { return "scene_features" }

// Detect returns the keypoints found on the frame, in pixel
// coordinates of img.
func (d *ONNXFeatureDetector) Detect(ctx context.Context, img image.Image) ([]landmarks.Keypoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("nil input image")
	}

	data := preprocess(img, d.cfg.InputSize)
	defer mempool.PutFloat32(data)

	d.mu.Lock()
	if d.session == nil {
		d.mu.Unlock()
		return nil, landmarks.ErrDetectorUnavailable
	}
	out, err := runSession(d.session, data, d.cfg.InputSize)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return decodeKeypoints(out, float64(b.Dx()), float64(b.Dy()), d.cfg.MinResponse, d.cfg.MaxKeypoints)
}

// decodeKeypoints parses the flat model output into keypoints, scaling
// normalized coordinates to the frame size and dropping weak
// responses. When more than maxKeypoints survive, only the strongest
// responses are kept; maxKeypoints <= 0 disables the cap.
func decodeKeypoints(out []float32, width, height, minResponse float64, maxKeypoints int) ([]landmarks.Keypoint, error) {
	if len(out)%sceneRowLen != 0 {
		return nil, fmt.Errorf("scene model output length %d is not a multiple of %d", len(out), sceneRowLen)
	}

	count := len(out) / sceneRowLen
	kps := make([]landmarks.Keypoint, 0, count)
	for i := 0; i < count; i++ {
		row := out[i*sceneRowLen : (i+1)*sceneRowLen]
		response := float64(row[2])
		if response < minResponse {
			continue
		}
		desc := make([]float32, sceneDescriptorLen)
		copy(desc, row[3:])
		kps = append(kps, landmarks.Keypoint{
			X:          float64(row[0]) * width,
			Y:          float64(row[1]) * height,
			Response:   response,
			Descriptor: desc,
		})
	}
	if maxKeypoints > 0 && len(kps) > maxKeypoints {
		sort.SliceStable(kps, func(i, j int) bool { return kps[i].Response > kps[j].Response })
		kps = kps[:maxKeypoints]
	}
	return kps, nil
}

var _ features.FeatureDetector = (*ONNXFeatureDetector)(nil)

// Close releases the session.
func (d *ONNXFeatureDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.session = nil
	return err
}
