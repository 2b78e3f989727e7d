package detector

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/steadycam/steady/internal/landmarks"
	"github.com/steadycam/steady/internal/mempool"
	"github.com/steadycam/steady/internal/models"
	"github.com/steadycam/steady/internal/onnx"
)

// Model tensor names shared by the face and body landmark models.
const (
	inputName  = "image"
	outputName = "landmarks"
)

// ONNXDetector runs a landmark model through ONNX Runtime. It
// implements landmarks.Detector and is safe for concurrent use; the
// session is guarded because ONNX Runtime sessions are not reentrant
// for dynamic IO binding.
type ONNXDetector struct {
	cfg     Config
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// New creates a detector, loading the model and initializing the ONNX
// Runtime environment. Callers own the returned detector and must
// Close it.
func New(cfg Config) (*ONNXDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}
	if cfg.ModelPath == "" {
		cfg.UpdateModelPath(cfg.ModelsDir)
	}
	if err := models.ValidateModelPath(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("landmark model: %w", err)
	}

	if err := setupONNXEnvironment(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	session, err := createSession(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("landmark detector ready", "kind", cfg.Kind, "model", cfg.ModelPath)
	return &ONNXDetector{cfg: cfg, session: session}, nil
}

func setupONNXEnvironment(useGPU bool) error {
	if err := onnx.SetONNXLibraryPath(useGPU); err != nil {
		return fmt.Errorf("failed to set ONNX Runtime library path: %w", err)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
		}
	}
	return nil
}

func createSession(cfg Config) (*ort.DynamicAdvancedSession, error) {
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
		[]string{inputName}, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return session, nil
}

// Available reports whether the detector holds a live session.
func (d *ONNXDetector) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session != nil
}

// Detect runs the landmark model on the frame. Subjects scoring below
// MinConfidence surface landmarks.ErrNoSubject.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image) (landmarks.Landmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("nil input image")
	}

	data := preprocess(img, d.cfg.InputSize)
	defer mempool.PutFloat32(data)

	out, err := d.run(data)
	if err != nil {
		return nil, err
	}

	if d.cfg.Kind == landmarks.KindBody {
		lm, err := postprocessBody(out, d.cfg.MinConfidence)
		if err != nil {
			return nil, err
		}
		return lm, nil
	}
	lm, err := postprocessFace(out, d.cfg.MinConfidence)
	if err != nil {
		return nil, err
	}
	return lm, nil
}

func (d *ONNXDetector) run(data []float32) ([]float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil, landmarks.ErrDetectorUnavailable
	}
	return runSession(d.session, data, d.cfg.InputSize)
}

// runSession feeds one NCHW frame through a session and copies out the
// flat float32 output. Callers hold whatever lock guards the session.
func runSession(session *ort.DynamicAdvancedSession, data []float32, inputSize int) ([]float32, error) {
	t, err := onnx.NewImageTensor(data, 3, inputSize, inputSize)
	if err != nil {
		return nil, fmt.Errorf("building input tensor: %w", err)
	}
	input, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}
	defer func() {
		if err := input.Destroy(); err != nil {
			slog.Warn("failed to destroy input tensor", "error", err)
		}
	}()

	outputs := []ort.Value{nil}
	if err := session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("running landmark model: %w", err)
	}
	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("landmark model returned unexpected output type %T", outputs[0])
	}
	defer func() {
		if err := tensor.Destroy(); err != nil {
			slog.Warn("failed to destroy output tensor", "error", err)
		}
	}()

	src := tensor.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

// Close releases the session. The detector reports unavailable
// afterwards.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil
	}
	err := d.session.Destroy()
	d.session = nil
	return err
}

var _ landmarks.Detector = (*ONNXDetector)(nil)
