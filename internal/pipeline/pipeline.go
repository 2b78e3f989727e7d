// Package pipeline wires detection, stabilization, landscape alignment
// and image IO into a single frame-alignment pipeline.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/steadycam/steady/internal/calculator"
	"github.com/steadycam/steady/internal/features"
	"github.com/steadycam/steady/internal/frames"
	"github.com/steadycam/steady/internal/landmarks"
	"github.com/steadycam/steady/internal/refine"
	"github.com/steadycam/steady/internal/stabilize"
	"github.com/steadycam/steady/internal/utils"
	"github.com/steadycam/steady/internal/warp"
)

// ContentAuto lets the pipeline pick between subject stabilization and
// landscape alignment based on what the detectors find.
const ContentAuto = "auto"

// Config holds configuration for the alignment pipeline and its
// components.
type Config struct {
	// ContentKind is "auto", "face", "body" or "landscape".
	ContentKind string

	// OutputDir receives aligned frames and their sidecar records.
	OutputDir string

	// DebugDir, when non-empty, receives a PNG of every stabilization
	// pass. Empty disables the dumps.
	DebugDir string

	Layout      calculator.Layout
	Settings    stabilize.Settings
	Features    features.Config
	Limits      refine.PerspectiveLimits
	Constraints utils.ImageConstraints
	Batch       frames.BatchConfig
}

// DefaultConfig returns a default pipeline config with component
// defaults.
func DefaultConfig() Config {
	return Config{
		ContentKind: ContentAuto,
		OutputDir:   "aligned",
		Layout:      calculator.DefaultLayout(),
		Settings:    stabilize.DefaultSettings(stabilize.ModeFast),
		Features:    features.DefaultConfig(),
		Limits:      refine.DefaultPerspectiveLimits(),
		Constraints: utils.DefaultImageConstraints(),
		Batch:       frames.DefaultBatchConfig(),
	}
}

// Validate checks the config and all component configs.
func (c Config) Validate() error {
	switch c.ContentKind {
	case ContentAuto, string(landmarks.KindFace), string(landmarks.KindBody), string(landmarks.KindLandscape):
	default:
		return fmt.Errorf("unknown content kind %q", c.ContentKind)
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := c.Features.Validate(); err != nil {
		return fmt.Errorf("features: %w", err)
	}
	return nil
}

// Aligner is the assembled pipeline. It is safe for concurrent use;
// all per-frame state lives on the stack of each call.
type Aligner struct {
	cfg             Config
	subjectDetector landmarks.Detector
	featureDetector features.FeatureDetector
	transformer     Transformer
	stabilizer      *stabilize.Stabilizer
	landscape       *features.Aligner
	store           frames.Store
	logger          *slog.Logger
	reference       referenceState
}

// Builder constructs an Aligner with fluent configuration.
type Builder struct {
	cfg             Config
	subjectDetector landmarks.Detector
	featureDetector features.FeatureDetector
	transformer     Transformer
	store           frames.Store
	progress        stabilize.ProgressSink
	logger          *slog.Logger
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole config.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithContentKind sets the content kind ("auto", "face", "body",
// "landscape").
func (b *Builder) WithContentKind(kind string) *Builder {
	if kind != "" {
		b.cfg.ContentKind = kind
	}
	return b
}

// WithMode sets the stabilization mode, keeping the remaining settings.
func (b *Builder) WithMode(mode stabilize.Mode) *Builder {
	b.cfg.Settings.Mode = mode
	return b
}

// WithOutputDir sets where aligned frames and sidecars are written.
func (b *Builder) WithOutputDir(dir string) *Builder {
	if dir != "" {
		b.cfg.OutputDir = dir
	}
	return b
}

// WithDebugDir enables per-pass debug PNG dumps into dir.
func (b *Builder) WithDebugDir(dir string) *Builder {
	if dir != "" {
		b.cfg.DebugDir = dir
	}
	return b
}

// WithLayout overrides the goal layout.
func (b *Builder) WithLayout(layout calculator.Layout) *Builder {
	b.cfg.Layout = layout
	return b
}

// WithSubjectDetector injects the face/body landmark detector.
func (b *Builder) WithSubjectDetector(d landmarks.Detector) *Builder {
	b.subjectDetector = d
	return b
}

// WithFeatureDetector injects the landscape keypoint detector.
func (b *Builder) WithFeatureDetector(d features.FeatureDetector) *Builder {
	b.featureDetector = d
	return b
}

// WithTransformer overrides the default image transformer.
func (b *Builder) WithTransformer(t Transformer) *Builder {
	b.transformer = t
	return b
}

// WithStore injects the frame record store. Without one, AlignFile
// still writes images but keeps no sidecar records.
func (b *Builder) WithStore(s frames.Store) *Builder {
	b.store = s
	return b
}

// WithProgress injects a per-pass progress sink.
func (b *Builder) WithProgress(p stabilize.ProgressSink) *Builder {
	b.progress = p
	return b
}

// WithLogger overrides the default slog logger.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates the configuration and assembles the pipeline. At
// least one detector must be provided; a landscape-only pipeline needs
// no subject detector and vice versa.
func (b *Builder) Build() (*Aligner, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if b.subjectDetector == nil && b.featureDetector == nil {
		return nil, errors.New("pipeline needs a subject detector, a feature detector, or both")
	}
	kind := b.cfg.ContentKind
	if (kind == string(landmarks.KindFace) || kind == string(landmarks.KindBody)) && b.subjectDetector == nil {
		return nil, fmt.Errorf("content kind %q requires a subject detector", kind)
	}
	if kind == string(landmarks.KindLandscape) && b.featureDetector == nil {
		return nil, errors.New(`content kind "landscape" requires a feature detector`)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	transformer := b.transformer
	if transformer == nil {
		transformer = NewTransformer(warp.New())
	}

	a := &Aligner{
		cfg:             b.cfg,
		subjectDetector: b.subjectDetector,
		featureDetector: b.featureDetector,
		transformer:     transformer,
		store:           b.store,
		logger:          logger,
	}

	progress := b.progress
	if b.cfg.DebugDir != "" {
		if err := os.MkdirAll(b.cfg.DebugDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating debug dir: %w", err)
		}
		progress = newDebugSink(b.cfg.DebugDir, progress)
	}

	if b.subjectDetector != nil {
		stab, err := stabilize.New(b.subjectDetector, transformer, b.cfg.Layout, b.cfg.Settings, progress)
		if err != nil {
			return nil, fmt.Errorf("building stabilizer: %w", err)
		}
		a.stabilizer = stab
	}
	if b.featureDetector != nil {
		landscape, err := features.NewAligner(b.featureDetector, transformer, b.cfg.Features, b.cfg.Limits, logger)
		if err != nil {
			return nil, fmt.Errorf("building landscape aligner: %w", err)
		}
		a.landscape = landscape
	}
	return a, nil
}
