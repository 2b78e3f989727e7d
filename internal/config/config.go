// Package config defines the application configuration and its loader.
package config

import (
	"fmt"

	"github.com/steadycam/steady/internal/calculator"
	"github.com/steadycam/steady/internal/detector"
	"github.com/steadycam/steady/internal/features"
	"github.com/steadycam/steady/internal/frames"
	"github.com/steadycam/steady/internal/landmarks"
	"github.com/steadycam/steady/internal/models"
	"github.com/steadycam/steady/internal/onnx"
	"github.com/steadycam/steady/internal/pipeline"
	"github.com/steadycam/steady/internal/stabilize"
)

const infoLevel = "info"

// Config is the complete configuration for the steady application. It
// covers all commands (align, batch, serve) and loads from config
// files, environment variables and command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Align     AlignConfig     `mapstructure:"align" yaml:"align" json:"align"`
	Layout    LayoutConfig    `mapstructure:"layout" yaml:"layout" json:"layout"`
	Stabilize StabilizeConfig `mapstructure:"stabilize" yaml:"stabilize" json:"stabilize"`
	Features  FeaturesConfig  `mapstructure:"features" yaml:"features" json:"features"`
	Detector  DetectorConfig  `mapstructure:"detector" yaml:"detector" json:"detector"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch" json:"batch"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server" json:"server"`
	GPU       GPUConfig       `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// AlignConfig selects what is aligned and where output goes.
type AlignConfig struct {
	ContentKind string `mapstructure:"content_kind" yaml:"content_kind" json:"content_kind"`
	Mode        string `mapstructure:"mode" yaml:"mode" json:"mode"`
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	RecordsDir  string `mapstructure:"records_dir" yaml:"records_dir" json:"records_dir"`
	DebugDir    string `mapstructure:"debug_dir" yaml:"debug_dir" json:"debug_dir"`
}

// LayoutConfig describes the goal layout of aligned frames.
type LayoutConfig struct {
	OutputSize             int     `mapstructure:"output_size" yaml:"output_size" json:"output_size"`
	TargetEyeDistance      float64 `mapstructure:"target_eye_distance" yaml:"target_eye_distance" json:"target_eye_distance"`
	TargetShoulderDistance float64 `mapstructure:"target_shoulder_distance" yaml:"target_shoulder_distance" json:"target_shoulder_distance"`
	VerticalOffset         float64 `mapstructure:"vertical_offset" yaml:"vertical_offset" json:"vertical_offset"`
	HeadToWaistRatio       float64 `mapstructure:"head_to_waist_ratio" yaml:"head_to_waist_ratio" json:"head_to_waist_ratio"`
}

// StabilizeConfig tunes the multi-pass subject stabilization loop.
type StabilizeConfig struct {
	RotationStopThreshold  float64 `mapstructure:"rotation_stop_threshold" yaml:"rotation_stop_threshold" json:"rotation_stop_threshold"`
	ScaleErrorThreshold    float64 `mapstructure:"scale_error_threshold" yaml:"scale_error_threshold" json:"scale_error_threshold"`
	ConvergenceThreshold   float64 `mapstructure:"convergence_threshold" yaml:"convergence_threshold" json:"convergence_threshold"`
	SuccessScoreThreshold  float64 `mapstructure:"success_score_threshold" yaml:"success_score_threshold" json:"success_score_threshold"`
	NoActionScoreThreshold float64 `mapstructure:"no_action_score_threshold" yaml:"no_action_score_threshold" json:"no_action_score_threshold"`
	DampingFactor          float64 `mapstructure:"damping_factor" yaml:"damping_factor" json:"damping_factor"`
	MaxPassesFast          int     `mapstructure:"max_passes_fast" yaml:"max_passes_fast" json:"max_passes_fast"`
	MaxSubPassesPerStage   int     `mapstructure:"max_sub_passes_per_stage" yaml:"max_sub_passes_per_stage" json:"max_sub_passes_per_stage"`
}

// FeaturesConfig tunes the landscape feature-matching pipeline.
type FeaturesConfig struct {
	RatioThreshold   float64 `mapstructure:"ratio_threshold" yaml:"ratio_threshold" json:"ratio_threshold"`
	CrossCheck       bool    `mapstructure:"cross_check" yaml:"cross_check" json:"cross_check"`
	MinKeypoints     int     `mapstructure:"min_keypoints" yaml:"min_keypoints" json:"min_keypoints"`
	MinMatches       int     `mapstructure:"min_matches" yaml:"min_matches" json:"min_matches"`
	MinInlierRatio   float64 `mapstructure:"min_inlier_ratio" yaml:"min_inlier_ratio" json:"min_inlier_ratio"`
	InlierThreshold  float64 `mapstructure:"inlier_threshold" yaml:"inlier_threshold" json:"inlier_threshold"`
	RansacIterations int     `mapstructure:"ransac_iterations" yaml:"ransac_iterations" json:"ransac_iterations"`
	MaxPasses        int     `mapstructure:"max_passes" yaml:"max_passes" json:"max_passes"`
}

// DetectorConfig tunes the ONNX landmark detector.
type DetectorConfig struct {
	ModelPath     string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	InputSize     int     `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	NumThreads    int     `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// BatchConfig tunes batch alignment.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// GPUConfig contains GPU acceleration settings.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit uint64 `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	layout := calculator.DefaultLayout()
	settings := stabilize.DefaultSettings(stabilize.ModeFast)
	feats := features.DefaultConfig()
	det := detector.DefaultConfig()

	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  infoLevel,
		Align: AlignConfig{
			ContentKind: pipeline.ContentAuto,
			Mode:        string(stabilize.ModeFast),
			OutputDir:   "aligned",
			RecordsDir:  "aligned/records",
		},
		Layout: LayoutConfig{
			OutputSize:             layout.OutputSize,
			TargetEyeDistance:      layout.TargetEyeDistance,
			TargetShoulderDistance: layout.TargetShoulderDistance,
			VerticalOffset:         layout.VerticalOffset,
			HeadToWaistRatio:       layout.HeadToWaistRatio,
		},
		Stabilize: StabilizeConfig{
			RotationStopThreshold:  settings.RotationStopThreshold,
			ScaleErrorThreshold:    settings.ScaleErrorThreshold,
			ConvergenceThreshold:   settings.ConvergenceThreshold,
			SuccessScoreThreshold:  settings.SuccessScoreThreshold,
			NoActionScoreThreshold: settings.NoActionScoreThreshold,
			DampingFactor:          settings.DampingFactor,
			MaxPassesFast:          settings.MaxPassesFast,
			MaxSubPassesPerStage:   settings.MaxSubPassesPerStage,
		},
		Features: FeaturesConfig{
			RatioThreshold:   feats.RatioThreshold,
			CrossCheck:       feats.CrossCheck,
			MinKeypoints:     feats.MinKeypoints,
			MinMatches:       feats.MinMatches,
			MinInlierRatio:   feats.MinInlierRatio,
			InlierThreshold:  feats.InlierThreshold,
			RansacIterations: feats.RANSACIterations,
			MaxPasses:        feats.MaxPasses,
		},
		Detector: DetectorConfig{
			InputSize:     det.InputSize,
			MinConfidence: det.MinConfidence,
		},
		Batch: BatchConfig{
			Workers:         0, // 0 = NumCPU
			ContinueOnError: true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      120,
			ShutdownTimeout: 10,
		},
	}
}

// ToLayout converts the layout section.
func (c Config) ToLayout() calculator.Layout {
	return calculator.Layout{
		OutputSize:             c.Layout.OutputSize,
		TargetEyeDistance:      c.Layout.TargetEyeDistance,
		TargetShoulderDistance: c.Layout.TargetShoulderDistance,
		VerticalOffset:         c.Layout.VerticalOffset,
		HeadToWaistRatio:       c.Layout.HeadToWaistRatio,
	}
}

// ToSettings converts the stabilization section.
func (c Config) ToSettings() stabilize.Settings {
	return stabilize.Settings{
		Mode:                   stabilize.Mode(c.Align.Mode),
		RotationStopThreshold:  c.Stabilize.RotationStopThreshold,
		ScaleErrorThreshold:    c.Stabilize.ScaleErrorThreshold,
		ConvergenceThreshold:   c.Stabilize.ConvergenceThreshold,
		SuccessScoreThreshold:  c.Stabilize.SuccessScoreThreshold,
		NoActionScoreThreshold: c.Stabilize.NoActionScoreThreshold,
		DampingFactor:          c.Stabilize.DampingFactor,
		MaxPassesFast:          c.Stabilize.MaxPassesFast,
		MaxSubPassesPerStage:   c.Stabilize.MaxSubPassesPerStage,
	}
}

// ToFeatures converts the landscape feature section.
func (c Config) ToFeatures() features.Config {
	cfg := features.DefaultConfig()
	cfg.RatioThreshold = c.Features.RatioThreshold
	cfg.CrossCheck = c.Features.CrossCheck
	cfg.MinKeypoints = c.Features.MinKeypoints
	cfg.MinMatches = c.Features.MinMatches
	cfg.MinInlierRatio = c.Features.MinInlierRatio
	cfg.InlierThreshold = c.Features.InlierThreshold
	cfg.RANSACIterations = c.Features.RansacIterations
	cfg.MaxPasses = c.Features.MaxPasses
	return cfg
}

// ToDetector converts the detector section for the given subject kind.
func (c Config) ToDetector(kind landmarks.ContentKind) detector.Config {
	det := detector.DefaultConfig()
	det.Kind = kind
	det.ModelPath = c.Detector.ModelPath
	det.ModelsDir = c.ModelsDir
	det.InputSize = c.Detector.InputSize
	det.MinConfidence = c.Detector.MinConfidence
	det.NumThreads = c.Detector.NumThreads
	det.GPU = onnx.GPUConfig{
		UseGPU:                c.GPU.Enabled,
		DeviceID:              c.GPU.Device,
		GPUMemLimit:           c.GPU.MemoryLimit,
		ArenaExtendStrategy:   "kNextPowerOfTwo",
		CUDNNConvAlgoSearch:   "DEFAULT",
		DoCopyInDefaultStream: true,
	}
	if det.ModelPath == "" {
		det.UpdateModelPath(c.ModelsDir)
	}
	return det
}

// ToSceneDetector converts the detector section for the landscape
// feature model.
func (c Config) ToSceneDetector() detector.SceneConfig {
	sc := detector.DefaultSceneConfig()
	sc.ModelsDir = c.ModelsDir
	sc.NumThreads = c.Detector.NumThreads
	sc.GPU = onnx.GPUConfig{
		UseGPU:                c.GPU.Enabled,
		DeviceID:              c.GPU.Device,
		GPUMemLimit:           c.GPU.MemoryLimit,
		ArenaExtendStrategy:   "kNextPowerOfTwo",
		CUDNNConvAlgoSearch:   "DEFAULT",
		DoCopyInDefaultStream: true,
	}
	return sc
}

// ToPipeline converts the whole config into a pipeline config.
func (c Config) ToPipeline() pipeline.Config {
	return pipeline.Config{
		ContentKind: c.Align.ContentKind,
		OutputDir:   c.Align.OutputDir,
		DebugDir:    c.Align.DebugDir,
		Layout:      c.ToLayout(),
		Settings:    c.ToSettings(),
		Features:    c.ToFeatures(),
		Limits:      pipeline.DefaultConfig().Limits,
		Constraints: pipeline.DefaultConfig().Constraints,
		Batch:       frames.BatchConfig{MaxWorkers: c.Batch.Workers},
	}
}

// Validate checks the configuration, delegating to each component.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", infoLevel, "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if err := c.ToPipeline().Validate(); err != nil {
		return err
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("max upload must be at least 1 MB, got %d", c.Server.MaxUploadMB)
	}
	if err := onnx.ValidateGPUConfig(onnx.GPUConfig{UseGPU: c.GPU.Enabled, DeviceID: c.GPU.Device}); err != nil {
		return err
	}
	return nil
}
