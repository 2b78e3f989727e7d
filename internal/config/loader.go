package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name of the config file (steady.yaml).
	ConfigFileName = "steady"

	// EnvPrefix prefixes environment overrides, e.g.
	// STEADY_ALIGN_CONTENT_KIND.
	EnvPrefix = "STEADY"
)

// Loader reads configuration from files and the environment, layered
// over the built-in defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader bound to the global viper instance so
// cobra flag bindings made elsewhere participate in precedence.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWith creates a loader over a private viper instance. Tests
// use this to avoid global state.
func NewLoaderWith(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// GetViper exposes the underlying viper instance for flag binding.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// Load reads configuration from the standard search paths. A missing
// config file is not an error; environment overrides still apply.
func (l *Loader) Load() (Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	return l.read(false)
}

// LoadWithFile reads configuration from an explicit file path. The
// file must exist.
func (l *Loader) LoadWithFile(path string) (Config, error) {
	l.v.SetConfigFile(path)
	return l.read(true)
}

func (l *Loader) read(fileRequired bool) (Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if fileRequired || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// addConfigPaths registers the config search order: working directory,
// XDG config dir, home directory, then /etc/steady.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// GetConfigSearchPaths returns the directories searched for
// steady.yaml, in precedence order.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	if xdg, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(xdg, ConfigFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	paths = append(paths, filepath.Join("/etc", ConfigFileName))
	return paths
}

// setDefaults seeds viper with the built-in defaults so partial config
// files only override what they mention.
func (l *Loader) setDefaults() {
	def := DefaultConfig()

	l.v.SetDefault("models_dir", def.ModelsDir)
	l.v.SetDefault("log_level", def.LogLevel)
	l.v.SetDefault("verbose", def.Verbose)

	l.v.SetDefault("align.content_kind", def.Align.ContentKind)
	l.v.SetDefault("align.mode", def.Align.Mode)
	l.v.SetDefault("align.output_dir", def.Align.OutputDir)
	l.v.SetDefault("align.records_dir", def.Align.RecordsDir)
	l.v.SetDefault("align.debug_dir", def.Align.DebugDir)

	l.v.SetDefault("layout.output_size", def.Layout.OutputSize)
	l.v.SetDefault("layout.target_eye_distance", def.Layout.TargetEyeDistance)
	l.v.SetDefault("layout.target_shoulder_distance", def.Layout.TargetShoulderDistance)
	l.v.SetDefault("layout.vertical_offset", def.Layout.VerticalOffset)
	l.v.SetDefault("layout.head_to_waist_ratio", def.Layout.HeadToWaistRatio)

	l.v.SetDefault("stabilize.rotation_stop_threshold", def.Stabilize.RotationStopThreshold)
	l.v.SetDefault("stabilize.scale_error_threshold", def.Stabilize.ScaleErrorThreshold)
	l.v.SetDefault("stabilize.convergence_threshold", def.Stabilize.ConvergenceThreshold)
	l.v.SetDefault("stabilize.success_score_threshold", def.Stabilize.SuccessScoreThreshold)
	l.v.SetDefault("stabilize.no_action_score_threshold", def.Stabilize.NoActionScoreThreshold)
	l.v.SetDefault("stabilize.damping_factor", def.Stabilize.DampingFactor)
	l.v.SetDefault("stabilize.max_passes_fast", def.Stabilize.MaxPassesFast)
	l.v.SetDefault("stabilize.max_sub_passes_per_stage", def.Stabilize.MaxSubPassesPerStage)

	l.v.SetDefault("features.ratio_threshold", def.Features.RatioThreshold)
	l.v.SetDefault("features.cross_check", def.Features.CrossCheck)
	l.v.SetDefault("features.min_keypoints", def.Features.MinKeypoints)
	l.v.SetDefault("features.min_matches", def.Features.MinMatches)
	l.v.SetDefault("features.min_inlier_ratio", def.Features.MinInlierRatio)
	l.v.SetDefault("features.inlier_threshold", def.Features.InlierThreshold)
	l.v.SetDefault("features.ransac_iterations", def.Features.RansacIterations)
	l.v.SetDefault("features.max_passes", def.Features.MaxPasses)

	l.v.SetDefault("detector.model_path", def.Detector.ModelPath)
	l.v.SetDefault("detector.input_size", def.Detector.InputSize)
	l.v.SetDefault("detector.min_confidence", def.Detector.MinConfidence)
	l.v.SetDefault("detector.num_threads", def.Detector.NumThreads)

	l.v.SetDefault("batch.workers", def.Batch.Workers)
	l.v.SetDefault("batch.continue_on_error", def.Batch.ContinueOnError)

	l.v.SetDefault("server.host", def.Server.Host)
	l.v.SetDefault("server.port", def.Server.Port)
	l.v.SetDefault("server.cors_origin", def.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", def.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", def.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", def.Server.ShutdownTimeout)

	l.v.SetDefault("gpu.enabled", def.GPU.Enabled)
	l.v.SetDefault("gpu.device", def.GPU.Device)
	l.v.SetDefault("gpu.memory_limit", def.GPU.MemoryLimit)
}

// GenerateDefaultConfigFile writes the default configuration as YAML
// to the given path. It refuses to overwrite an existing file.
func GenerateDefaultConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
