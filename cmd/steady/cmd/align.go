package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/steadycam/steady/internal/config"
	"github.com/steadycam/steady/internal/detector"
	"github.com/steadycam/steady/internal/frames"
	"github.com/steadycam/steady/internal/landmarks"
	"github.com/steadycam/steady/internal/pipeline"
	"github.com/steadycam/steady/internal/stabilize"
)

// alignCmd aligns one or more frames sequentially.
var alignCmd = &cobra.Command{
	Use:   "align [files...]",
	Short: "Align frames against the goal layout",
	Long: `Align one or more frames. Face and body frames are stabilized so the
detected landmarks land on the configured layout; landscape frames are
registered against the first frame of the run.

Supported formats: JPEG, PNG, BMP, TIFF

Examples:
  steady align selfie.jpg --kind face
  steady align frames/*.jpg --kind landscape --output-dir aligned
  steady align frame.png --mode slow --format json`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runAlignCommand,
}

func runAlignCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	aligner, cleanup, err := buildAligner(cfg, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	format, _ := cmd.Flags().GetString("format")

	for _, path := range args {
		frame, err := aligner.AlignFile(cmd.Context(), path)
		if err != nil {
			return err
		}
		if err := printFrame(cmd, frame, format); err != nil {
			return err
		}
	}
	return nil
}

func printFrame(cmd *cobra.Command, frame frames.Frame, format string) error {
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(frame)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(),
		"%s -> %s  kind=%s confidence=%.3f passes=%d stop=%s\n",
		frame.SourcePath, frame.AlignedPath, frame.ContentKind,
		frame.Confidence, frame.Passes, frame.StopReason)
	return err
}

// buildAligner assembles the pipeline from config and command flags.
// The returned cleanup closes the detector sessions.
func buildAligner(cfg *config.Config, cmd *cobra.Command) (*pipeline.Aligner, func(), error) {
	kind := cfg.Align.ContentKind
	if cmd.Flags().Changed("kind") {
		kind, _ = cmd.Flags().GetString("kind")
	}

	mode := cfg.Align.Mode
	if cmd.Flags().Changed("mode") {
		mode, _ = cmd.Flags().GetString("mode")
	}

	outputDir := cfg.Align.OutputDir
	if cmd.Flags().Changed("output-dir") {
		outputDir, _ = cmd.Flags().GetString("output-dir")
	}

	recordsDir := cfg.Align.RecordsDir
	if cmd.Flags().Changed("records-dir") {
		recordsDir, _ = cmd.Flags().GetString("records-dir")
	}

	debugDir := cfg.Align.DebugDir
	if cmd.Flags().Changed("debug-dir") {
		debugDir, _ = cmd.Flags().GetString("debug-dir")
	}

	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	builder := pipeline.NewBuilder().
		WithConfig(cfg.ToPipeline()).
		WithContentKind(kind).
		WithMode(stabilize.Mode(mode)).
		WithOutputDir(outputDir).
		WithDebugDir(debugDir)

	// Face and body alignment need the subject landmark model. In auto
	// mode the subject detector leads and landscape is the fallback.
	if kind != string(landmarks.KindLandscape) {
		subjectKind := landmarks.KindFace
		if kind == string(landmarks.KindBody) {
			subjectKind = landmarks.KindBody
		}
		det, err := detector.New(cfg.ToDetector(subjectKind))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("loading %s landmark model: %w", subjectKind, err)
		}
		closers = append(closers, func() { _ = det.Close() })
		builder = builder.WithSubjectDetector(det)
	}

	if kind == string(landmarks.KindLandscape) || kind == pipeline.ContentAuto {
		scene, err := detector.NewSceneDetector(cfg.ToSceneDetector())
		switch {
		case err == nil:
			closers = append(closers, func() { _ = scene.Close() })
			builder = builder.WithFeatureDetector(scene)
		case kind == string(landmarks.KindLandscape):
			cleanup()
			return nil, nil, fmt.Errorf("loading scene feature model: %w", err)
		default:
			// Auto mode works without the landscape fallback.
			slog.Warn("scene feature model unavailable, auto mode is subject-only", "error", err)
		}
	}

	if recordsDir != "" {
		store, err := frames.NewDirStore(recordsDir)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		builder = builder.WithStore(store)
	}

	aligner, err := builder.Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return aligner, cleanup, nil
}

func init() {
	rootCmd.AddCommand(alignCmd)
	addAlignFlags(alignCmd)
	alignCmd.Flags().String("format", "text", "output format (text, json)")
}

// addAlignFlags registers the flags shared by align and batch.
func addAlignFlags(c *cobra.Command) {
	c.Flags().StringP("kind", "k", "auto", "content kind (auto, face, body, landscape)")
	c.Flags().StringP("mode", "m", "fast", "stabilization mode (fast, slow)")
	c.Flags().StringP("output-dir", "o", "aligned", "directory for aligned frames")
	c.Flags().String("records-dir", "", "directory for YAML frame records (empty disables records)")
	c.Flags().String("debug-dir", "", "directory for per-pass debug PNGs (empty disables)")
}
