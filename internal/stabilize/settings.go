// Package stabilize runs the multi-pass alignment loop: apply the
// current transform, re-detect landmarks on the result, score the
// deviation from the goal layout, and refine until convergence, the
// pass cap, or detection loss.
package stabilize

import "fmt"

// Mode selects the pass strategy.
type Mode string

const (
	// ModeFast applies damped translation corrections only, up to
	// MaxPassesFast passes.
	ModeFast Mode = "fast"
	// ModeSlow runs staged refinement: rotation, then scale, then
	// translation, each stage up to MaxSubPassesPerStage sub-passes.
	ModeSlow Mode = "slow"
)

// Settings holds the thresholds driving the stabilization loop. The
// numeric defaults are tuned empirically against the score metric;
// change them together or not at all.
type Settings struct {
	Mode Mode

	// RotationStopThreshold is the reference-pair deltaY (pixels) under
	// which the rotation stage is converged.
	RotationStopThreshold float64

	// ScaleErrorThreshold is the separation error (pixels) under which
	// the scale stage is converged.
	ScaleErrorThreshold float64

	// ConvergenceThreshold is the minimum score improvement between
	// passes for a SLOW stage to keep iterating.
	ConvergenceThreshold float64

	// SuccessScoreThreshold is the score above which a finished run
	// still needs correction and is reported as unsuccessful.
	SuccessScoreThreshold float64

	// NoActionScoreThreshold is the score under which a pass stops the
	// loop immediately as a success.
	NoActionScoreThreshold float64

	// MaxPassesFast caps the FAST loop, initial pass included.
	MaxPassesFast int

	// MaxSubPassesPerStage caps each SLOW stage.
	MaxSubPassesPerStage int

	// DampingFactor under-relaxes translation corrections.
	DampingFactor float64
}

// DefaultSettings returns the tuned defaults for the given mode.
func DefaultSettings(mode Mode) Settings {
	return Settings{
		Mode:                   mode,
		RotationStopThreshold:  2.0,
		ScaleErrorThreshold:    3.0,
		ConvergenceThreshold:   0.5,
		SuccessScoreThreshold:  10.0,
		NoActionScoreThreshold: 2.0,
		MaxPassesFast:          4,
		MaxSubPassesPerStage:   3,
		DampingFactor:          0.5,
	}
}

// Validate rejects settings that would make the loop degenerate.
func (s Settings) Validate() error {
	if s.Mode != ModeFast && s.Mode != ModeSlow {
		return fmt.Errorf("unknown stabilization mode %q", s.Mode)
	}
	if s.MaxPassesFast < 1 {
		return fmt.Errorf("max fast passes must be at least 1, got %d", s.MaxPassesFast)
	}
	if s.MaxSubPassesPerStage < 1 {
		return fmt.Errorf("max sub-passes per stage must be at least 1, got %d", s.MaxSubPassesPerStage)
	}
	if s.DampingFactor <= 0 || s.DampingFactor > 1 {
		return fmt.Errorf("damping factor %.3f outside (0, 1]", s.DampingFactor)
	}
	if s.NoActionScoreThreshold < 0 || s.SuccessScoreThreshold < 0 {
		return fmt.Errorf("score thresholds must be non-negative")
	}
	return nil
}
