package features

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/steadycam/steady/internal/geometry"
	"github.com/steadycam/steady/internal/refine"
)

// HomographyWarper resamples an image through a projective transform.
type HomographyWarper interface {
	ApplyHomography(img image.Image, h geometry.Homography, outW, outH int) (image.Image, error)
}

// Aligner aligns landscape frames against a reference frame by
// iterating detect-match-estimate-warp passes until the per-pass
// correction shrinks to near identity.
type Aligner struct {
	detector FeatureDetector
	warper   HomographyWarper
	cfg      Config
	limits   refine.PerspectiveLimits
	logger   *slog.Logger
}

// NewAligner wires a landscape aligner. A nil logger falls back to the
// default slog logger.
func NewAligner(detector FeatureDetector, warper HomographyWarper, cfg Config, limits refine.PerspectiveLimits, logger *slog.Logger) (*Aligner, error) {
	if detector == nil {
		return nil, fmt.Errorf("feature detector is required")
	}
	if warper == nil {
		return nil, fmt.Errorf("homography warper is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feature config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aligner{detector: detector, warper: warper, cfg: cfg, limits: limits, logger: logger}, nil
}

// AlignOutput is the result of a multi-pass landscape alignment.
type AlignOutput struct {
	// Image is the target after all applied corrections.
	Image image.Image

	// Homography is the cumulative target-to-reference transform.
	Homography geometry.Homography

	// Result is the match result of the final completed pass.
	Result FeatureMatchResult

	// Passes counts how many passes ran.
	Passes int

	// Converged reports that the last correction was near identity
	// rather than the loop hitting its pass cap.
	Converged bool
}

// Align registers target against ref. The first pass must produce a
// valid match result or the whole alignment fails; later passes that
// degrade stop the loop and keep the best frame so far.
func (a *Aligner) Align(ctx context.Context, ref, target image.Image) (AlignOutput, error) {
	refKps, err := a.detector.Detect(ctx, ref)
	if err != nil {
		return AlignOutput{}, fmt.Errorf("detecting reference keypoints: %w", err)
	}

	bounds := target.Bounds()
	out := AlignOutput{
		Image:      target,
		Homography: geometry.IdentityHomography(),
	}

	for pass := 1; pass <= a.cfg.MaxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		kps, err := a.detector.Detect(ctx, out.Image)
		if err != nil {
			if pass == 1 {
				return AlignOutput{}, fmt.Errorf("detecting target keypoints: %w", err)
			}
			a.logger.Debug("keypoint detection degraded mid-alignment, keeping previous pass",
				"pass", pass, "error", err)
			return out, nil
		}

		res, err := MatchFrames(refKps, kps, a.cfg)
		if err != nil {
			if pass == 1 {
				return AlignOutput{}, fmt.Errorf("matching against reference: %w", err)
			}
			a.logger.Debug("matching degraded mid-alignment, keeping previous pass",
				"pass", pass, "error", err)
			return out, nil
		}

		if !res.IsValid(a.cfg.MinMatches, a.cfg.MinInlierRatio) {
			if pass == 1 {
				return AlignOutput{}, fmt.Errorf("match result rejected (matches=%d, inlier ratio=%.2f): %w",
					res.MatchCount, res.InlierRatio, ErrEstimationFailed)
			}
			return out, nil
		}

		stability := refine.PerspectiveStability(res.Homography, a.limits)
		h := stability.Homography
		if !stability.Stable {
			a.logger.Debug("homography softened toward identity",
				"pass", pass, "failures", stability.Failures)
		}

		warped, err := a.warper.ApplyHomography(out.Image, h, bounds.Dx(), bounds.Dy())
		if err != nil {
			return out, fmt.Errorf("applying homography on pass %d: %w", pass, err)
		}

		out.Image = warped
		out.Homography = out.Homography.Multiply(h)
		out.Result = res
		out.Passes = pass

		a.logger.Debug("alignment pass complete",
			"pass", pass,
			"matches", res.MatchCount,
			"inliers", res.InlierCount,
			"mean_error", res.Reprojection.MeanError,
			"determinant", h.Determinant())

		// A correction that barely moves anything means the frame is
		// registered; further passes only accumulate resampling loss.
		// Each pass estimates h against the previous pass's output, so
		// the correction's determinant distance from one is exactly the
		// determinant change between successive passes.
		if math.Abs(h.Determinant()-1) < a.cfg.DeterminantDelta && stability.Stable {
			out.Converged = true
			return out, nil
		}
	}

	return out, nil
}
