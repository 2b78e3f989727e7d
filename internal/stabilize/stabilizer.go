package stabilize

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/steadycam/steady/internal/calculator"
	"github.com/steadycam/steady/internal/geometry"
	"github.com/steadycam/steady/internal/landmarks"
	"github.com/steadycam/steady/internal/refine"
)

// Warper applies an affine transform to an image, producing an output
// canvas of the given size. Implemented by the pipeline's transform
// service.
type Warper interface {
	ApplyAffine(img image.Image, m geometry.AffineMatrix, outW, outH int) (image.Image, error)
}

// Stabilizer runs the multi-pass alignment loop for face and body
// content. All loop state is local to a single Run invocation; a
// Stabilizer is safe for concurrent use across frames.
type Stabilizer struct {
	detector landmarks.Detector
	warper   Warper
	layout   calculator.Layout
	settings Settings
	progress ProgressSink
}

// Output bundles everything a run produces: the best-scoring aligned
// image, the transform that produced it, the initial detection, and
// the full diagnostic result.
type Output struct {
	Image     image.Image
	Matrix    geometry.AffineMatrix
	Landmarks landmarks.Landmarks
	Result    Result
}

// New creates a stabilizer. A nil progress sink disables reporting.
func New(det landmarks.Detector, warper Warper, layout calculator.Layout, settings Settings, progress ProgressSink) (*Stabilizer, error) {
	if det == nil {
		return nil, fmt.Errorf("nil detector")
	}
	if warper == nil {
		return nil, fmt.Errorf("nil warper")
	}
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if progress == nil {
		progress = NoOpProgress{}
	}
	return &Stabilizer{
		detector: det,
		warper:   warper,
		layout:   layout,
		settings: settings,
		progress: progress,
	}, nil
}

// run holds the mutable loop-local state of one invocation. Nothing in
// it escapes except through the final Output.
type run struct {
	src        image.Image
	body       bool
	size       int
	goalLeft   geometry.Point // pixels on the canvas
	goalRight  geometry.Point
	goalDist   float64
	matrix     geometry.AffineMatrix
	current    image.Image
	currentLm  landmarks.Landmarks
	passes     []Pass
	prevScore  float64
	initial    Score
	bestImage  image.Image
	bestMatrix geometry.AffineMatrix
	bestScore  Score
	bestSet    bool
	reason     StopReason
}

// Run aligns a single frame. The returned Output carries the
// best-scoring image seen across all passes, which is not necessarily
// the last pass's output. Detection loss after a successful pass ends
// the run with StopDetectionFailed and still returns the best image;
// detection failure on the raw source fails the whole call.
func (s *Stabilizer) Run(ctx context.Context, src image.Image) (*Output, error) {
	if !s.detector.Available() {
		return nil, landmarks.ErrDetectorUnavailable
	}
	start := time.Now()

	initial, err := s.detector.Detect(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("initial detection: %w", err)
	}
	left, right, ok := landmarks.ReferencePoints(initial)
	if !ok {
		return nil, fmt.Errorf("content kind %q has no reference pair; use the landscape pipeline", initial.Kind())
	}

	r := s.newRun(src, initial, left, right)
	s.progress.OnStart(s.settings.Mode)
	slog.Debug("stabilization started",
		"mode", s.settings.Mode,
		"kind", initial.Kind(),
		"goal_distance", r.goalDist)

	if err := s.initialPass(ctx, r); err != nil {
		return nil, err
	}

	if s.settings.Mode == ModeFast {
		s.runFast(ctx, r)
	} else {
		s.runSlow(ctx, r)
	}

	// Success judges the best score against the threshold regardless of
	// why the loop stopped: a run that lost detection after reaching a
	// good alignment still succeeded.
	result := Result{
		Success: r.reason == StopScoreBelowThreshold ||
			!r.bestScore.NeedsCorrection(s.settings.SuccessScoreThreshold),
		FinalScore:    r.bestScore,
		InitialScore:  r.initial,
		Passes:        r.passes,
		StopReason:    r.reason,
		TotalDuration: time.Since(start),
		GoalDistance:  r.goalDist,
		Confidence:    Confidence(r.bestScore.Value),
	}
	s.progress.OnComplete(result)
	slog.Debug("stabilization finished",
		"reason", result.StopReason,
		"passes", len(result.Passes),
		"final_score", result.FinalScore.Value,
		"confidence", result.Confidence)

	return &Output{
		Image:     r.bestImage,
		Matrix:    r.bestMatrix,
		Landmarks: initial,
		Result:    result,
	}, nil
}

func (s *Stabilizer) newRun(src image.Image, initial landmarks.Landmarks, left, right geometry.Point) *run {
	body := initial.Kind() == landmarks.KindBody
	b := src.Bounds()

	var matrix geometry.AffineMatrix
	if body {
		matrix = calculator.BodyMatrix(left, right, s.layout, b.Dx(), b.Dy())
	} else {
		matrix = calculator.FaceMatrix(left, right, s.layout, b.Dx(), b.Dy())
	}
	goalLeft, goalRight := calculator.GoalPoints(s.layout, body)

	return &run{
		src:       src,
		body:      body,
		size:      s.layout.OutputSize,
		goalLeft:  goalLeft,
		goalRight: goalRight,
		goalDist:  s.layout.TargetDistance(body),
		matrix:    matrix,
	}
}

// initialPass applies the calculated matrix and performs the first
// detect-and-score on the transformed image, producing pass 1.
func (s *Stabilizer) initialPass(ctx context.Context, r *run) error {
	t0 := time.Now()
	img, err := s.warper.ApplyAffine(r.src, r.matrix, r.size, r.size)
	if err != nil {
		return fmt.Errorf("applying initial transform: %w", err)
	}
	r.current = img

	lm, err := s.detector.Detect(ctx, img)
	if err != nil {
		return fmt.Errorf("detection on initial transform: %w", err)
	}
	r.currentLm = lm

	score := s.scoreOf(r, lm)
	pass := Pass{
		Number:      1,
		Stage:       StageInitial,
		ScoreBefore: score.Value,
		ScoreAfter:  score.Value,
		Duration:    time.Since(t0),
	}

	r.bestImage, r.bestMatrix, r.bestScore, r.bestSet = img, r.matrix, score, true
	r.prevScore = score.Value
	r.initial = score

	if score.Value < s.settings.NoActionScoreThreshold {
		pass.Converged = true
		r.reason = StopScoreBelowThreshold
	}
	r.passes = append(r.passes, pass)
	s.progress.OnPass(pass, img)
	return nil
}

// runFast applies damped translation corrections until the score stops
// improving, drops under the no-action threshold, detection fails, or
// the pass cap is hit.
func (s *Stabilizer) runFast(ctx context.Context, r *run) {
	if r.reason != "" {
		return
	}
	for passNum := 2; ; passNum++ {
		if passNum > s.settings.MaxPassesFast {
			r.reason = StopMaxPassesReached
			return
		}

		left, right, _ := landmarks.ReferencePoints(r.currentLm)
		goalMidX := (r.goalLeft.X + r.goalRight.X) / 2
		goalMidY := (r.goalLeft.Y + r.goalRight.Y) / 2
		corrected := refine.Translation(r.matrix, left, right, goalMidX, goalMidY, s.settings.DampingFactor, r.size, r.size)
		r.matrix = corrected.Matrix

		score, pass, err := s.applyAndScore(ctx, r, passNum, StageTranslation)
		if err != nil {
			r.reason = StopDetectionFailed
			return
		}

		if score.Value < s.settings.NoActionScoreThreshold {
			pass.Converged = true
			s.recordPass(r, pass)
			s.updateBest(r, score)
			r.reason = StopScoreBelowThreshold
			return
		}
		if score.Value >= r.bestScore.Value {
			s.recordPass(r, pass)
			r.reason = StopNoImprovement
			return
		}

		s.recordPass(r, pass)
		s.updateBest(r, score)
		r.prevScore = score.Value
	}
}

// runSlow iterates the staged correctors in order, each stage up to the
// configured sub-pass cap, stopping a stage when its refiner reports
// convergence or the score improvement falls under the convergence
// threshold.
func (s *Stabilizer) runSlow(ctx context.Context, r *run) {
	if r.reason != "" {
		return
	}

	var lastConverged StopReason
	passNum := len(r.passes)

	for _, stage := range []Stage{StageRotation, StageScale, StageTranslation} {
		converged, aborted := s.runSlowStage(ctx, r, stage, &passNum)
		if aborted {
			r.reason = StopDetectionFailed
			return
		}
		if converged {
			lastConverged = stageStopReason(stage)
		}
	}

	if lastConverged != "" {
		r.reason = lastConverged
	} else {
		r.reason = StopMaxPassesReached
	}
}

func (s *Stabilizer) runSlowStage(ctx context.Context, r *run, stage Stage, passNum *int) (converged, aborted bool) {
	for range s.settings.MaxSubPassesPerStage {
		left, right, _ := landmarks.ReferencePoints(r.currentLm)
		res := s.refineStage(r, stage, left, right)
		if res.Converged {
			// Refiner is already within its stage threshold; no warp
			// needed, the matrix is unchanged.
			return true, false
		}
		r.matrix = res.Matrix

		*passNum++
		score, pass, err := s.applyAndScore(ctx, r, *passNum, stage)
		if err != nil {
			return false, true
		}

		improvement := r.prevScore - score.Value
		r.prevScore = score.Value
		if improvement < s.settings.ConvergenceThreshold {
			pass.Converged = true
			s.recordPass(r, pass)
			s.updateBest(r, score)
			return true, false
		}
		s.recordPass(r, pass)
		s.updateBest(r, score)
	}
	return false, false
}

func (s *Stabilizer) refineStage(r *run, stage Stage, left, right geometry.Point) refine.Result {
	switch stage {
	case StageRotation:
		return refine.Rotation(r.matrix, left, right, s.settings.RotationStopThreshold, r.size, r.size)
	case StageScale:
		return refine.Scale(r.matrix, left, right, r.goalDist, s.settings.ScaleErrorThreshold, r.size, r.size)
	default:
		goalMidX := (r.goalLeft.X + r.goalRight.X) / 2
		goalMidY := (r.goalLeft.Y + r.goalRight.Y) / 2
		return refine.Translation(r.matrix, left, right, goalMidX, goalMidY, s.settings.DampingFactor, r.size, r.size)
	}
}

// applyAndScore warps the original source with the current cumulative
// matrix (avoiding generational resampling loss), re-detects and
// scores. Returns an error only for detection loss.
func (s *Stabilizer) applyAndScore(ctx context.Context, r *run, passNum int, stage Stage) (Score, Pass, error) {
	t0 := time.Now()
	img, err := s.warper.ApplyAffine(r.src, r.matrix, r.size, r.size)
	if err != nil {
		slog.Warn("warp failed mid-refinement", "pass", passNum, "error", err)
		return Score{}, Pass{}, err
	}
	r.current = img

	lm, err := s.detector.Detect(ctx, img)
	if err != nil {
		slog.Debug("detection lost mid-refinement", "pass", passNum, "stage", stage)
		return Score{}, Pass{}, landmarks.ErrDetectionLost
	}
	r.currentLm = lm

	score := s.scoreOf(r, lm)
	pass := Pass{
		Number:      passNum,
		Stage:       stage,
		ScoreBefore: r.prevScore,
		ScoreAfter:  score.Value,
		Duration:    time.Since(t0),
	}
	return score, pass, nil
}

func (s *Stabilizer) scoreOf(r *run, lm landmarks.Landmarks) Score {
	left, right, _ := landmarks.ReferencePoints(lm)
	return NewScore(left, right, r.goalLeft, r.goalRight, r.size, r.size)
}

func (s *Stabilizer) recordPass(r *run, pass Pass) {
	r.passes = append(r.passes, pass)
	s.progress.OnPass(pass, r.current)
}

func (s *Stabilizer) updateBest(r *run, score Score) {
	if !r.bestSet || score.Value < r.bestScore.Value {
		r.bestImage = r.current
		r.bestMatrix = r.matrix
		r.bestScore = score
		r.bestSet = true
	}
}

func stageStopReason(stage Stage) StopReason {
	switch stage {
	case StageRotation:
		return StopRotationConverged
	case StageScale:
		return StopScaleConverged
	default:
		return StopTranslationConverged
	}
}

