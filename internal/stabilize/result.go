package stabilize

import "time"

// Stage labels which corrector produced a pass.
type Stage string

const (
	StageInitial     Stage = "initial"
	StageRotation    Stage = "rotation"
	StageScale       Stage = "scale"
	StageTranslation Stage = "translation"
)

// StopReason records why the pass loop ended.
type StopReason string

const (
	// StopScoreBelowThreshold means the score dropped under the
	// no-action threshold; the frame is aligned.
	StopScoreBelowThreshold StopReason = "SCORE_BELOW_THRESHOLD"
	// StopNoImprovement means a pass failed to beat the best score seen
	// so far; further correction would oscillate.
	StopNoImprovement StopReason = "NO_IMPROVEMENT"
	// StopMaxPassesReached means the pass cap was hit without another
	// stop condition; inconclusive.
	StopMaxPassesReached StopReason = "MAX_PASSES_REACHED"
	// StopDetectionFailed means a re-detection during refinement came
	// up empty; the loop aborted with the best image so far.
	StopDetectionFailed StopReason = "FACE_DETECTION_FAILED"
	// Stage-specific convergence reasons for SLOW mode.
	StopRotationConverged    StopReason = "ROTATION_CONVERGED"
	StopScaleConverged       StopReason = "SCALE_CONVERGED"
	StopTranslationConverged StopReason = "TRANSLATION_CONVERGED"
)

// Pass is one iteration's record: detect, score and (maybe) correct.
// The pass list is append-only and forms the run's audit trail.
type Pass struct {
	Number      int           `json:"number"`
	Stage       Stage         `json:"stage"`
	ScoreBefore float64       `json:"score_before"`
	ScoreAfter  float64       `json:"score_after"`
	Converged   bool          `json:"converged"`
	Duration    time.Duration `json:"duration"`
}

// Result is the full outcome of one stabilization run.
type Result struct {
	Success       bool          `json:"success"`
	FinalScore    Score         `json:"final_score"` // best score seen, not necessarily the last pass's
	InitialScore  Score         `json:"initial_score"`
	Passes        []Pass        `json:"passes"`
	StopReason    StopReason    `json:"stop_reason"`
	TotalDuration time.Duration `json:"total_duration"`
	GoalDistance  float64       `json:"goal_distance"` // target eye/shoulder separation, pixels
	Confidence    float64       `json:"confidence"`
}
