package stabilize

// Confidence breakpoints. The mapping is a deterministic piecewise
// function of the final score, tuned against the pixel-error metric; it
// is a quality score, not a probability.
const (
	confidencePerfectScore = 0.5  // below this the alignment is as good as it gets
	confidenceRampEnd      = 20.0 // end of the high-quality linear ramp
	confidenceRampTop      = 0.99
	confidenceRampBottom   = 0.7
	confidenceFloor        = 0.3
	confidenceDecay        = 0.005 // confidence lost per score unit past the ramp
)

// Confidence maps a final stabilization score to a [0,1] confidence.
// Monotonically non-increasing in the score: exactly 1.0 below 0.5,
// a linear ramp from 0.99 down to 0.7 across [0.5, 20), then a slower
// linear decay floored at 0.3.
func Confidence(score float64) float64 {
	switch {
	case score < confidencePerfectScore:
		return 1.0
	case score < confidenceRampEnd:
		frac := (score - confidencePerfectScore) / (confidenceRampEnd - confidencePerfectScore)
		return confidenceRampTop - frac*(confidenceRampTop-confidenceRampBottom)
	default:
		c := confidenceRampBottom - (score-confidenceRampEnd)*confidenceDecay
		if c < confidenceFloor {
			return confidenceFloor
		}
		return c
	}
}
