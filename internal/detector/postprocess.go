package detector

import (
	"fmt"

	"github.com/steadycam/steady/internal/geometry"
	"github.com/steadycam/steady/internal/landmarks"
)

// Model output layouts, all values normalized to [0, 1]:
//
//	face: [score, boxLeft, boxTop, boxRight, boxBottom,
//	       leftEyeX, leftEyeY, rightEyeX, rightEyeY, noseX, noseY]
//	body: [score, boxLeft, boxTop, boxRight, boxBottom,
//	       leftShoulderX, leftShoulderY, rightShoulderX, rightShoulderY,
//	       leftHipX, leftHipY, rightHipX, rightHipY]
const (
	faceOutputLen = 11
	bodyOutputLen = 13
)

// postprocessFace parses the face model output. A score under
// minConfidence means no subject was found.
func postprocessFace(out []float32, minConfidence float64) (landmarks.FaceLandmarks, error) {
	if len(out) != faceOutputLen {
		return landmarks.FaceLandmarks{}, fmt.Errorf("face model returned %d values, want %d", len(out), faceOutputLen)
	}
	score := float64(out[0])
	if score < minConfidence {
		return landmarks.FaceLandmarks{}, fmt.Errorf("detection score %.3f below %.3f: %w", score, minConfidence, landmarks.ErrNoSubject)
	}
	return landmarks.FaceLandmarks{
		LeftEye:  point(out[5], out[6]),
		RightEye: point(out[7], out[8]),
		Nose:     point(out[9], out[10]),
		Box:      geometry.NewBox(float64(out[1]), float64(out[2]), float64(out[3]), float64(out[4])),
		Score:    score,
	}, nil
}

// postprocessBody parses the body model output.
func postprocessBody(out []float32, minConfidence float64) (landmarks.BodyLandmarks, error) {
	if len(out) != bodyOutputLen {
		return landmarks.BodyLandmarks{}, fmt.Errorf("body model returned %d values, want %d", len(out), bodyOutputLen)
	}
	score := float64(out[0])
	if score < minConfidence {
		return landmarks.BodyLandmarks{}, fmt.Errorf("detection score %.3f below %.3f: %w", score, minConfidence, landmarks.ErrNoSubject)
	}
	return landmarks.BodyLandmarks{
		LeftShoulder:  point(out[5], out[6]),
		RightShoulder: point(out[7], out[8]),
		LeftHip:       point(out[9], out[10]),
		RightHip:      point(out[11], out[12]),
		Box:           geometry.NewBox(float64(out[1]), float64(out[2]), float64(out[3]), float64(out[4])),
		Score:         score,
	}, nil
}

func point(x, y float32) geometry.Point {
	return geometry.Point{X: float64(x), Y: float64(y)}
}
