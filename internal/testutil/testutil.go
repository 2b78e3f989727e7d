// Package testutil provides fakes and fixtures shared by the alignment
// engine's tests: scripted detectors, recording warpers and synthetic
// images.
package testutil

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/steadycam/steady/internal/geometry"
	"github.com/steadycam/steady/internal/landmarks"
)

// Detection is one scripted detector response.
type Detection struct {
	Landmarks landmarks.Landmarks
	Err       error
}

// ScriptedDetector replays a fixed sequence of detection results. When
// the script is exhausted the last entry repeats, so short scripts
// describe steady-state behavior naturally. Safe for concurrent use.
type ScriptedDetector struct {
	Script      []Detection
	Unavailable bool

	mu    sync.Mutex
	calls int
}

// Available reports the scripted availability.
func (d *ScriptedDetector) Available() bool { return !d.Unavailable }

// Detect pops the next scripted result.
func (d *ScriptedDetector) Detect(_ context.Context, _ image.Image) (landmarks.Landmarks, error) {
	d.mu.Lock()
	idx := d.calls
	if idx >= len(d.Script) {
		idx = len(d.Script) - 1
	}
	d.calls++
	d.mu.Unlock()
	res := d.Script[idx]
	return res.Landmarks, res.Err
}

// Calls reports how many detections were requested.
func (d *ScriptedDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

var _ landmarks.Detector = (*ScriptedDetector)(nil)

// RecordingWarper returns fresh blank canvases and records every matrix
// it was asked to apply, letting tests assert on the transform sequence
// without real resampling.
type RecordingWarper struct {
	Matrices []geometry.AffineMatrix
	Outputs  []image.Image
}

// ApplyAffine records m and returns a new blank canvas.
func (w *RecordingWarper) ApplyAffine(_ image.Image, m geometry.AffineMatrix, outW, outH int) (image.Image, error) {
	w.Matrices = append(w.Matrices, m)
	out := NewTestImage(outW, outH)
	w.Outputs = append(w.Outputs, out)
	return out, nil
}

// NewTestImage returns a uniformly gray RGBA image.
func NewTestImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	return img
}

// Face builds face landmarks with the given eye pair and a sane box and
// confidence.
func Face(leftEye, rightEye geometry.Point) landmarks.FaceLandmarks {
	box := geometry.BoundingBox([]geometry.Point{leftEye, rightEye})
	box = geometry.NewBox(box.Left-0.1, box.Top-0.15, box.Right+0.1, box.Bottom+0.25)
	return landmarks.FaceLandmarks{
		LeftEye:  leftEye,
		RightEye: rightEye,
		Nose:     leftEye.Midpoint(rightEye),
		Box:      box,
		Score:    0.95,
	}
}

// BodyAt builds body landmarks with the given shoulder pair.
func BodyAt(leftShoulder, rightShoulder geometry.Point) landmarks.BodyLandmarks {
	return landmarks.BodyLandmarks{
		LeftShoulder:  leftShoulder,
		RightShoulder: rightShoulder,
		LeftHip:       geometry.Point{X: leftShoulder.X + 0.03, Y: leftShoulder.Y + 0.3},
		RightHip:      geometry.Point{X: rightShoulder.X - 0.03, Y: rightShoulder.Y + 0.3},
		Box:           geometry.NewBox(leftShoulder.X-0.1, leftShoulder.Y-0.2, rightShoulder.X+0.1, rightShoulder.Y+0.5),
		Score:         0.9,
	}
}
