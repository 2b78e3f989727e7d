package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/steadycam/steady/internal/features"
	"github.com/steadycam/steady/internal/frames"
	"github.com/steadycam/steady/internal/landmarks"
	"github.com/steadycam/steady/internal/stabilize"
	"github.com/steadycam/steady/internal/utils"
)

// AlignResult is the outcome of aligning a single frame. Exactly one
// of Stabilization or Landscape is set, matching ContentKind.
type AlignResult struct {
	Image         image.Image
	ContentKind   landmarks.ContentKind
	Confidence    float64
	Stabilization *stabilize.Output
	Landscape     *features.AlignOutput
}

// referenceState guards the landscape reference frame. The first
// landscape frame of a run becomes the reference every later frame is
// registered against.
type referenceState struct {
	mu  sync.Mutex
	img image.Image
}

// claim returns the current reference, or stores img as the reference
// and reports that it did.
func (r *referenceState) claim(img image.Image) (image.Image, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.img == nil {
		r.img = img
		return img, true
	}
	return r.img, false
}

// AlignImage aligns one decoded frame. In auto mode it tries subject
// stabilization first and falls back to landscape alignment when no
// subject is found.
func (a *Aligner) AlignImage(ctx context.Context, img image.Image) (*AlignResult, error) {
	if err := utils.ValidateImageConstraints(img, a.cfg.Constraints); err != nil {
		return nil, err
	}
	img, err := utils.ResizeToFit(img, a.cfg.Constraints.MaxWidth, a.cfg.Constraints.MaxHeight)
	if err != nil {
		return nil, err
	}

	switch a.cfg.ContentKind {
	case string(landmarks.KindFace), string(landmarks.KindBody):
		return a.alignSubject(ctx, img)
	case string(landmarks.KindLandscape):
		return a.alignLandscape(ctx, img)
	default: // auto
		if a.stabilizer == nil {
			return a.alignLandscape(ctx, img)
		}
		res, err := a.alignSubject(ctx, img)
		if errors.Is(err, landmarks.ErrNoSubject) && a.landscape != nil {
			a.logger.Debug("no subject found, falling back to landscape alignment")
			return a.alignLandscape(ctx, img)
		}
		return res, err
	}
}

func (a *Aligner) alignSubject(ctx context.Context, img image.Image) (*AlignResult, error) {
	out, err := a.stabilizer.Run(ctx, img)
	if err != nil {
		return nil, err
	}
	return &AlignResult{
		Image:         out.Image,
		ContentKind:   out.Landmarks.Kind(),
		Confidence:    out.Result.Confidence,
		Stabilization: out,
	}, nil
}

func (a *Aligner) alignLandscape(ctx context.Context, img image.Image) (*AlignResult, error) {
	if a.landscape == nil {
		return nil, errors.New("pipeline has no landscape aligner configured")
	}

	ref, isFirst := a.reference.claim(img)
	if isFirst {
		// The reference frame defines the alignment target; it is
		// emitted untouched.
		return &AlignResult{
			Image:       img,
			ContentKind: landmarks.KindLandscape,
			Confidence:  1.0,
		}, nil
	}

	out, err := a.landscape.Align(ctx, ref, img)
	if err != nil {
		return nil, err
	}
	return &AlignResult{
		Image:       out.Image,
		ContentKind: landmarks.KindLandscape,
		Confidence:  stabilize.Confidence(out.Result.Reprojection.MeanError),
		Landscape:   &out,
	}, nil
}

// AlignFile loads, aligns and saves one frame, returning its record.
// The aligned image is written into the output directory as PNG and
// the record is persisted when a store is configured.
func (a *Aligner) AlignFile(ctx context.Context, sourcePath string) (frames.Frame, error) {
	img, _, err := a.transformer.Load(sourcePath)
	if err != nil {
		return frames.Frame{}, err
	}

	res, err := a.AlignImage(ctx, img)
	if err != nil {
		return frames.Frame{}, fmt.Errorf("aligning %q: %w", sourcePath, err)
	}

	if err := os.MkdirAll(a.cfg.OutputDir, 0o750); err != nil {
		return frames.Frame{}, fmt.Errorf("creating output directory: %w", err)
	}
	name := frameName(sourcePath)
	alignedPath := filepath.Join(a.cfg.OutputDir, name+".png")
	if err := a.transformer.Save(res.Image, alignedPath); err != nil {
		return frames.Frame{}, fmt.Errorf("saving aligned frame: %w", err)
	}

	frame := a.buildFrame(sourcePath, alignedPath, res)
	if a.store != nil {
		if err := a.store.Save(name, frame); err != nil {
			return frames.Frame{}, fmt.Errorf("recording frame: %w", err)
		}
	}

	a.logger.Info("frame aligned",
		"source", sourcePath,
		"aligned", alignedPath,
		"kind", frame.ContentKind,
		"confidence", frame.Confidence)
	return frame, nil
}

func (a *Aligner) buildFrame(sourcePath, alignedPath string, res *AlignResult) frames.Frame {
	frame := frames.Frame{
		SourcePath:  sourcePath,
		AlignedPath: alignedPath,
		ContentKind: string(res.ContentKind),
		Confidence:  res.Confidence,
		Matrix:      [6]float64{1, 0, 0, 0, 1, 0},
		Success:     true,
		ProcessedAt: time.Now().UTC(),
	}

	if out := res.Stabilization; out != nil {
		frame.FinalScore = out.Result.FinalScore.Value
		frame.StopReason = string(out.Result.StopReason)
		frame.Passes = len(out.Result.Passes)
		frame.Success = out.Result.Success
		m := out.Matrix
		frame.Matrix = [6]float64{m.ScaleX, m.SkewX, m.TranslateX, m.SkewY, m.ScaleY, m.TranslateY}
	}
	if out := res.Landscape; out != nil {
		frame.FinalScore = out.Result.Reprojection.MeanError
		frame.Passes = out.Passes
		frame.Success = out.Converged
	}
	return frame
}

// AlignBatch aligns many frames concurrently, preserving input order in
// the results.
func (a *Aligner) AlignBatch(ctx context.Context, paths []string) ([]frames.BatchResult, error) {
	return frames.RunBatch(ctx, paths, a.cfg.Batch, a.AlignFile)
}

// frameName derives the record/output name from the source file name.
func frameName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
