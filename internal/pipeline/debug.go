package pipeline

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/steadycam/steady/internal/stabilize"
	"github.com/steadycam/steady/internal/utils"
)

// debugSink dumps the warped image of every stabilization pass as a
// PNG so a run can be inspected pass by pass. It wraps an optional
// inner sink and forwards every callback. A global sequence number
// keeps filenames unique when batch workers stabilize frames
// concurrently.
type debugSink struct {
	dir   string
	inner stabilize.ProgressSink
	seq   atomic.Int64
}

func newDebugSink(dir string, inner stabilize.ProgressSink) *debugSink {
	if inner == nil {
		inner = stabilize.NoOpProgress{}
	}
	return &debugSink{dir: dir, inner: inner}
}

func (d *debugSink) OnStart(mode stabilize.Mode) {
	d.inner.OnStart(mode)
}

func (d *debugSink) OnPass(pass stabilize.Pass, img image.Image) {
	if img != nil {
		name := fmt.Sprintf("%04d_pass%02d_%s.png", d.seq.Add(1), pass.Number, pass.Stage)
		path := filepath.Join(d.dir, name)
		if err := utils.SaveImage(img, path); err != nil {
			slog.Warn("writing debug pass image failed", "path", path, "error", err)
		}
	}
	d.inner.OnPass(pass, img)
}

func (d *debugSink) OnComplete(result stabilize.Result) {
	d.inner.OnComplete(result)
}
