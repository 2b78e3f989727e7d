package stabilize

import "image"

// ProgressSink receives synchronous notifications at well-defined
// points of a stabilization run: start, after every pass, and on
// completion. OnPass also receives the warped image of that pass so
// sinks can dump or preview intermediate frames. No concurrency
// semantics are implied; callbacks run on the caller's goroutine and
// must return promptly.
type ProgressSink interface {
	OnStart(mode Mode)
	OnPass(pass Pass, img image.Image)
	OnComplete(result Result)
}

// NoOpProgress implements ProgressSink and does nothing. Used as the
// default when no progress reporting is wired.
type NoOpProgress struct{}

func (NoOpProgress) OnStart(Mode)            {}
func (NoOpProgress) OnPass(Pass, image.Image) {}
func (NoOpProgress) OnComplete(Result)       {}
