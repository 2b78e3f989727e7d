package frames

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ProgressCallback receives batch progress notifications. Callbacks may
// be invoked from multiple goroutines and must be safe for concurrent
// use.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(done, total int)
	OnComplete()
}

// ProcessFunc aligns one source frame and returns its record.
type ProcessFunc func(ctx context.Context, sourcePath string) (Frame, error)

// BatchConfig holds configuration for batch alignment.
type BatchConfig struct {
	MaxWorkers       int              // 0 = runtime.NumCPU()
	ProgressCallback ProgressCallback // optional
}

// DefaultBatchConfig returns sensible defaults for batch alignment.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{MaxWorkers: runtime.NumCPU()}
}

// BatchResult pairs one input frame with its outcome. Exactly one of
// Frame or Err is meaningful.
type BatchResult struct {
	SourcePath string
	Frame      Frame
	Err        error
}

type frameJob struct {
	index int
	path  string
}

type frameResult struct {
	index int
	frame Frame
	err   error
}

// RunBatch aligns all source frames through process using a worker
// pool. Results come back in input order; per-frame failures are
// recorded in their slot and the first one is also returned as the
// error, so callers can both continue a timelapse past bad frames and
// notice that something failed. Cancellation stops dispatching new
// frames and returns the context error.
func RunBatch(ctx context.Context, paths []string, config BatchConfig, process ProcessFunc) ([]BatchResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no frames provided")
	}
	if process == nil {
		return nil, errors.New("process function is required")
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(paths))
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan frameJob, len(paths))
	results := make(chan frameResult, len(paths))

	var wg sync.WaitGroup
	for range config.MaxWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, jobs, results, process)
		}()
	}

	go func() {
		defer close(jobs)
		for i, p := range paths {
			select {
			case jobs <- frameJob{index: i, path: p}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]BatchResult, len(paths))
	for i, p := range paths {
		ordered[i] = BatchResult{SourcePath: p}
	}

	done := 0
	for res := range results {
		ordered[res.index].Frame = res.frame
		ordered[res.index].Err = res.err
		done++
		if config.ProgressCallback != nil {
			config.ProgressCallback.OnProgress(done, len(paths))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstErr error
	for i := range ordered {
		if ordered[i].Err != nil {
			firstErr = fmt.Errorf("frame %q: %w", ordered[i].SourcePath, ordered[i].Err)
			break
		}
	}
	return ordered, firstErr
}

func worker(ctx context.Context, jobs <-chan frameJob, results chan<- frameResult, process ProcessFunc) {
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			frame, err := process(ctx, job.path)
			select {
			case results <- frameResult{index: job.index, frame: frame, err: err}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
