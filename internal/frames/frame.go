// Package frames persists per-frame alignment records and runs batches
// of frames through the alignment pipeline.
package frames

import (
	"fmt"
	"time"
)

// Frame is the persisted record of one aligned timelapse frame. It is
// stored as a YAML sidecar next to the aligned image so a sequence can
// be rebuilt, filtered by confidence, or re-rendered without rerunning
// alignment.
type Frame struct {
	SourcePath  string     `yaml:"source_path"`
	AlignedPath string     `yaml:"aligned_path"`
	ContentKind string     `yaml:"content_kind"`
	Confidence  float64    `yaml:"confidence"`
	FinalScore  float64    `yaml:"final_score"`
	StopReason  string     `yaml:"stop_reason"`
	Passes      int        `yaml:"passes"`
	Success     bool       `yaml:"success"`
	Matrix      [6]float64 `yaml:"matrix,flow"`
	ProcessedAt time.Time  `yaml:"processed_at"`
}

// Validate rejects records that cannot identify a frame.
func (f Frame) Validate() error {
	if f.SourcePath == "" {
		return fmt.Errorf("frame record missing source path")
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("frame confidence %.3f outside [0, 1]", f.Confidence)
	}
	return nil
}
