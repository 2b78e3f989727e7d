// Package refine provides the single-purpose correction steps applied
// between stabilization passes. Each refiner is a pure function: it
// consumes the current transform plus freshly detected landmarks and
// returns a corrected transform with a convergence verdict. No refiner
// mutates its inputs or performs I/O.
package refine

import "github.com/steadycam/steady/internal/geometry"

// Result is the outcome of one refinement step.
type Result struct {
	Matrix    geometry.AffineMatrix // corrected transform (unchanged when converged)
	Converged bool                  // the stage error is within its threshold
	Error     float64               // stage-specific error metric, pixels
}

// DampingFactor under-relaxes the FAST-mode translation correction to
// avoid oscillation. Empirically chosen; deliberately not derived.
const DampingFactor = 0.5
