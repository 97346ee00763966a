// Package anneal defines the sampler capability shared by the local
// simulated annealer and the remote hardware adapter, plus the normalized
// sample-set shape both produce. Which sampler serves a server is decided at
// configuration time; nothing here switches on concrete types at runtime.
package anneal

import (
	"context"
	"fmt"
	"time"

	"qanneal/internal/qubo"
)

// Params are the tunable knobs of a single solve.
type Params struct {
	// NumReads is the number of independent anneal reads. Must be >= 1.
	NumReads int
	// AnnealingTimeUS is the per-read annealing duration in microseconds.
	// Must be >= 1.
	AnnealingTimeUS int
}

// Validate checks parameter ranges before any backend is invoked.
func (p Params) Validate() error {
	if p.NumReads < 1 {
		return &ParamError{Name: "num_reads", Value: p.NumReads, Min: 1}
	}
	if p.AnnealingTimeUS < 1 {
		return &ParamError{Name: "annealing_time", Value: p.AnnealingTimeUS, Min: 1}
	}
	return nil
}

// Sample is one candidate solution with its energy and how often the backend
// observed it across reads.
type Sample struct {
	Assignment  map[int]int8 `json:"-"`
	Energy      float64      `json:"energy"`
	Occurrences int          `json:"num_occurrences"`
}

// SampleSet is a backend's full answer for one solve. Samples arrive in the
// backend's order — ascending energy by annealing convention — and are kept
// that way all the way to the client.
type SampleSet struct {
	Samples []Sample
	Elapsed time.Duration
}

// Best returns the lowest-energy sample. Ascending order is conventional but
// not guaranteed by every backend, so the set is scanned rather than trusting
// position. ok is false for an empty set.
func (ss *SampleSet) Best() (Sample, bool) {
	if len(ss.Samples) == 0 {
		return Sample{}, false
	}
	best := ss.Samples[0]
	for _, s := range ss.Samples[1:] {
		if s.Energy < best.Energy {
			best = s
		}
	}
	return best, true
}

// TotalReads sums occurrence counts across the set.
func (ss *SampleSet) TotalReads() int {
	var n int
	for _, s := range ss.Samples {
		n += s.Occurrences
	}
	return n
}

// Sampler is the solver capability: one implementation anneals locally, the
// other talks to remote quantum hardware. Sample blocks until the backend
// answers; cancellation is only available through ctx.
type Sampler interface {
	// Name identifies the backend in list_solvers output.
	Name() string
	// Properties describes backend capabilities and limits.
	Properties() map[string]any
	// Sample runs the annealing process and returns the normalized set.
	Sample(ctx context.Context, m *qubo.Model, p Params) (*SampleSet, error)
}

// ParamError reports an out-of-range solve parameter.
type ParamError struct {
	Name  string
	Value int
	Min   int
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%d: must be >= %d", e.Name, e.Value, e.Min)
}

// SolverError wraps a backend failure (rejection, timeout, connectivity)
// with the backend's diagnostic. Solves are never retried on one.
type SolverError struct {
	Solver string
	Msg    string
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver %s failed: %s: %v", e.Solver, e.Msg, e.Err)
	}
	return fmt.Sprintf("solver %s failed: %s", e.Solver, e.Msg)
}

func (e *SolverError) Unwrap() error { return e.Err }
