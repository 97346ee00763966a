package anneal

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"qanneal/internal/qubo"
)

const (
	// sweepsPerMicrosecond converts the wire-level annealing_time knob into
	// Metropolis sweeps for the local backend.
	sweepsPerMicrosecond = 50
	minSweeps            = 200
	maxSweeps            = 200_000

	defaultBetaHot  = 0.1
	defaultBetaCold = 10.0
)

// SimulatedAnnealer is the local backend: classical Metropolis annealing with
// a geometric temperature schedule. Reads are independent restarts fanned out
// over a bounded worker pool.
type SimulatedAnnealer struct {
	// Seed makes runs reproducible when non-zero; read i derives its own
	// generator from Seed+i so parallel reads stay deterministic.
	Seed int64
	// Parallelism bounds concurrent reads. Zero means 4.
	Parallelism int
}

// Name implements Sampler.
func (s *SimulatedAnnealer) Name() string { return "neal" }

// Properties implements Sampler.
func (s *SimulatedAnnealer) Properties() map[string]any {
	return map[string]any{
		"kind":                "simulator",
		"algorithm":           "simulated-annealing",
		"schedule":            "geometric",
		"beta_range":          []float64{defaultBetaHot, defaultBetaCold},
		"quantum_hardware":    false,
		"supports_qubo":       true,
		"supports_ising":      true,
		"max_sweeps_per_read": maxSweeps,
	}
}

// Sample implements Sampler. Identical final states are aggregated into one
// sample with an occurrence count; the returned set is sorted by ascending
// energy.
func (s *SimulatedAnnealer) Sample(ctx context.Context, m *qubo.Model, p Params) (*SampleSet, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	vars := m.Variables()
	sweeps := sweepCount(p.AnnealingTimeUS)
	neighbors := buildNeighbors(m)

	seedBase := s.Seed
	if seedBase == 0 {
		seedBase = time.Now().UnixNano()
	}

	type read struct {
		assignment map[int]int8
		energy     float64
	}
	reads := make([]read, p.NumReads)

	parallelism := s.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := 0; i < p.NumReads; i++ {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seedBase + int64(i)))
			assignment, energy, err := annealOnce(gctx, m, vars, neighbors, sweeps, rng)
			if err != nil {
				return err
			}
			reads[i] = read{assignment: assignment, energy: energy}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &SolverError{Solver: s.Name(), Msg: "annealing interrupted", Err: err}
	}

	// Aggregate identical assignments into occurrence counts.
	byKey := make(map[string]*Sample)
	var order []string
	for _, r := range reads {
		k := assignmentKey(vars, r.assignment)
		if existing, ok := byKey[k]; ok {
			existing.Occurrences++
			continue
		}
		byKey[k] = &Sample{Assignment: r.assignment, Energy: r.energy, Occurrences: 1}
		order = append(order, k)
	}
	samples := make([]Sample, 0, len(order))
	for _, k := range order {
		samples = append(samples, *byKey[k])
	}
	sort.SliceStable(samples, func(a, b int) bool {
		return samples[a].Energy < samples[b].Energy
	})

	return &SampleSet{Samples: samples, Elapsed: time.Since(start)}, nil
}

// term is one quadratic coupling seen from one endpoint.
type term struct {
	other int
	coeff float64
}

func buildNeighbors(m *qubo.Model) map[int][]term {
	n := make(map[int][]term, len(m.Quadratic))
	for p, c := range m.Quadratic {
		n[p.U] = append(n[p.U], term{other: p.V, coeff: c})
		n[p.V] = append(n[p.V], term{other: p.U, coeff: c})
	}
	return n
}

func sweepCount(annealingTimeUS int) int {
	sweeps := annealingTimeUS * sweepsPerMicrosecond
	if sweeps < minSweeps {
		return minSweeps
	}
	if sweeps > maxSweeps {
		return maxSweeps
	}
	return sweeps
}

// annealOnce runs a single read: random start, geometric cooling from
// defaultBetaHot to defaultBetaCold, returning the best state seen.
func annealOnce(ctx context.Context, m *qubo.Model, vars []int, neighbors map[int][]term, sweeps int, rng *rand.Rand) (map[int]int8, float64, error) {
	lo, hi := m.Domain()

	cur := make(map[int]int8, len(vars))
	for _, v := range vars {
		if rng.Intn(2) == 0 {
			cur[v] = lo
		} else {
			cur[v] = hi
		}
	}
	curEnergy := m.Energy(cur)

	best := cloneAssignment(cur)
	bestEnergy := curEnergy

	if len(vars) == 0 {
		return cur, curEnergy, nil
	}

	betaStep := math.Pow(defaultBetaCold/defaultBetaHot, 1/math.Max(1, float64(sweeps-1)))
	beta := defaultBetaHot

	for sweep := 0; sweep < sweeps; sweep++ {
		if sweep%256 == 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			default:
			}
		}
		for _, v := range vars {
			delta := flipDelta(m, neighbors, cur, v, lo, hi)
			if delta <= 0 || rng.Float64() < math.Exp(-beta*delta) {
				cur[v] = flip(cur[v], lo, hi)
				curEnergy += delta
				if curEnergy < bestEnergy {
					bestEnergy = curEnergy
					best = cloneAssignment(cur)
				}
			}
		}
		beta *= betaStep
	}

	// curEnergy accumulates flip deltas and can drift under rounding;
	// re-evaluate so the reported energy is exactly the model at best.
	return best, m.Energy(best), nil
}

func flip(val, lo, hi int8) int8 {
	if val == lo {
		return hi
	}
	return lo
}

// flipDelta computes the energy change from flipping variable v, using only
// v's local field so a sweep stays O(degree) per variable.
func flipDelta(m *qubo.Model, neighbors map[int][]term, cur map[int]int8, v int, lo, hi int8) float64 {
	field := m.Linear[v]
	for _, t := range neighbors[v] {
		field += t.coeff * float64(cur[t.other])
	}
	newVal := flip(cur[v], lo, hi)
	return field * float64(newVal-cur[v])
}

func cloneAssignment(a map[int]int8) map[int]int8 {
	out := make(map[int]int8, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// assignmentKey renders an assignment into a canonical string over the sorted
// variable set, for duplicate aggregation.
func assignmentKey(vars []int, a map[int]int8) string {
	var b strings.Builder
	for _, v := range vars {
		fmt.Fprintf(&b, "%d=%d;", v, a[v])
	}
	return b.String()
}
