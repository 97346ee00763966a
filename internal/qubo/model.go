// Package qubo holds the canonical in-memory representation of quadratic
// optimization problems: QUBO objectives over {0,1} variables and Ising
// objectives over {-1,+1} spins. Models are built once from wire-level
// coefficient maps and never mutated afterwards.
package qubo

import (
	"fmt"
	"sort"
)

// Kind distinguishes the variable domain of a model.
type Kind string

const (
	KindQUBO  Kind = "qubo"  // binary variables in {0,1}
	KindIsing Kind = "ising" // spin variables in {-1,+1}
)

// Pair is an unordered variable pair, normalized so U <= V.
type Pair struct {
	U, V int
}

// NewPair returns the normalized pair for (a, b).
func NewPair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{U: a, V: b}
}

// Model is a sparse quadratic objective: linear terms keyed by variable,
// quadratic terms keyed by normalized variable pair. Duplicate keys in the
// input maps follow last-write-wins; a pair (i,i) is always folded into the
// linear map, never stored as a quadratic self-loop.
type Model struct {
	Kind      Kind
	Linear    map[int]float64
	Quadratic map[Pair]float64
}

func newModel(kind Kind) *Model {
	return &Model{
		Kind:      kind,
		Linear:    make(map[int]float64),
		Quadratic: make(map[Pair]float64),
	}
}

// FromQUBO builds a QUBO model from a wire-format coefficient map whose keys
// are stringified pairs like "(0,1)". A key (i,i) becomes a linear term on
// variable i; a key (i,j) with i != j becomes a quadratic term. The input map
// is not mutated.
func FromQUBO(q map[string]float64) (*Model, error) {
	m := newModel(KindQUBO)
	for key, coeff := range q {
		pair, err := ParsePair(key)
		if err != nil {
			return nil, err
		}
		if pair.U == pair.V {
			m.Linear[pair.U] = coeff
		} else {
			m.Quadratic[pair] = coeff
		}
	}
	return m, nil
}

// FromIsing builds an Ising model from separate linear (h) and coupling (J)
// maps. Keys of h are single variable indices; keys of J are stringified
// pairs. A J key (i,i) folds into the linear map, overwriting any h entry for
// that variable (last-write-wins, with J applied after h).
func FromIsing(h map[string]float64, j map[string]float64) (*Model, error) {
	m := newModel(KindIsing)
	for key, coeff := range h {
		v, err := ParseVar(key)
		if err != nil {
			return nil, err
		}
		m.Linear[v] = coeff
	}
	for key, coeff := range j {
		pair, err := ParsePair(key)
		if err != nil {
			return nil, err
		}
		if pair.U == pair.V {
			m.Linear[pair.U] = coeff
		} else {
			m.Quadratic[pair] = coeff
		}
	}
	return m, nil
}

// Variables returns the sorted set of variables appearing in any term.
func (m *Model) Variables() []int {
	seen := make(map[int]bool, len(m.Linear))
	for v := range m.Linear {
		seen[v] = true
	}
	for p := range m.Quadratic {
		seen[p.U] = true
		seen[p.V] = true
	}
	vars := make([]int, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	return vars
}

// NumVariables reports the size of the variable set.
func (m *Model) NumVariables() int {
	return len(m.Variables())
}

// Energy evaluates the objective at the given assignment. Variables missing
// from the assignment contribute as zero (QUBO) which matches the sparse
// convention of annealing backends; for Ising models callers are expected to
// pass a complete assignment.
func (m *Model) Energy(assignment map[int]int8) float64 {
	var e float64
	for v, c := range m.Linear {
		e += c * float64(assignment[v])
	}
	for p, c := range m.Quadratic {
		e += c * float64(assignment[p.U]) * float64(assignment[p.V])
	}
	return e
}

// Domain returns the two values a variable may take under this model's kind.
func (m *Model) Domain() (lo, hi int8) {
	if m.Kind == KindIsing {
		return -1, 1
	}
	return 0, 1
}

// String implements fmt.Stringer for log lines.
func (m *Model) String() string {
	return fmt.Sprintf("%s model: %d variables, %d linear, %d quadratic terms",
		m.Kind, m.NumVariables(), len(m.Linear), len(m.Quadratic))
}
