// Package registry owns the process-wide problem and result state. Problems
// are registered once, looked up by opaque identifier, and never mutated;
// results are appended once per solve. The Store facade lets the server run
// on the in-memory implementation by default and swap in SQLite persistence
// without touching callers.
package registry

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"qanneal/internal/anneal"
	"qanneal/internal/qubo"
)

// ErrNotFound is returned by lookups for identifiers the store has never
// seen. Callers test with errors.Is.
var ErrNotFound = errors.New("not found")

// Problem wraps a registered quadratic model with its identity and metadata.
// Immutable once stored.
type Problem struct {
	ID          string      `json:"problem_id"`
	Kind        qubo.Kind   `json:"type"`
	Description string      `json:"description,omitempty"`
	Model       *qubo.Model `json:"-"`
	CreatedAt   string      `json:"created_at"`
}

// Result is one completed solve. Samples preserve the backend's return order;
// the store never reorders them.
type Result struct {
	ID              string          `json:"result_id"`
	ProblemID       string          `json:"problem_id"`
	BestSample      map[int]int8    `json:"-"`
	BestEnergy      float64         `json:"energy"`
	Samples         []anneal.Sample `json:"-"`
	NumReads        int             `json:"num_reads"`
	AnnealingTimeUS int             `json:"annealing_time"`
	ElapsedSeconds  float64         `json:"execution_time"`
	Solver          string          `json:"solver"`
	CreatedAt       string          `json:"created_at"`
}

// Store is the persistence facade for problems and results. Implementations
// must make inserts atomic (concurrent registrations never share an ID) and
// lookups must only ever observe fully-constructed records.
//
// Result identifiers live in their own space, distinct from problem
// identifiers; GetResult resolves a result ID first and falls back to "most
// recent result for this problem ID" so clients may pass either.
type Store interface {
	PutProblem(p *Problem) error
	GetProblem(id string) (*Problem, error)
	ListProblems() ([]*Problem, error)

	PutResult(r *Result) error
	GetResult(id string) (*Result, error)
}

// NewID mints an opaque identifier. UUIDv4 collisions are not a practical
// concern for a process-lifetime registry.
func NewID() string { return uuid.NewString() }

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// NewProblem assembles a Problem record with a fresh identifier and creation
// timestamp. The caller passes it to Store.PutProblem unchanged.
func NewProblem(kind qubo.Kind, m *qubo.Model, description string) *Problem {
	return &Problem{
		ID:          NewID(),
		Kind:        kind,
		Description: description,
		Model:       m,
		CreatedAt:   nowUTC(),
	}
}
