package registry

import (
	"errors"
	"fmt"
	"sync"
)

// MemStore is the default Store: process-lifetime maps behind an RWMutex.
// Inserts are append-only, so readers either miss a record entirely or see it
// fully constructed.
type MemStore struct {
	mu              sync.RWMutex
	problems        map[string]*Problem
	problemOrder    []string
	results         map[string]*Result
	latestByProblem map[string]string // problem ID -> most recent result ID
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		problems:        make(map[string]*Problem),
		results:         make(map[string]*Result),
		latestByProblem: make(map[string]string),
	}
}

// PutProblem implements Store.
func (s *MemStore) PutProblem(p *Problem) error {
	if p == nil {
		return errors.New("problem is nil")
	}
	if p.ID == "" {
		return errors.New("problem has no ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.problems[p.ID]; exists {
		return fmt.Errorf("problem %s already registered", p.ID)
	}
	s.problems[p.ID] = p
	s.problemOrder = append(s.problemOrder, p.ID)
	return nil
}

// GetProblem implements Store.
func (s *MemStore) GetProblem(id string) (*Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.problems[id]
	if !ok {
		return nil, fmt.Errorf("problem %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// ListProblems implements Store. Problems come back in registration order.
func (s *MemStore) ListProblems() ([]*Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Problem, 0, len(s.problemOrder))
	for _, id := range s.problemOrder {
		out = append(out, s.problems[id])
	}
	return out, nil
}

// PutResult implements Store.
func (s *MemStore) PutResult(r *Result) error {
	if r == nil {
		return errors.New("result is nil")
	}
	if r.ID == "" {
		return errors.New("result has no ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[r.ID]; exists {
		return fmt.Errorf("result %s already stored", r.ID)
	}
	s.results[r.ID] = r
	if r.ProblemID != "" {
		s.latestByProblem[r.ProblemID] = r.ID
	}
	return nil
}

// GetResult implements Store: id resolves as a result ID first, then as a
// problem ID (returning that problem's most recent result).
func (s *MemStore) GetResult(id string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[id]; ok {
		return r, nil
	}
	if rid, ok := s.latestByProblem[id]; ok {
		return s.results[rid], nil
	}
	return nil, fmt.Errorf("result %s: %w", id, ErrNotFound)
}
