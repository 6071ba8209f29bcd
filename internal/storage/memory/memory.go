package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/spigell/resume-intake/internal/candidate"
	"github.com/spigell/resume-intake/internal/storage"
)

// Store keeps candidates in process memory. It is used for dry runs and tests.
type Store struct {
	mu      sync.RWMutex
	records map[string]candidate.Candidate
	order   []string
}

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[string]candidate.Candidate)}
}

func (s *Store) Write(_ context.Context, key string, c candidate.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		s.order = append(s.order, key)
	}
	s.records[key] = clone(c)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (candidate.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.records[id]
	if !ok {
		return candidate.Candidate{}, storage.ErrNotFound
	}
	return clone(c), nil
}

// List returns candidates by score descending; ties keep insertion order.
func (s *Store) List(_ context.Context) ([]candidate.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]candidate.Candidate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clone(s.records[id]))
	}
	slices.SortStableFunc(out, func(a, b candidate.Candidate) int { return b.Score - a.Score })
	return out, nil
}

func (s *Store) SetApproved(_ context.Context, id string, approved bool) (candidate.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.records[id]
	if !ok {
		return candidate.Candidate{}, storage.ErrNotFound
	}
	c.Approved = approved
	s.records[id] = c
	return clone(c), nil
}

func (s *Store) Close() error { return nil }

func clone(c candidate.Candidate) candidate.Candidate {
	c.Skills = slices.Clone(c.Skills)
	return c
}
