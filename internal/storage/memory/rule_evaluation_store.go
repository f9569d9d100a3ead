package memory

import (
	"context"
	"sync"
	"time"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

// RuleEvaluationStore is an in-memory implementation of storage.RuleEvaluationStore.
type RuleEvaluationStore struct {
	mu     sync.Mutex
	data   []*domain.RuleEvaluation
	nextID int64
}

// NewRuleEvaluationStore creates a new in-memory rule evaluation store.
func NewRuleEvaluationStore() *RuleEvaluationStore {
	return &RuleEvaluationStore{}
}

var _ storage.RuleEvaluationStore = (*RuleEvaluationStore)(nil)

func (s *RuleEvaluationStore) Insert(_ context.Context, e *domain.RuleEvaluation) error {
	if e == nil || e.RuleID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	e.ID = s.nextID
	copy := *e
	s.data = append(s.data, &copy)
	return nil
}

func (s *RuleEvaluationStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data[:0]
	var deleted int64
	for _, e := range s.data {
		if e.EvaluatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.data = kept
	return deleted, nil
}

// Count returns the number of stored evaluations.
func (s *RuleEvaluationStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
