package postgres

import (
	"context"
	"time"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

// RuleEvaluationStore implements storage.RuleEvaluationStore using PostgreSQL.
type RuleEvaluationStore struct {
	pool *Pool
}

// NewRuleEvaluationStore creates a new RuleEvaluationStore.
func NewRuleEvaluationStore(pool *Pool) *RuleEvaluationStore {
	return &RuleEvaluationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RuleEvaluationStore = (*RuleEvaluationStore)(nil)

// Insert adds a rule evaluation and assigns its ID.
func (s *RuleEvaluationStore) Insert(ctx context.Context, e *domain.RuleEvaluation) error {
	if e == nil || e.RuleID == "" {
		return storage.ErrInvalidInput
	}

	detail := []byte(e.Detail)
	if len(detail) == 0 {
		detail = []byte("{}")
	}

	query := `
		INSERT INTO rule_evaluations (rule_id, wallet_address, evaluated_at, triggered, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query, e.RuleID, e.WalletAddress, e.EvaluatedAt, e.Triggered, detail).Scan(&e.ID)
	if err != nil {
		return mapError("insert rule evaluation", err)
	}
	return nil
}

// DeleteOlderThan removes evaluations made before cutoff.
func (s *RuleEvaluationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rule_evaluations WHERE evaluated_at < $1`, cutoff)
	if err != nil {
		return 0, mapError("delete old rule evaluations", err)
	}
	return tag.RowsAffected(), nil
}
