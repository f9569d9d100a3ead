// Package retention deletes time-series rows past their retention window.
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wallet-sync/internal/observability"
	"wallet-sync/internal/storage"
)

// Default retention windows.
const (
	DefaultSnapshotMaxAge   = 30 * 24 * time.Hour
	DefaultEventMaxAge      = 90 * 24 * time.Hour
	DefaultEvaluationMaxAge = 30 * 24 * time.Hour
)

// Table names used in logs, metrics and results.
const (
	TableSnapshots       = "balance_snapshots"
	TableEvents          = "wallet_events"
	TableRuleEvaluations = "rule_evaluations"
	TableBalanceHistory  = "balance_history"
)

// Pruner removes expired snapshots, events, rule evaluations and balance history.
type Pruner struct {
	snapshots   storage.SnapshotStore
	events      storage.EventStore
	evaluations storage.RuleEvaluationStore
	history     storage.BalanceHistoryStore

	snapshotMaxAge   time.Duration
	eventMaxAge      time.Duration
	evaluationMaxAge time.Duration

	logger *zap.Logger
	now    func() time.Time
}

// Options for creating a Pruner. Zero durations use the defaults.
type Options struct {
	Snapshots   storage.SnapshotStore
	Events      storage.EventStore
	Evaluations storage.RuleEvaluationStore
	History     storage.BalanceHistoryStore // optional; pruned with the snapshot window

	SnapshotMaxAge   time.Duration
	EventMaxAge      time.Duration
	EvaluationMaxAge time.Duration

	Logger *zap.Logger
	Now    func() time.Time
}

// New creates a new Pruner.
func New(opts Options) *Pruner {
	p := &Pruner{
		snapshots:        opts.Snapshots,
		events:           opts.Events,
		evaluations:      opts.Evaluations,
		history:          opts.History,
		snapshotMaxAge:   opts.SnapshotMaxAge,
		eventMaxAge:      opts.EventMaxAge,
		evaluationMaxAge: opts.EvaluationMaxAge,
		logger:           opts.Logger,
		now:              opts.Now,
	}
	if p.snapshotMaxAge <= 0 {
		p.snapshotMaxAge = DefaultSnapshotMaxAge
	}
	if p.eventMaxAge <= 0 {
		p.eventMaxAge = DefaultEventMaxAge
	}
	if p.evaluationMaxAge <= 0 {
		p.evaluationMaxAge = DefaultEvaluationMaxAge
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// PruneResult reports per-table outcomes of one prune run.
type PruneResult struct {
	Deleted map[string]int64
	Errors  map[string]error
}

// Failed reports whether any target failed.
func (r *PruneResult) Failed() bool {
	return len(r.Errors) > 0
}

// Err joins the per-table errors in a stable order, or returns nil.
func (r *PruneResult) Err() error {
	var errs []error
	for _, table := range []string{TableSnapshots, TableEvents, TableRuleEvaluations, TableBalanceHistory} {
		if err, ok := r.Errors[table]; ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PruneOldData deletes expired rows from every target. Targets are
// independent: a failure on one is logged and the others still run.
// Running it twice in a row deletes nothing the second time.
func (p *Pruner) PruneOldData(ctx context.Context) *PruneResult {
	now := p.now()
	result := &PruneResult{
		Deleted: make(map[string]int64),
		Errors:  make(map[string]error),
	}

	p.pruneTable(ctx, result, TableSnapshots, now.Add(-p.snapshotMaxAge), p.snapshots.DeleteOlderThan)
	p.pruneTable(ctx, result, TableEvents, now.Add(-p.eventMaxAge), p.events.DeleteOlderThan)
	p.pruneTable(ctx, result, TableRuleEvaluations, now.Add(-p.evaluationMaxAge), p.evaluations.DeleteOlderThan)

	if p.history != nil {
		p.pruneTable(ctx, result, TableBalanceHistory, now.Add(-p.snapshotMaxAge), p.history.DeleteOlderThan)
	}

	if !result.Failed() {
		observability.RecordPruneComplete()
	}

	p.logger.Info("retention prune completed",
		zap.Int64("snapshots_deleted", result.Deleted[TableSnapshots]),
		zap.Int64("events_deleted", result.Deleted[TableEvents]),
		zap.Int64("evaluations_deleted", result.Deleted[TableRuleEvaluations]),
		zap.Int64("history_deleted", result.Deleted[TableBalanceHistory]),
		zap.Int("failed_targets", len(result.Errors)),
	)

	return result
}

type deleteFunc func(ctx context.Context, cutoff time.Time) (int64, error)

func (p *Pruner) pruneTable(ctx context.Context, result *PruneResult, table string, cutoff time.Time, del deleteFunc) {
	deleted, err := del(ctx, cutoff)
	p.record(result, table, cutoff, deleted, err)
}

func (p *Pruner) record(result *PruneResult, table string, cutoff time.Time, deleted int64, err error) {
	observability.RecordPruned(table, deleted, err)

	if err != nil {
		err = fmt.Errorf("%w: prune %s: %w", storage.ErrWriteFailed, table, err)
		result.Errors[table] = err
		p.logger.Error("retention prune failed",
			zap.String("table", table),
			zap.Time("cutoff", cutoff),
			zap.Error(err),
		)
		return
	}

	result.Deleted[table] = deleted
}
