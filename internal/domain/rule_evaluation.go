package domain

import (
	"encoding/json"
	"time"
)

// RuleEvaluation records the outcome of an alert rule check.
// Written by the alerting subsystem; this service only prunes them.
type RuleEvaluation struct {
	ID            int64
	RuleID        string
	WalletAddress string
	EvaluatedAt   time.Time
	Triggered     bool
	Detail        json.RawMessage // opaque rule-specific payload
}
