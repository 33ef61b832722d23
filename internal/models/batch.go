package models

import "time"

// SyncBatch scopes one reconciliation run: one branch, one date range.
// Ledger rows, raw shifts, and confirmed matches from different batches
// never interact.
type SyncBatch struct {
	ID          string     `json:"id" db:"id"`
	BranchID    int64      `json:"branch_id" db:"branch_id"`
	PeriodStart *time.Time `json:"period_start,omitempty" db:"period_start"`
	PeriodEnd   *time.Time `json:"period_end,omitempty" db:"period_end"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
