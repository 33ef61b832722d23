package models

import "time"

// MatchProposal is a computed suggestion pairing a ledger row with the
// best-scoring raw job label. It is never persisted; absence of a
// qualifying candidate yields a proposal with a nil MatchedLabel rather
// than a low-confidence guess.
type MatchProposal struct {
	LedgerRowID  int64   `json:"ledger_row_id"`
	LedgerName   string  `json:"ledger_name"`
	MatchedLabel *string `json:"matched_label"`
	Score        int     `json:"score"`
}

// ConfirmedMatch is the operator-confirmed mapping from a raw job label
// to a ledger row. It supersedes any proposal and is the sole trigger
// for aggregation. Within a batch a raw label maps to at most one
// ledger row and a ledger row receives shifts from exactly one label.
type ConfirmedMatch struct {
	ID          int64     `json:"id" db:"id"`
	BatchID     string    `json:"batch_id" db:"batch_id"`
	RawLabel    string    `json:"raw_label" db:"raw_label"`
	LedgerRowID int64     `json:"ledger_row_id" db:"ledger_row_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
