package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerJobRow is one row of the operator-maintained job ledger, the
// authoritative business record clocked time is reconciled against.
// Rows are immutable once ingested for a batch and identified by
// (batch, row position).
type LedgerJobRow struct {
	ID             int64           `json:"id" db:"id"`
	BatchID        string          `json:"batch_id" db:"batch_id"`
	RowPosition    int             `json:"row_position" db:"row_position"`
	JobName        string          `json:"job_name" db:"job_name"`
	BranchID       int64           `json:"branch_id" db:"branch_id"`
	CrewLeadName   string          `json:"crew_lead_name" db:"crew_lead_name"`
	ClosingDate    *time.Time      `json:"closing_date,omitempty" db:"closing_date"`
	EstimatedHours float64         `json:"estimated_hours" db:"estimated_hours"`
	SoldPrice      decimal.Decimal `json:"sold_price" db:"sold_price"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
