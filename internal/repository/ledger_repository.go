package repository

import (
	"context"

	"github.com/crewtally/tally-api/internal/models"
)

type LedgerRowRepository interface {
	ReplaceForBatch(ctx context.Context, batchID string, rows []models.LedgerJobRow) (int, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.LedgerJobRow, error)
}

type ledgerRowRepository struct {
	db DBTX
}

func NewLedgerRowRepository(db DBTX) LedgerRowRepository {
	return &ledgerRowRepository{db: db}
}

// ReplaceForBatch swaps in the batch's ledger snapshot. Rows are
// immutable once ingested, so a re-fetch from the ledger source
// replaces the whole set rather than merging.
func (r *ledgerRowRepository) ReplaceForBatch(ctx context.Context, batchID string, rows []models.LedgerJobRow) (int, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ledger_rows WHERE batch_id = $1`, batchID); err != nil {
		return 0, err
	}

	const query = `
		INSERT INTO ledger_rows (batch_id, row_position, job_name, branch_id, crew_lead_name, closing_date, estimated_hours, sold_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, row := range rows {
		_, err := r.db.ExecContext(ctx, query,
			batchID,
			row.RowPosition,
			row.JobName,
			row.BranchID,
			row.CrewLeadName,
			row.ClosingDate,
			row.EstimatedHours,
			row.SoldPrice,
		)
		if err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func (r *ledgerRowRepository) ListByBatch(ctx context.Context, batchID string) ([]models.LedgerJobRow, error) {
	const query = `
		SELECT id, batch_id, row_position, job_name, branch_id, crew_lead_name, closing_date, estimated_hours, sold_price, created_at
		FROM ledger_rows
		WHERE batch_id = $1
		ORDER BY row_position
	`
	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LedgerJobRow
	for rows.Next() {
		var row models.LedgerJobRow
		if err := rows.Scan(
			&row.ID,
			&row.BatchID,
			&row.RowPosition,
			&row.JobName,
			&row.BranchID,
			&row.CrewLeadName,
			&row.ClosingDate,
			&row.EstimatedHours,
			&row.SoldPrice,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
