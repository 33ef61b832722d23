package repository

import (
	"context"

	"github.com/crewtally/tally-api/internal/models"
)

type MatchRepository interface {
	// Upsert records one raw-label-to-ledger-row confirmation,
	// replacing any previous confirmation for the label within the
	// batch. Returns true when a row was written.
	Upsert(ctx context.Context, batchID, rawLabel string, ledgerRowID int64) (bool, error)
	// Delete removes the confirmation for a raw label, used when the
	// operator clears a proposal.
	Delete(ctx context.Context, batchID, rawLabel string) error
	ListByBatch(ctx context.Context, batchID string) ([]models.ConfirmedMatch, error)
	// LedgerRowTaken reports whether another raw label is already
	// confirmed to the ledger row (1:1 enforcement).
	LedgerRowTaken(ctx context.Context, batchID string, ledgerRowID int64, excludeLabel string) (bool, error)
}

type matchRepository struct {
	db DBTX
}

func NewMatchRepository(db DBTX) MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Upsert(ctx context.Context, batchID, rawLabel string, ledgerRowID int64) (bool, error) {
	const query = `
		INSERT INTO confirmed_matches (batch_id, raw_label, ledger_row_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (batch_id, raw_label)
		DO UPDATE SET ledger_row_id = EXCLUDED.ledger_row_id
	`
	res, err := r.db.ExecContext(ctx, query, batchID, rawLabel, ledgerRowID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (r *matchRepository) Delete(ctx context.Context, batchID, rawLabel string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM confirmed_matches WHERE batch_id = $1 AND raw_label = $2`,
		batchID, rawLabel)
	return err
}

func (r *matchRepository) ListByBatch(ctx context.Context, batchID string) ([]models.ConfirmedMatch, error) {
	const query = `
		SELECT id, batch_id, raw_label, ledger_row_id, created_at
		FROM confirmed_matches
		WHERE batch_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []models.ConfirmedMatch
	for rows.Next() {
		var m models.ConfirmedMatch
		if err := rows.Scan(&m.ID, &m.BatchID, &m.RawLabel, &m.LedgerRowID, &m.CreatedAt); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *matchRepository) LedgerRowTaken(ctx context.Context, batchID string, ledgerRowID int64, excludeLabel string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM confirmed_matches
			WHERE batch_id = $1 AND ledger_row_id = $2 AND raw_label <> $3
		)
	`
	var taken bool
	err := r.db.QueryRowContext(ctx, query, batchID, ledgerRowID, excludeLabel).Scan(&taken)
	return taken, err
}
