package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/crewtally/tally-api/internal/models"
)

// ErrBatchNotFound reports an unknown sync batch identifier.
var ErrBatchNotFound = errors.New("sync batch not found")

type BatchRepository interface {
	Create(ctx context.Context, batch models.SyncBatch) (models.SyncBatch, error)
	Get(ctx context.Context, id string) (models.SyncBatch, error)
	List(ctx context.Context, limit int) ([]models.SyncBatch, error)
}

type batchRepository struct {
	db DBTX
}

func NewBatchRepository(db DBTX) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch models.SyncBatch) (models.SyncBatch, error) {
	const query = `
		INSERT INTO sync_batches (id, branch_id, period_start, period_end)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, batch.ID, batch.BranchID, batch.PeriodStart, batch.PeriodEnd).
		Scan(&batch.CreatedAt)
	return batch, err
}

func (r *batchRepository) Get(ctx context.Context, id string) (models.SyncBatch, error) {
	const query = `
		SELECT id, branch_id, period_start, period_end, created_at
		FROM sync_batches
		WHERE id = $1
	`
	var batch models.SyncBatch
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&batch.ID,
		&batch.BranchID,
		&batch.PeriodStart,
		&batch.PeriodEnd,
		&batch.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return batch, ErrBatchNotFound
	}
	return batch, err
}

func (r *batchRepository) List(ctx context.Context, limit int) ([]models.SyncBatch, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	const query = `
		SELECT id, branch_id, period_start, period_end, created_at
		FROM sync_batches
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []models.SyncBatch
	for rows.Next() {
		var batch models.SyncBatch
		if err := rows.Scan(&batch.ID, &batch.BranchID, &batch.PeriodStart, &batch.PeriodEnd, &batch.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}
