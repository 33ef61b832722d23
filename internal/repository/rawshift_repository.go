package repository

import (
	"context"

	"github.com/crewtally/tally-api/internal/models"
)

type RawShiftRepository interface {
	ReplaceForBatch(ctx context.Context, batchID string, records []models.RawShiftRecord) (int, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.RawShiftRecord, error)
	DistinctJobLabels(ctx context.Context, batchID string) ([]string, error)
}

type rawShiftRepository struct {
	db DBTX
}

func NewRawShiftRepository(db DBTX) RawShiftRepository {
	return &rawShiftRepository{db: db}
}

// ReplaceForBatch swaps the batch's parsed export. Re-uploading the
// same export is expected operator behavior; downstream persistence is
// idempotent by natural identity, so replacing here is safe.
func (r *rawShiftRepository) ReplaceForBatch(ctx context.Context, batchID string, records []models.RawShiftRecord) (int, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM raw_shifts WHERE batch_id = $1`, batchID); err != nil {
		return 0, err
	}

	const query = `
		INSERT INTO raw_shifts (
			batch_id, source_row, work_date, job_label, crew_member, tags, notes,
			regular_raw, overtime_raw, double_overtime_raw, paid_time_off_raw,
			regular_hours, overtime_hours, double_overtime_hours, paid_time_off_hours, total_hours,
			is_quality_control, is_delivery_drop
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	for _, rec := range records {
		_, err := r.db.ExecContext(ctx, query,
			batchID,
			rec.SourceRow,
			rec.WorkDate,
			rec.JobLabel,
			rec.CrewMember,
			rec.Tags,
			rec.Notes,
			rec.RegularRaw,
			rec.OvertimeRaw,
			rec.DoubleOvertimeRaw,
			rec.PaidTimeOffRaw,
			rec.RegularHours,
			rec.OvertimeHours,
			rec.DoubleOvertimeHours,
			rec.PaidTimeOffHours,
			rec.TotalHours,
			rec.IsQualityControl,
			rec.IsDeliveryDrop,
		)
		if err != nil {
			return 0, err
		}
	}
	return len(records), nil
}

func (r *rawShiftRepository) ListByBatch(ctx context.Context, batchID string) ([]models.RawShiftRecord, error) {
	const query = `
		SELECT id, batch_id, source_row, work_date, job_label, crew_member, tags, notes,
		       regular_raw, overtime_raw, double_overtime_raw, paid_time_off_raw,
		       regular_hours, overtime_hours, double_overtime_hours, paid_time_off_hours, total_hours,
		       is_quality_control, is_delivery_drop, created_at
		FROM raw_shifts
		WHERE batch_id = $1
		ORDER BY source_row
	`
	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.RawShiftRecord
	for rows.Next() {
		var rec models.RawShiftRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.BatchID,
			&rec.SourceRow,
			&rec.WorkDate,
			&rec.JobLabel,
			&rec.CrewMember,
			&rec.Tags,
			&rec.Notes,
			&rec.RegularRaw,
			&rec.OvertimeRaw,
			&rec.DoubleOvertimeRaw,
			&rec.PaidTimeOffRaw,
			&rec.RegularHours,
			&rec.OvertimeHours,
			&rec.DoubleOvertimeHours,
			&rec.PaidTimeOffHours,
			&rec.TotalHours,
			&rec.IsQualityControl,
			&rec.IsDeliveryDrop,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *rawShiftRepository) DistinctJobLabels(ctx context.Context, batchID string) ([]string, error) {
	const query = `
		SELECT job_label
		FROM raw_shifts
		WHERE batch_id = $1
		GROUP BY job_label
		ORDER BY MIN(source_row)
	`
	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}
