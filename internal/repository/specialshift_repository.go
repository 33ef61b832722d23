package repository

import (
	"context"
	"database/sql"

	"github.com/crewtally/tally-api/internal/models"
)

type SpecialShiftRepository interface {
	GetByPair(ctx context.Context, jobID int64, shiftType models.SpecialShiftType) (models.SpecialShift, bool, error)
	Create(ctx context.Context, shift models.SpecialShift) (models.SpecialShift, error)
	UpdateHoursIfUnapproved(ctx context.Context, shift models.SpecialShift) (bool, error)
	ListByJob(ctx context.Context, jobID int64) ([]models.SpecialShift, error)
	CountUnapproved(ctx context.Context, jobID int64) (int, int, error)
	ApprovePending(ctx context.Context, jobID int64) (int, error)
	SumApprovedHours(ctx context.Context, jobID int64) (float64, error)
}

type specialShiftRepository struct {
	db DBTX
}

func NewSpecialShiftRepository(db DBTX) SpecialShiftRepository {
	return &specialShiftRepository{db: db}
}

const specialShiftColumns = `id, job_id, shift_type, batch_id, shift_count, total_hours, approved_shift, performance_status, created_at, updated_at`

func scanSpecialShift(scanner interface{ Scan(dest ...interface{}) error }) (models.SpecialShift, error) {
	var s models.SpecialShift
	err := scanner.Scan(
		&s.ID,
		&s.JobID,
		&s.Type,
		&s.BatchID,
		&s.ShiftCount,
		&s.TotalHours,
		&s.ApprovedShift,
		&s.Performance,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

func (r *specialShiftRepository) GetByPair(ctx context.Context, jobID int64, shiftType models.SpecialShiftType) (models.SpecialShift, bool, error) {
	shift, err := scanSpecialShift(r.db.QueryRowContext(ctx,
		`SELECT `+specialShiftColumns+` FROM special_shifts WHERE job_id = $1 AND shift_type = $2`, jobID, shiftType))
	if err == sql.ErrNoRows {
		return models.SpecialShift{}, false, nil
	}
	if err != nil {
		return models.SpecialShift{}, false, err
	}
	return shift, true, nil
}

func (r *specialShiftRepository) Create(ctx context.Context, shift models.SpecialShift) (models.SpecialShift, error) {
	const query = `
		INSERT INTO special_shifts (job_id, shift_type, batch_id, shift_count, total_hours, approved_shift, performance_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		shift.JobID,
		shift.Type,
		shift.BatchID,
		shift.ShiftCount,
		shift.TotalHours,
		shift.ApprovedShift,
		shift.Performance,
	).Scan(&shift.ID, &shift.CreatedAt, &shift.UpdatedAt)
	return shift, err
}

func (r *specialShiftRepository) UpdateHoursIfUnapproved(ctx context.Context, shift models.SpecialShift) (bool, error) {
	const query = `
		UPDATE special_shifts
		SET batch_id = $1, shift_count = $2, total_hours = $3, approved_shift = $4,
		    performance_status = $5, updated_at = NOW()
		WHERE job_id = $6 AND shift_type = $7 AND approved_shift = FALSE AND performance_status <> $8
	`
	res, err := r.db.ExecContext(ctx, query,
		shift.BatchID,
		shift.ShiftCount,
		shift.TotalHours,
		shift.ApprovedShift,
		shift.Performance,
		shift.JobID,
		shift.Type,
		models.ShiftStatusRejected,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (r *specialShiftRepository) ListByJob(ctx context.Context, jobID int64) ([]models.SpecialShift, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+specialShiftColumns+` FROM special_shifts WHERE job_id = $1 ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []models.SpecialShift
	for rows.Next() {
		shift, err := scanSpecialShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

func (r *specialShiftRepository) CountUnapproved(ctx context.Context, jobID int64) (int, int, error) {
	const query = `
		SELECT
			COALESCE(SUM((performance_status = 'pending_approval')::int), 0),
			COUNT(*)
		FROM special_shifts
		WHERE job_id = $1
	`
	var pending, total int
	err := r.db.QueryRowContext(ctx, query, jobID).Scan(&pending, &total)
	return pending, total, err
}

func (r *specialShiftRepository) ApprovePending(ctx context.Context, jobID int64) (int, error) {
	const query = `
		UPDATE special_shifts
		SET approved_shift = TRUE, performance_status = $1, updated_at = NOW()
		WHERE job_id = $2 AND performance_status = $3
	`
	res, err := r.db.ExecContext(ctx, query, models.ShiftStatusApproved, jobID, models.ShiftStatusPending)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (r *specialShiftRepository) SumApprovedHours(ctx context.Context, jobID int64) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(total_hours), 0)
		FROM special_shifts
		WHERE job_id = $1 AND approved_shift = TRUE
	`
	var total float64
	err := r.db.QueryRowContext(ctx, query, jobID).Scan(&total)
	return total, err
}
