package repository

import (
	"context"
	"database/sql"

	"github.com/crewtally/tally-api/internal/models"
)

type ShiftRepository interface {
	GetByPair(ctx context.Context, employeeID, jobID int64) (models.Shift, bool, error)
	Create(ctx context.Context, shift models.Shift) (models.Shift, error)
	// UpdateHoursIfUnapproved replaces the hours and approval state of
	// an existing pair and reports whether a row changed. Approved and
	// rejected rows never match: this is the anti-double-pay guard at
	// the SQL level, and rejected pairs stay rejected.
	UpdateHoursIfUnapproved(ctx context.Context, shift models.Shift) (bool, error)
	ListByJob(ctx context.Context, jobID int64) ([]models.Shift, error)
	CountUnapproved(ctx context.Context, jobID int64) (int, int, error)
	// ApprovePending flips every pending shift on the job to approved
	// and returns how many flipped.
	ApprovePending(ctx context.Context, jobID int64) (int, error)
	// RejectPending marks one pending (employee, job) pair rejected.
	RejectPending(ctx context.Context, employeeID, jobID int64) (bool, error)
	SumApprovedHours(ctx context.Context, jobID int64) (float64, error)
}

type shiftRepository struct {
	db DBTX
}

func NewShiftRepository(db DBTX) ShiftRepository {
	return &shiftRepository{db: db}
}

const shiftColumns = `id, job_id, employee_id, batch_id, display_name, shift_count, regular_hours, overtime_hours, double_overtime_hours, total_hours, tags, approved_shift, performance_status, created_at, updated_at`

func scanShift(scanner interface{ Scan(dest ...interface{}) error }) (models.Shift, error) {
	var s models.Shift
	err := scanner.Scan(
		&s.ID,
		&s.JobID,
		&s.EmployeeID,
		&s.BatchID,
		&s.DisplayName,
		&s.ShiftCount,
		&s.RegularHours,
		&s.OvertimeHours,
		&s.DoubleOvertimeHours,
		&s.TotalHours,
		&s.Tags,
		&s.ApprovedShift,
		&s.Performance,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

func (r *shiftRepository) GetByPair(ctx context.Context, employeeID, jobID int64) (models.Shift, bool, error) {
	shift, err := scanShift(r.db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE employee_id = $1 AND job_id = $2`, employeeID, jobID))
	if err == sql.ErrNoRows {
		return models.Shift{}, false, nil
	}
	if err != nil {
		return models.Shift{}, false, err
	}
	return shift, true, nil
}

func (r *shiftRepository) Create(ctx context.Context, shift models.Shift) (models.Shift, error) {
	const query = `
		INSERT INTO shifts (job_id, employee_id, batch_id, display_name, shift_count, regular_hours, overtime_hours, double_overtime_hours, total_hours, tags, approved_shift, performance_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		shift.JobID,
		shift.EmployeeID,
		shift.BatchID,
		shift.DisplayName,
		shift.ShiftCount,
		shift.RegularHours,
		shift.OvertimeHours,
		shift.DoubleOvertimeHours,
		shift.TotalHours,
		shift.Tags,
		shift.ApprovedShift,
		shift.Performance,
	).Scan(&shift.ID, &shift.CreatedAt, &shift.UpdatedAt)
	return shift, err
}

func (r *shiftRepository) UpdateHoursIfUnapproved(ctx context.Context, shift models.Shift) (bool, error) {
	const query = `
		UPDATE shifts
		SET batch_id = $1, display_name = $2, shift_count = $3, regular_hours = $4,
		    overtime_hours = $5, double_overtime_hours = $6, total_hours = $7, tags = $8,
		    approved_shift = $9, performance_status = $10, updated_at = NOW()
		WHERE employee_id = $11 AND job_id = $12 AND approved_shift = FALSE AND performance_status <> $13
	`
	res, err := r.db.ExecContext(ctx, query,
		shift.BatchID,
		shift.DisplayName,
		shift.ShiftCount,
		shift.RegularHours,
		shift.OvertimeHours,
		shift.DoubleOvertimeHours,
		shift.TotalHours,
		shift.Tags,
		shift.ApprovedShift,
		shift.Performance,
		shift.EmployeeID,
		shift.JobID,
		models.ShiftStatusRejected,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (r *shiftRepository) ListByJob(ctx context.Context, jobID int64) ([]models.Shift, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE job_id = $1 ORDER BY id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []models.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

// CountUnapproved returns (pending, total) shift counts for the job.
// Rejected shifts stay visible for audit but do not count as pending.
func (r *shiftRepository) CountUnapproved(ctx context.Context, jobID int64) (int, int, error) {
	const query = `
		SELECT
			COALESCE(SUM((performance_status = 'pending_approval')::int), 0),
			COUNT(*)
		FROM shifts
		WHERE job_id = $1
	`
	var pending, total int
	err := r.db.QueryRowContext(ctx, query, jobID).Scan(&pending, &total)
	return pending, total, err
}

func (r *shiftRepository) ApprovePending(ctx context.Context, jobID int64) (int, error) {
	const query = `
		UPDATE shifts
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

func (r *shiftRepository) RejectPending(ctx context.Context, employeeID, jobID int64) (bool, error) {
	const query = `
		UPDATE shifts
		SET performance_status = $1, updated_at = NOW()
		WHERE employee_id = $2 AND job_id = $3 AND performance_status = $4
	`
	res, err := r.db.ExecContext(ctx, query, models.ShiftStatusRejected, employeeID, jobID, models.ShiftStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (r *shiftRepository) SumApprovedHours(ctx context.Context, jobID int64) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(total_hours), 0)
		FROM shifts
		WHERE job_id = $1 AND approved_shift = TRUE
	`
	var total float64
	err := r.db.QueryRowContext(ctx, query, jobID).Scan(&total)
	return total, err
}
